package conversation

import (
	"context"
)

// Service is the conversation management surface. Every call is made on
// behalf of a user and checks that the conversation is theirs.
type Service struct {
	store *Store
}

// NewService wraps store.
func NewService(store *Store) *Service {
	return &Service{store: store}
}

// Store returns the underlying store.
func (s *Service) Store() *Store { return s.store }

// Create starts a new conversation for userID.
func (s *Service) Create(ctx context.Context, userID int64) (*Conversation, error) {
	return s.store.CreateConversation(ctx, userID)
}

// Authorize returns the conversation if it exists and belongs to userID.
func (s *Service) Authorize(ctx context.Context, userID int64, id string) (*Conversation, error) {
	c, err := s.store.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, ErrForbidden
	}
	return c, nil
}

// List returns one page of the user's conversations.
func (s *Service) List(ctx context.Context, userID int64, page Page) (*Paged[Conversation], error) {
	return s.store.ListConversations(ctx, userID, page)
}

// Messages returns one page of a conversation the user owns.
func (s *Service) Messages(ctx context.Context, userID int64, id string, page Page) (*Paged[Message], error) {
	if _, err := s.Authorize(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, id, page)
}

// Delete removes a conversation the user owns, with its messages.
func (s *Service) Delete(ctx context.Context, userID int64, id string) error {
	if _, err := s.Authorize(ctx, userID, id); err != nil {
		return err
	}
	return s.store.DeleteConversation(ctx, id)
}
