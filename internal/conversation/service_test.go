package conversation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/HendryAvila/taskpilot/internal/conversation"
)

func TestService_OwnershipChecks(t *testing.T) {
	svc := conversation.NewService(newTestStore(t))
	ctx := context.Background()

	c, err := svc.Create(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Store().AppendMessage(ctx, c.ID, conversation.RoleUser, "hi", nil); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Messages(ctx, 2, c.ID, conversation.Page{}); !errors.Is(err, conversation.ErrForbidden) {
		t.Fatalf("foreign Messages: %v", err)
	}
	if err := svc.Delete(ctx, 2, c.ID); !errors.Is(err, conversation.ErrForbidden) {
		t.Fatalf("foreign Delete: %v", err)
	}
	if _, err := svc.Messages(ctx, 1, "missing", conversation.Page{}); !errors.Is(err, conversation.ErrNotFound) {
		t.Fatalf("missing Messages: %v", err)
	}

	msgs, err := svc.Messages(ctx, 1, c.ID, conversation.Page{})
	if err != nil || msgs.Total != 1 {
		t.Fatalf("owner Messages = %+v, %v", msgs, err)
	}

	list, err := svc.List(ctx, 2, conversation.Page{})
	if err != nil || list.Total != 0 {
		t.Fatalf("other user's list = %+v, %v", list, err)
	}

	if err := svc.Delete(ctx, 1, c.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Authorize(ctx, 1, c.ID); !errors.Is(err, conversation.ErrNotFound) {
		t.Fatalf("deleted conversation still authorised: %v", err)
	}
}
