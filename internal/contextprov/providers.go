package contextprov

import (
	"context"
	"time"

	"github.com/HendryAvila/taskpilot/internal/workspace"
)

// CurrentUser exposes the requesting user.
type CurrentUser struct{}

func (CurrentUser) Key() string { return "current_user" }

func (CurrentUser) Provide(_ context.Context, user workspace.User) (any, error) {
	return user, nil
}

// Constants exposes the enumerations the model must use verbatim.
type Constants struct {
	Now func() time.Time
}

// ConstantsFragment is the value produced by Constants.
type ConstantsFragment struct {
	TaskStatuses   []string `json:"task_statuses"`
	Priorities     []string `json:"priorities"`
	SprintStatuses []string `json:"sprint_statuses"`
	DateFormat     string   `json:"date_format"`
	Today          string   `json:"today"`
}

func (Constants) Key() string { return "constants" }

func (c Constants) Provide(context.Context, workspace.User) (any, error) {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return ConstantsFragment{
		TaskStatuses:   workspace.TaskStatuses,
		Priorities:     workspace.Priorities,
		SprintStatuses: workspace.SprintStatuses,
		DateFormat:     "YYYY-MM-DD",
		Today:          now().Format(workspace.DateLayout),
	}, nil
}

// Users lists known users so names can be resolved to IDs.
type Users struct{ Dir Directory }

func (Users) Key() string { return "users" }

func (p Users) Provide(ctx context.Context, _ workspace.User) (any, error) {
	users, err := p.Dir.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []workspace.User{}
	}
	return users, nil
}

// Projects lists the user's projects with their sprints.
type Projects struct{ Dir Directory }

func (Projects) Key() string { return "projects" }

func (p Projects) Provide(ctx context.Context, user workspace.User) (any, error) {
	projects, err := p.Dir.ProjectOverviews(ctx, user)
	if err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []workspace.ProjectOverview{}
	}
	return projects, nil
}

// Statuses reports how the user's tasks are spread across statuses.
type Statuses struct{ Dir Directory }

func (Statuses) Key() string { return "task_status_counts" }

func (p Statuses) Provide(ctx context.Context, user workspace.User) (any, error) {
	counts, err := p.Dir.StatusCounts(ctx, user)
	if err != nil {
		return nil, err
	}
	if counts == nil {
		counts = []workspace.StatusCount{}
	}
	return counts, nil
}
