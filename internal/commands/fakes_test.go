package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/HendryAvila/taskpilot/internal/workspace"
	"github.com/stretchr/testify/require"
)

// fakeServices records every call and returns canned results.
type fakeServices struct {
	listFilter  *workspace.TaskFilter
	created     *workspace.CreateTaskInput
	assigned    [2]int64
	statusSet   string
	comment     string
	member      [2]int64
	failWith    error
	panicWith   any
	projectsOut []workspace.Project
}

func (f *fakeServices) ListTasks(_ context.Context, _ workspace.User, filter workspace.TaskFilter) ([]workspace.Task, error) {
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	f.listFilter = &filter
	return []workspace.Task{{ID: 1, Title: "Existing", Status: workspace.StatusTodo}}, f.failWith
}

func (f *fakeServices) CreateTask(_ context.Context, user workspace.User, in workspace.CreateTaskInput) (*workspace.Task, error) {
	f.created = &in
	if f.failWith != nil {
		return nil, f.failWith
	}
	t := &workspace.Task{ID: 10, Title: in.Title, Status: workspace.StatusTodo, CreatorID: user.ID}
	if in.AssignToMe {
		t.AssigneeID = &user.ID
	}
	return t, nil
}

func (f *fakeServices) UpdateTaskStatus(_ context.Context, _ workspace.User, taskID int64, status string) (*workspace.Task, error) {
	f.statusSet = status
	return &workspace.Task{ID: taskID, Status: status}, f.failWith
}

func (f *fakeServices) AssignTask(_ context.Context, _ workspace.User, taskID, assigneeID int64) (*workspace.Task, error) {
	f.assigned = [2]int64{taskID, assigneeID}
	return &workspace.Task{ID: taskID, AssigneeID: &assigneeID}, f.failWith
}

func (f *fakeServices) MoveTaskToSprint(_ context.Context, _ workspace.User, taskID, sprintID int64) (*workspace.Task, error) {
	return &workspace.Task{ID: taskID, SprintID: &sprintID}, f.failWith
}

func (f *fakeServices) ListProjects(context.Context, workspace.User) ([]workspace.Project, error) {
	return f.projectsOut, f.failWith
}

func (f *fakeServices) CreateProject(_ context.Context, user workspace.User, in workspace.CreateProjectInput) (*workspace.Project, error) {
	return &workspace.Project{ID: 1, Name: in.Name, OwnerID: user.ID}, f.failWith
}

func (f *fakeServices) ListSprints(context.Context, workspace.User, int64, string) ([]workspace.Sprint, error) {
	return nil, f.failWith
}

func (f *fakeServices) CreateSprint(_ context.Context, _ workspace.User, in workspace.CreateSprintInput) (*workspace.Sprint, error) {
	return &workspace.Sprint{ID: 1, ProjectID: in.ProjectID, Name: in.Name}, f.failWith
}

func (f *fakeServices) AddComment(_ context.Context, user workspace.User, taskID int64, body string) (*workspace.Comment, error) {
	f.comment = body
	return &workspace.Comment{ID: 1, TaskID: taskID, AuthorID: user.ID, Body: body}, f.failWith
}

func (f *fakeServices) AddMember(_ context.Context, _ workspace.User, projectID, userID int64) error {
	f.member = [2]int64{projectID, userID}
	return f.failWith
}

func (f *fakeServices) ListComments(_ context.Context, user workspace.User, taskID int64) ([]workspace.Comment, error) {
	return []workspace.Comment{{ID: 1, TaskID: taskID, AuthorID: user.ID, Body: f.comment}}, f.failWith
}

var errBoom = errors.New("boom")

func newTestRegistry(t *testing.T) (*Registry, *fakeServices) {
	t.Helper()
	f := &fakeServices{}
	r, err := NewDefaultRegistry(Services{Tasks: f, Projects: f, Sprints: f, Comments: f})
	require.NoError(t, err)
	return r, f
}

var testUser = workspace.User{ID: 7, Name: "Анна"}
