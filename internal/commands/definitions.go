package commands

import (
	"context"
	"fmt"

	"github.com/HendryAvila/taskpilot/internal/workspace"
)

// TaskService is the task-side of the domain the handlers act on.
type TaskService interface {
	ListTasks(ctx context.Context, user workspace.User, filter workspace.TaskFilter) ([]workspace.Task, error)
	CreateTask(ctx context.Context, user workspace.User, in workspace.CreateTaskInput) (*workspace.Task, error)
	UpdateTaskStatus(ctx context.Context, user workspace.User, taskID int64, status string) (*workspace.Task, error)
	AssignTask(ctx context.Context, user workspace.User, taskID, assigneeID int64) (*workspace.Task, error)
	MoveTaskToSprint(ctx context.Context, user workspace.User, taskID, sprintID int64) (*workspace.Task, error)
}

// ProjectService manages projects.
type ProjectService interface {
	ListProjects(ctx context.Context, user workspace.User) ([]workspace.Project, error)
	CreateProject(ctx context.Context, user workspace.User, in workspace.CreateProjectInput) (*workspace.Project, error)
	AddMember(ctx context.Context, user workspace.User, projectID, userID int64) error
}

// SprintService manages sprints.
type SprintService interface {
	ListSprints(ctx context.Context, user workspace.User, projectID int64, status string) ([]workspace.Sprint, error)
	CreateSprint(ctx context.Context, user workspace.User, in workspace.CreateSprintInput) (*workspace.Sprint, error)
}

// CommentService manages task comments.
type CommentService interface {
	AddComment(ctx context.Context, user workspace.User, taskID int64, body string) (*workspace.Comment, error)
	ListComments(ctx context.Context, user workspace.User, taskID int64) ([]workspace.Comment, error)
}

// Services bundles the dependencies of the built-in commands.
type Services struct {
	Tasks    TaskService
	Projects ProjectService
	Sprints  SprintService
	Comments CommentService
}

// NewDefaultRegistry builds the registry of all built-in commands.
func NewDefaultRegistry(svc Services) (*Registry, error) {
	if svc.Tasks == nil || svc.Projects == nil || svc.Sprints == nil || svc.Comments == nil {
		return nil, fmt.Errorf("commands: all services are required")
	}
	return NewRegistry(Definitions(svc)...)
}

// Definitions returns the built-in command descriptors bound to svc.
func Definitions(svc Services) []Descriptor {
	return []Descriptor{
		{
			Name:        ListTasks,
			Description: "List tasks visible to the user, optionally filtered by project, sprint or status.",
			Schema: Schema{
				{Name: "project_id", Type: TypeInteger, Description: "Only tasks of this project"},
				{Name: "sprint_id", Type: TypeInteger, Description: "Only tasks of this sprint"},
				{Name: "status", Type: TypeString, Allowed: workspace.TaskStatuses, Description: "Only tasks in this status"},
				{Name: "only_mine", Type: TypeBoolean, Description: "Only tasks assigned to the user"},
				{Name: "limit", Type: TypeInteger, Description: "Maximum number of tasks"},
			},
			Handler: func(ctx context.Context, p Params, user workspace.User) (any, error) {
				return svc.Tasks.ListTasks(ctx, user, workspace.TaskFilter{
					ProjectID: p.Int("project_id"),
					SprintID:  p.Int("sprint_id"),
					Status:    p.String("status"),
					OnlyMine:  p.Bool("only_mine"),
					Limit:     int(p.Int("limit")),
				})
			},
		},
		{
			Name:        CreateTask,
			Description: "Create a new task, optionally assigning it and placing it in a sprint.",
			Schema: Schema{
				{Name: "title", Type: TypeString, Required: true, Description: "Task title"},
				{Name: "description", Type: TypeString, Description: "Task details"},
				{Name: "project_id", Type: TypeInteger, Description: "Project to create the task in; defaults to the user's latest project"},
				{Name: "sprint_id", Type: TypeInteger, Description: "Sprint to place the task in"},
				{Name: "priority", Type: TypeString, Allowed: workspace.Priorities, Description: "Task priority"},
				{Name: "assign_to_me", Type: TypeBoolean, Description: "Assign the task to the requesting user"},
				{Name: "assignee_id", Type: TypeInteger, Description: "Assign the task to this user"},
				{Name: "due_date", Type: TypeDate, Description: "Due date"},
			},
			Handler: func(ctx context.Context, p Params, user workspace.User) (any, error) {
				return svc.Tasks.CreateTask(ctx, user, workspace.CreateTaskInput{
					Title:       p.String("title"),
					Description: p.String("description"),
					ProjectID:   p.Int("project_id"),
					SprintID:    p.Int("sprint_id"),
					Priority:    p.String("priority"),
					AssigneeID:  p.Int("assignee_id"),
					AssignToMe:  p.Bool("assign_to_me"),
					DueDate:     p.String("due_date"),
				})
			},
		},
		{
			Name:        UpdateTaskStatus,
			Description: "Change the status of a task.",
			Schema: Schema{
				{Name: "task_id", Type: TypeInteger, Required: true, Description: "Task to update"},
				{Name: "status", Type: TypeString, Required: true, Allowed: workspace.TaskStatuses, Description: "New status"},
			},
			Handler: func(ctx context.Context, p Params, user workspace.User) (any, error) {
				return svc.Tasks.UpdateTaskStatus(ctx, user, p.Int("task_id"), p.String("status"))
			},
		},
		{
			Name:        AssignTask,
			Description: "Assign a task to a user or to the requesting user.",
			Schema: Schema{
				{Name: "task_id", Type: TypeInteger, Required: true, Description: "Task to assign"},
				{Name: "assignee_id", Type: TypeInteger, Description: "User to assign the task to"},
				{Name: "assign_to_me", Type: TypeBoolean, Description: "Assign the task to the requesting user"},
			},
			Handler: func(ctx context.Context, p Params, user workspace.User) (any, error) {
				assignee := p.Int("assignee_id")
				if p.Bool("assign_to_me") {
					assignee = user.ID
				}
				if assignee == 0 {
					return nil, fmt.Errorf("%w: either assignee_id or assign_to_me is required", workspace.ErrInvalid)
				}
				return svc.Tasks.AssignTask(ctx, user, p.Int("task_id"), assignee)
			},
		},
		{
			Name:        AddComment,
			Description: "Add a comment to a task.",
			Schema: Schema{
				{Name: "task_id", Type: TypeInteger, Required: true, Description: "Task to comment on"},
				{Name: "text", Type: TypeString, Required: true, Description: "Comment text"},
			},
			Handler: func(ctx context.Context, p Params, user workspace.User) (any, error) {
				return svc.Comments.AddComment(ctx, user, p.Int("task_id"), p.String("text"))
			},
		},
		{
			Name:        ListComments,
			Description: "List the comments of a task, oldest first.",
			Schema: Schema{
				{Name: "task_id", Type: TypeInteger, Required: true, Description: "Task whose comments to list"},
			},
			Handler: func(ctx context.Context, p Params, user workspace.User) (any, error) {
				return svc.Comments.ListComments(ctx, user, p.Int("task_id"))
			},
		},
		{
			Name:        ListProjects,
			Description: "List the projects the user is a member of.",
			Handler: func(ctx context.Context, _ Params, user workspace.User) (any, error) {
				return svc.Projects.ListProjects(ctx, user)
			},
		},
		{
			Name:        CreateProject,
			Description: "Create a new project owned by the user.",
			Schema: Schema{
				{Name: "name", Type: TypeString, Required: true, Description: "Project name"},
				{Name: "description", Type: TypeString, Description: "Project description"},
			},
			Handler: func(ctx context.Context, p Params, user workspace.User) (any, error) {
				return svc.Projects.CreateProject(ctx, user, workspace.CreateProjectInput{
					Name:        p.String("name"),
					Description: p.String("description"),
				})
			},
		},
		{
			Name:        AddProjectMember,
			Description: "Give another user access to a project the user belongs to.",
			Schema: Schema{
				{Name: "project_id", Type: TypeInteger, Required: true, Description: "Project to share"},
				{Name: "user_id", Type: TypeInteger, Required: true, Description: "User to add"},
			},
			Handler: func(ctx context.Context, p Params, user workspace.User) (any, error) {
				m := workspace.Membership{ProjectID: p.Int("project_id"), UserID: p.Int("user_id")}
				if err := svc.Projects.AddMember(ctx, user, m.ProjectID, m.UserID); err != nil {
					return nil, err
				}
				return &m, nil
			},
		},
		{
			Name:        ListSprints,
			Description: "List sprints, optionally for one project or in one status.",
			Schema: Schema{
				{Name: "project_id", Type: TypeInteger, Description: "Only sprints of this project"},
				{Name: "status", Type: TypeString, Allowed: workspace.SprintStatuses, Description: "Only sprints in this status"},
			},
			Handler: func(ctx context.Context, p Params, user workspace.User) (any, error) {
				return svc.Sprints.ListSprints(ctx, user, p.Int("project_id"), p.String("status"))
			},
		},
		{
			Name:        CreateSprint,
			Description: "Create a sprint in a project.",
			Schema: Schema{
				{Name: "project_id", Type: TypeInteger, Required: true, Description: "Project of the sprint"},
				{Name: "name", Type: TypeString, Required: true, Description: "Sprint name"},
				{Name: "start_date", Type: TypeDate, Description: "First day"},
				{Name: "end_date", Type: TypeDate, Description: "Last day"},
			},
			Handler: func(ctx context.Context, p Params, user workspace.User) (any, error) {
				return svc.Sprints.CreateSprint(ctx, user, workspace.CreateSprintInput{
					ProjectID: p.Int("project_id"),
					Name:      p.String("name"),
					StartDate: p.String("start_date"),
					EndDate:   p.String("end_date"),
				})
			},
		},
		{
			Name:        MoveTaskToSprint,
			Description: "Move a task into another sprint.",
			Schema: Schema{
				{Name: "task_id", Type: TypeInteger, Required: true, Description: "Task to move"},
				{Name: "sprint_id", Type: TypeInteger, Required: true, Description: "Destination sprint"},
			},
			Handler: func(ctx context.Context, p Params, user workspace.User) (any, error) {
				return svc.Tasks.MoveTaskToSprint(ctx, user, p.Int("task_id"), p.Int("sprint_id"))
			},
		},
	}
}
