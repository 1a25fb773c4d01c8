// Package workspace holds the project-management domain the agent acts on:
// users, projects, sprints, tasks and comments.
//
// The Store type is a SQLite implementation of the services the command
// registry binds its handlers to. Callers outside this package depend on
// the narrow interfaces declared in internal/commands, not on Store.
package workspace

import "errors"

// Sentinel errors returned by Store.
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrInvalid   = errors.New("invalid input")
)

// Task statuses.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusReview     = "review"
	StatusDone       = "done"
)

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Sprint statuses.
const (
	SprintPlanned   = "planned"
	SprintActive    = "active"
	SprintCompleted = "completed"
)

// TaskStatuses lists task statuses in workflow order.
var TaskStatuses = []string{StatusTodo, StatusInProgress, StatusReview, StatusDone}

// Priorities lists task priorities from lowest to highest.
var Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// SprintStatuses lists sprint lifecycle states.
var SprintStatuses = []string{SprintPlanned, SprintActive, SprintCompleted}

// DateLayout is the calendar date format used for due and sprint dates.
const DateLayout = "2006-01-02"

// User is the identity a request is made on behalf of.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Project groups sprints and tasks. Members can see and change its tasks.
type Project struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	OwnerID     int64  `json:"owner_id"`
	CreatedAt   string `json:"created_at"`
}

// Sprint is a time-boxed iteration inside a project.
type Sprint struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"project_id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

// Task is a unit of work.
type Task struct {
	ID          int64  `json:"id"`
	ProjectID   int64  `json:"project_id"`
	SprintID    *int64 `json:"sprint_id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	AssigneeID  *int64 `json:"assignee_id,omitempty"`
	CreatorID   int64  `json:"creator_id"`
	DueDate     string `json:"due_date,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// Comment is a note on a task.
type Comment struct {
	ID        int64  `json:"id"`
	TaskID    int64  `json:"task_id"`
	AuthorID  int64  `json:"author_id"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
}

// Membership links a user to a project.
type Membership struct {
	ProjectID int64 `json:"project_id"`
	UserID    int64 `json:"user_id"`
}

// TaskFilter narrows ListTasks. Zero values mean "any".
type TaskFilter struct {
	ProjectID int64
	SprintID  int64
	Status    string
	OnlyMine  bool
	Limit     int
}

// CreateTaskInput holds the fields of a new task. When ProjectID is zero the
// user's most recently created project is used.
type CreateTaskInput struct {
	Title       string
	Description string
	ProjectID   int64
	SprintID    int64
	Priority    string
	AssigneeID  int64
	AssignToMe  bool
	DueDate     string
}

// CreateProjectInput holds the fields of a new project.
type CreateProjectInput struct {
	Name        string
	Description string
}

// CreateSprintInput holds the fields of a new sprint.
type CreateSprintInput struct {
	ProjectID int64
	Name      string
	StartDate string
	EndDate   string
}

// StatusCount is the number of visible tasks in one status.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// ProjectOverview is a project together with its sprints.
type ProjectOverview struct {
	Project
	Sprints []Sprint `json:"sprints"`
}
