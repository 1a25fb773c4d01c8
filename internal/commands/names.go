// Package commands is the catalog of domain actions the agent can execute.
//
// Each command is identified by a Name, declares a parameter Schema and is
// bound to a handler at construction time. The Registry is built once and is
// read-only afterwards, so it is safe to share across goroutines.
//
// Validation is the only way to obtain Params, which keeps unvalidated input
// from ever reaching a handler.
package commands

import (
	"strings"
)

// Name identifies a command. Values are canonical upper-case tokens.
type Name string

// None is the sentinel the model returns when no command applies.
const None Name = "NONE"

// Known commands.
const (
	ListTasks        Name = "LIST_TASKS"
	CreateTask       Name = "CREATE_TASK"
	UpdateTaskStatus Name = "UPDATE_TASK_STATUS"
	AssignTask       Name = "ASSIGN_TASK"
	AddComment       Name = "ADD_COMMENT"
	ListComments     Name = "LIST_COMMENTS"
	ListProjects     Name = "LIST_PROJECTS"
	CreateProject    Name = "CREATE_PROJECT"
	AddProjectMember Name = "ADD_PROJECT_MEMBER"
	ListSprints      Name = "LIST_SPRINTS"
	CreateSprint     Name = "CREATE_SPRINT"
	MoveTaskToSprint Name = "MOVE_TASK_TO_SPRINT"
)

// AllNames lists every executable command in catalog order.
var AllNames = []Name{
	ListTasks,
	CreateTask,
	UpdateTaskStatus,
	AssignTask,
	AddComment,
	ListComments,
	ListProjects,
	CreateProject,
	AddProjectMember,
	ListSprints,
	CreateSprint,
	MoveTaskToSprint,
}

// String returns the canonical token.
func (n Name) String() string { return string(n) }

// ToolName is the lower-case form used for MCP tool names.
func (n Name) ToolName() string { return strings.ToLower(string(n)) }

// Normalize turns loosely formatted model output ("list-tasks", "`Create Task`")
// into canonical token form. It does not check that the token is known.
func Normalize(raw string) Name {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "`\"'.,:;!*[]() \t\r\n")
	s = strings.ToUpper(s)

	var b strings.Builder
	prevSep := false
	for _, r := range s {
		switch {
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			prevSep = false
		case r == ' ' || r == '-' || r == '_':
			if !prevSep && b.Len() > 0 {
				b.WriteByte('_')
				prevSep = true
			}
		default:
			// Anything else means this is prose, not a token.
			return ""
		}
	}
	return Name(strings.TrimRight(b.String(), "_"))
}
