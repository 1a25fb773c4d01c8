package agent_test

import (
	"testing"

	"github.com/HendryAvila/taskpilot/internal/agent"
	"github.com/HendryAvila/taskpilot/internal/commands"
	"github.com/HendryAvila/taskpilot/internal/workspace"
	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	assert.NotEmpty(t, agent.Summarize(nil))

	results := []agent.CommandResult{
		{Command: commands.ListTasks, Success: true, Payload: []workspace.Task{{ID: 1}, {ID: 2}, {ID: 3}}},
		{Command: commands.CreateTask, Success: true, Payload: &workspace.Task{ID: 9}},
		{Command: commands.UpdateTaskStatus, ErrorKind: agent.ErrorKindValidation, Error: "status is required"},
		{Command: commands.AssignTask, ErrorKind: agent.ErrorKindExecution, Error: "task 5: not found"},
	}
	want := "LIST_TASKS completed: 3 item(s).\n" +
		"CREATE_TASK completed.\n" +
		"UPDATE_TASK_STATUS was not run because its parameters are invalid: status is required.\n" +
		"ASSIGN_TASK failed: task 5: not found."

	got := agent.Summarize(results)
	assert.Equal(t, want, got)
	assert.Equal(t, got, agent.Summarize(results), "summary must be deterministic")
}
