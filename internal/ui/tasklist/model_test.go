package tasklist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romanslonov/todoapp/internal/keys"
	"github.com/romanslonov/todoapp/internal/model"
)

func newTestModel() Model {
	return New(keys.DefaultKeyMap(), 80, 24)
}

func TestSetTasksOrdersCompletedLast(t *testing.T) {
	m := newTestModel()
	m.SetTasks([]model.Task{
		{ID: "a", Status: model.StatusCompleted},
		{ID: "b", Status: model.StatusActive},
		{ID: "c", Status: model.StatusExpired},
		{ID: "d", Status: model.StatusCompleted},
	})

	got := make([]string, len(m.tasks))
	for i, task := range m.tasks {
		got[i] = task.ID
	}
	assert.Equal(t, []string{"b", "c", "a", "d"}, got)
}

func TestSetTasksClampsCursor(t *testing.T) {
	m := newTestModel()
	m.SetTasks([]model.Task{
		{ID: "a", Status: model.StatusActive},
		{ID: "b", Status: model.StatusActive},
		{ID: "c", Status: model.StatusActive},
	})
	m.cursor = 2

	m.SetTasks([]model.Task{{ID: "a", Status: model.StatusActive}})

	selected, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, "a", selected.ID)
}

func TestSelectedEmptyList(t *testing.T) {
	m := newTestModel()

	_, ok := m.Selected()
	assert.False(t, ok)

	m.SetTasks(nil)
	_, ok = m.Selected()
	assert.False(t, ok)
}
