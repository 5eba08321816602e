package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/romanslonov/todoapp/internal/model"
)

func TestNextStatus(t *testing.T) {
	next, ok := nextStatus(model.Task{Status: model.StatusActive})
	assert.True(t, ok)
	assert.Equal(t, model.StatusCompleted, next)

	next, ok = nextStatus(model.Task{Status: model.StatusCompleted})
	assert.True(t, ok)
	assert.Equal(t, model.StatusActive, next)

	// Expired tasks cannot be toggled.
	_, ok = nextStatus(model.Task{Status: model.StatusExpired})
	assert.False(t, ok)
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "application/pdf", contentTypeFor("report.pdf"))
	assert.Equal(t, "image/png", contentTypeFor("photo.png"))
	assert.Equal(t, "application/octet-stream", contentTypeFor("README"))
}
