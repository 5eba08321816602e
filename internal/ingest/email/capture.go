package email

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/romanslonov/todoapp/internal/model"
	"github.com/romanslonov/todoapp/internal/repository"
)

// Capturer turns flagged mailbox messages into tasks.
type Capturer struct {
	client *Client
	repo   *repository.Repository
	logger *slog.Logger
}

// NewCapturer creates a Capturer over the given client and repository.
func NewCapturer(client *Client, repo *repository.Repository, logger *slog.Logger) *Capturer {
	return &Capturer{client: client, repo: repo, logger: logger}
}

// Run performs a single capture pass: each flagged message becomes a
// task (subject as title, text body as note, attachments carried over)
// and is then unflagged so the next pass skips it. Returns the number
// of tasks created. A failure on one message does not abort the rest.
func (c *Capturer) Run(ctx context.Context, limit int) (int, error) {
	messages, err := c.client.FetchFlagged(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("fetching flagged messages: %w", err)
	}

	created := 0
	for _, msg := range messages {
		payload := payloadFromMessage(msg)

		if _, err := c.repo.Create(ctx, payload); err != nil {
			c.logger.Warn("capturing message failed",
				"uid", msg.UID, "subject", msg.Subject, "error", err)
			continue
		}

		if err := c.client.Unflag(ctx, msg.UID); err != nil {
			// The task exists; a stale flag only risks a duplicate on
			// the next run, which the user can delete.
			c.logger.Warn("unflagging message failed",
				"uid", msg.UID, "error", err)
		}

		created++
	}

	return created, nil
}

// payloadFromMessage maps a mailbox message onto a task payload.
func payloadFromMessage(msg Message) model.TaskPayload {
	title := strings.TrimSpace(msg.Subject)
	if title == "" {
		title = "Mail from " + msg.From
	}

	content := strings.TrimSpace(msg.TextBody)
	if content == "" {
		content = fmt.Sprintf("Captured from %s on %s.",
			msg.From, msg.Date.Format("2 Jan 2006"))
	}

	files := make([]model.FileUpload, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		if a.Filename == "" {
			continue
		}
		files = append(files, model.FileUpload{
			Name:        a.Filename,
			ContentType: a.MIMEType,
			Data:        a.Data,
		})
	}

	return model.TaskPayload{
		Title:   title,
		Content: content,
		Files:   files,
	}
}
