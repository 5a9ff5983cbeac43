package queue

import (
	"context"

	"video-dashboard/internal/shared/telemetry"
)

// Client sends messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// LogClient only logs messages. It is used when no queue is configured.
type LogClient struct{}

// Send logs the notification.
func (LogClient) Send(_ context.Context, msg Message) error {
	telemetry.Info("notify.job", map[string]any{
		"job_id": msg.JobID,
		"status": msg.Status,
		"error":  msg.ErrorMessage,
	})
	return nil
}

var _ Client = LogClient{}
