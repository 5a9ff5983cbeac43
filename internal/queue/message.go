package queue

import (
	"encoding/json"
	"time"

	"video-dashboard/internal/jobs"
)

// MessageVersion is the payload version written by this service.
const MessageVersion = 1

// EventJobFinished is the type of a notification emitted when a watched job reaches a terminal status.
const EventJobFinished = "job.finished"

// Message is the payload sent to downstream notification consumers.
type Message struct {
	Type         string `json:"type"`
	JobID        string `json:"jobId"`
	Status       string `json:"status"`
	InstagramURL string `json:"instagramUrl,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	CompletedAt  string `json:"completedAt,omitempty"`
	EnqueuedAt   string `json:"enqueuedAt"`
	Version      int    `json:"version"`
}

// JobFinished builds the notification for a terminal job snapshot.
func JobFinished(job jobs.Job, instagramURL string, now time.Time) Message {
	msg := Message{
		Type:         EventJobFinished,
		JobID:        job.ID,
		Status:       job.Status.String(),
		InstagramURL: instagramURL,
		ErrorMessage: job.ErrorMessage,
		EnqueuedAt:   now.UTC().Format(time.RFC3339),
		Version:      MessageVersion,
	}
	if job.CompletedAt != nil {
		msg.CompletedAt = job.CompletedAt.UTC().Format(time.RFC3339)
	}
	return msg
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
