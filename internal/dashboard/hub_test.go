package dashboard

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"video-dashboard/internal/jobs"
)

func TestLiveStreamSendsCurrentThenUpdates(t *testing.T) {
	h := newHarness(t)
	h.backend.script("job-ws", jobs.Job{ID: "job-ws", Status: jobs.StatusProcessing}, completedJob("job-ws"))

	srv := httptest.NewServer(h.router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/current"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var first Event
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read initial event: %v", err)
	}
	if first.Type != EventCurrent {
		t.Fatalf("expected initial %q event, got %q", EventCurrent, first.Type)
	}

	waitFor(t, "client registration", func() bool { return h.hub.Clients() == 1 })
	h.svc.Watch("job-ws")

	seen := map[string]bool{}
	for !seen[EventCompleted] {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read event (seen %v): %v", seen, err)
		}
		if ev.JobID != "job-ws" {
			t.Fatalf("unexpected job id %q in %s event", ev.JobID, ev.Type)
		}
		seen[ev.Type] = true
	}
	if !seen[EventCurrent] || !seen[EventSnapshot] {
		t.Fatalf("expected current and snapshot events before completion, saw %v", seen)
	}
}

func TestPublishOnNilHubIsNoop(t *testing.T) {
	var h *Hub
	h.Publish(Event{Type: EventSnapshot})
}

func TestHubRejectsUnknownOrigin(t *testing.T) {
	hub := NewHub([]string{"http://localhost:3000"})
	req := httptest.NewRequest("GET", "/ws/current", nil)
	req.Header.Set("Origin", "http://evil.test")
	if hub.upgrader.CheckOrigin(req) {
		t.Fatalf("expected origin to be rejected")
	}
	req.Header.Set("Origin", "http://localhost:3000")
	if !hub.upgrader.CheckOrigin(req) {
		t.Fatalf("expected origin to be allowed")
	}
}

func TestPublishDropsSnapshotsWhenBackedUp(t *testing.T) {
	hub := NewHub(nil)
	for i := 0; i < cap(hub.broadcast); i++ {
		hub.Publish(Event{Type: EventSnapshot})
	}

	returned := make(chan struct{})
	go func() {
		hub.Publish(Event{Type: EventSnapshot, JobID: "extra"})
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatalf("snapshot publish blocked on a full hub")
	}
	if got := len(hub.broadcast); got != cap(hub.broadcast) {
		t.Fatalf("expected %d queued events, got %d", cap(hub.broadcast), got)
	}
}

func TestPublishKeepsCompletedWhenBackedUp(t *testing.T) {
	hub := NewHub(nil)
	for i := 0; i < cap(hub.broadcast); i++ {
		hub.Publish(Event{Type: EventSnapshot})
	}

	returned := make(chan struct{})
	go func() {
		hub.Publish(Event{Type: EventCompleted, JobID: "job-done"})
		close(returned)
	}()

	select {
	case <-returned:
		t.Fatalf("completed event returned before there was room for it")
	case <-time.After(50 * time.Millisecond):
	}

	<-hub.broadcast
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatalf("completed event was not queued once room freed up")
	}

	var last Event
	for len(hub.broadcast) > 0 {
		if err := json.Unmarshal(<-hub.broadcast, &last); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	if last.Type != EventCompleted || last.JobID != "job-done" {
		t.Fatalf("expected completed event at the tail, got %+v", last)
	}
}
