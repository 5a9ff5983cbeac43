package appstate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"video-dashboard/internal/jobs"
	"video-dashboard/internal/shared/storage/object/local"
)

func TestObjectRepoRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := &ObjectRepo{Store: local.New(t.TempDir())}

	if _, err := repo.Load(ctx, "alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	prefs := DefaultPreferences()
	prefs.Theme = ThemeDark
	prefs.History = []jobs.Summary{{JobID: "j1", Status: jobs.StatusPending}}
	if err := repo.Save(ctx, "alice", prefs); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.Load(ctx, "alice")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Theme != ThemeDark || len(got.History) != 1 || got.History[0].JobID != "j1" {
		t.Fatalf("unexpected preferences %+v", got)
	}
}

func TestPreferencesKeyIsHashed(t *testing.T) {
	key := preferencesKey("../../etc")
	if !strings.HasPrefix(key, "preferences/") || strings.Contains(key, "..") || !strings.HasSuffix(key, ".json") {
		t.Fatalf("unexpected key %q", key)
	}
}
