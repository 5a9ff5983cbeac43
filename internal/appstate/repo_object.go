package appstate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"

	"video-dashboard/internal/shared/storage/object"
	"video-dashboard/internal/shared/util"
)

const preferencesPrefix = "preferences"

// ObjectRepo stores preferences as one JSON document per profile in an object store (local disk or S3).
type ObjectRepo struct {
	Store object.ObjectStore
}

func (r *ObjectRepo) Load(ctx context.Context, profile string) (Preferences, error) {
	rc, err := r.Store.Open(ctx, preferencesKey(profile))
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return Preferences{}, ErrNotFound
		}
		return Preferences{}, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return Preferences{}, fmt.Errorf("read preferences: %w", err)
	}
	var prefs Preferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		return Preferences{}, fmt.Errorf("decode preferences: %w", err)
	}
	return prefs, nil
}

func (r *ObjectRepo) Save(ctx context.Context, profile string, prefs Preferences) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if _, err := r.Store.Put(ctx, preferencesKey(profile), "application/json", bytes.NewReader(data)); err != nil {
		return fmt.Errorf("put preferences: %w", err)
	}
	return nil
}

func preferencesKey(profile string) string {
	return path.Join(preferencesPrefix, util.HashKey(profile)+".json")
}
