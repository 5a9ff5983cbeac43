package appstate

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Load(ctx context.Context, profile string) (Preferences, error) {
	const query = `
SELECT preferences
FROM dashboard_preferences
WHERE profile = $1
LIMIT 1`
	var raw []byte
	if err := r.DB.QueryRowContext(ctx, query, profile).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Preferences{}, ErrNotFound
		}
		return Preferences{}, err
	}
	var prefs Preferences
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return Preferences{}, fmt.Errorf("decode preferences: %w", err)
	}
	return prefs, nil
}

func (r *PGRepo) Save(ctx context.Context, profile string, prefs Preferences) error {
	const query = `
INSERT INTO dashboard_preferences (profile, preferences, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (profile) DO UPDATE SET
  preferences = EXCLUDED.preferences,
  updated_at = now()`
	raw, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	_, err = r.DB.ExecContext(ctx, query, profile, raw)
	return err
}
