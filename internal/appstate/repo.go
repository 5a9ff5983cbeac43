package appstate

import "context"

// PreferencesRepo loads and saves the persisted subset of the dashboard state per profile.
type PreferencesRepo interface {
	Load(ctx context.Context, profile string) (Preferences, error)
	Save(ctx context.Context, profile string, prefs Preferences) error
}
