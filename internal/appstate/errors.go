package appstate

import "errors"

var (
	// ErrNotFound is returned by a PreferencesRepo that holds nothing for the profile.
	ErrNotFound = errors.New("preferences not found")
	// ErrInvalidTheme rejects unknown themes.
	ErrInvalidTheme = errors.New("invalid theme")
	// ErrInvalidRefreshInterval rejects refresh intervals below MinRefreshInterval.
	ErrInvalidRefreshInterval = errors.New("refresh interval must be at least 1000ms")
	// ErrHistoryItemNotFound is returned when a history entry does not exist.
	ErrHistoryItemNotFound = errors.New("history item not found")
)
