package appstate

import (
	"video-dashboard/internal/jobs"
)

// Theme is the dashboard color scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Valid reports whether t is a supported theme.
func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

const (
	// DefaultRefreshInterval is how often the UI refreshes lists and stats, in milliseconds.
	DefaultRefreshInterval = 5000
	// MinRefreshInterval bounds RefreshInterval from below, in milliseconds.
	MinRefreshInterval = 1000
	// MaxHistory caps the number of remembered submissions.
	MaxHistory = 100
)

// Settings are the user-tunable dashboard options.
type Settings struct {
	AutoRefresh         bool   `json:"auto_refresh"`
	RefreshInterval     int    `json:"refresh_interval"`
	DefaultAnalysisType string `json:"default_analysis_type"`
	Notifications       bool   `json:"notifications"`
	TolerantSections    bool   `json:"tolerant_sections"`
}

// DefaultSettings returns the settings used on first start and after Reset.
func DefaultSettings() Settings {
	return Settings{
		AutoRefresh:         true,
		RefreshInterval:     DefaultRefreshInterval,
		DefaultAnalysisType: jobs.DefaultAnalysisType,
		Notifications:       true,
	}
}

// SettingsPatch updates only the non-nil fields.
type SettingsPatch struct {
	AutoRefresh         *bool   `json:"auto_refresh,omitempty"`
	RefreshInterval     *int    `json:"refresh_interval,omitempty"`
	DefaultAnalysisType *string `json:"default_analysis_type,omitempty"`
	Notifications       *bool   `json:"notifications,omitempty"`
	TolerantSections    *bool   `json:"tolerant_sections,omitempty"`
}

func (p SettingsPatch) apply(s Settings) (Settings, error) {
	if p.AutoRefresh != nil {
		s.AutoRefresh = *p.AutoRefresh
	}
	if p.RefreshInterval != nil {
		if *p.RefreshInterval < MinRefreshInterval {
			return Settings{}, ErrInvalidRefreshInterval
		}
		s.RefreshInterval = *p.RefreshInterval
	}
	if p.DefaultAnalysisType != nil {
		t, err := jobs.NormalizeAnalysisType(*p.DefaultAnalysisType)
		if err != nil {
			return Settings{}, err
		}
		s.DefaultAnalysisType = t
	}
	if p.Notifications != nil {
		s.Notifications = *p.Notifications
	}
	if p.TolerantSections != nil {
		s.TolerantSections = *p.TolerantSections
	}
	return s, nil
}

// PreferencesPatch changes the UI preferences and settings together.
// SidebarOpen wins over ToggleSidebar when both are set.
type PreferencesPatch struct {
	Theme         *Theme         `json:"theme"`
	SidebarOpen   *bool          `json:"sidebar_open"`
	ToggleSidebar bool           `json:"toggle_sidebar"`
	Settings      *SettingsPatch `json:"settings"`
}

func (p PreferencesPatch) apply(prefs Preferences) (Preferences, error) {
	if p.Theme != nil {
		if !p.Theme.Valid() {
			return Preferences{}, ErrInvalidTheme
		}
		prefs.Theme = *p.Theme
	}
	if p.Settings != nil {
		settings, err := p.Settings.apply(prefs.Settings)
		if err != nil {
			return Preferences{}, err
		}
		prefs.Settings = settings
	}
	switch {
	case p.SidebarOpen != nil:
		prefs.SidebarOpen = *p.SidebarOpen
	case p.ToggleSidebar:
		prefs.SidebarOpen = !prefs.SidebarOpen
	}
	return prefs, nil
}

// Preferences is the persisted subset of the dashboard state.
type Preferences struct {
	Theme       Theme          `json:"theme"`
	SidebarOpen bool           `json:"sidebar_open"`
	History     []jobs.Summary `json:"history"`
	Settings    Settings       `json:"settings"`
}

// DefaultPreferences returns the initial persisted state.
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:       ThemeLight,
		SidebarOpen: true,
		History:     []jobs.Summary{},
		Settings:    DefaultSettings(),
	}
}

// normalize repairs values that a stored blob may carry from an older or hand-edited save.
func (p Preferences) normalize() Preferences {
	def := DefaultPreferences()
	if !p.Theme.Valid() {
		p.Theme = def.Theme
	}
	if p.History == nil {
		p.History = []jobs.Summary{}
	}
	if len(p.History) > MaxHistory {
		p.History = p.History[:MaxHistory]
	}
	if p.Settings.RefreshInterval < MinRefreshInterval {
		p.Settings.RefreshInterval = def.Settings.RefreshInterval
	}
	if t, err := jobs.NormalizeAnalysisType(p.Settings.DefaultAnalysisType); err == nil {
		p.Settings.DefaultAnalysisType = t
	} else {
		p.Settings.DefaultAnalysisType = def.Settings.DefaultAnalysisType
	}
	return p
}

func (p Preferences) clone() Preferences {
	p.History = append([]jobs.Summary(nil), p.History...)
	if p.History == nil {
		p.History = []jobs.Summary{}
	}
	return p
}

// State is the full dashboard state: the persisted preferences plus the
// session-only view of the job currently being watched.
type State struct {
	Preferences
	CurrentJobID    string               `json:"current_job_id,omitempty"`
	CurrentJob      *jobs.Job            `json:"current_job,omitempty"`
	CurrentError    string               `json:"current_error,omitempty"`
	CurrentAnalysis *jobs.AnalysisResult `json:"current_analysis,omitempty"`
	SystemStats     *jobs.SystemStats    `json:"system_stats,omitempty"`
}

// HistoryUpdate changes the non-nil fields of one history entry.
type HistoryUpdate struct {
	Status       *jobs.Status
	CompletedAt  *jobs.Timestamp
	ErrorMessage *string
}

func (u HistoryUpdate) apply(s jobs.Summary) (jobs.Summary, bool) {
	changed := false
	if u.Status != nil && *u.Status != s.Status {
		s.Status = *u.Status
		changed = true
	}
	if u.CompletedAt != nil && (s.CompletedAt == nil || !s.CompletedAt.Equal(u.CompletedAt.Time)) {
		at := *u.CompletedAt
		s.CompletedAt = &at
		changed = true
	}
	if u.ErrorMessage != nil && *u.ErrorMessage != s.ErrorMessage {
		s.ErrorMessage = *u.ErrorMessage
		changed = true
	}
	return s, changed
}
