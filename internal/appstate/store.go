// Package appstate holds the dashboard's application state. Only the named
// operations on Store mutate it; the preference subset is saved through a
// PreferencesRepo whenever it changes.
package appstate

import (
	"context"
	"errors"
	"sync"

	"video-dashboard/internal/jobs"
	"video-dashboard/internal/shared/telemetry"
)

// DefaultProfile is used when no preference profile is configured.
const DefaultProfile = "default"

// Store is the single owner of the dashboard state.
type Store struct {
	repo    PreferencesRepo
	profile string

	mu    sync.RWMutex
	state State
	// finished holds ids of jobs seen in a terminal state during this process.
	finished map[string]struct{}

	// saveMu orders writes to repo; each save reads the latest preferences.
	saveMu sync.Mutex
}

// NewStore returns a Store holding default preferences. Call Load to rehydrate.
func NewStore(repo PreferencesRepo, profile string) *Store {
	if repo == nil {
		repo = NewMemoryRepo()
	}
	if profile == "" {
		profile = DefaultProfile
	}
	return &Store{
		repo:     repo,
		profile:  profile,
		state:    State{Preferences: DefaultPreferences()},
		finished: map[string]struct{}{},
	}
}

// Load rehydrates the persisted preferences. A missing record keeps the defaults.
func (s *Store) Load(ctx context.Context) error {
	prefs, err := s.repo.Load(ctx, s.profile)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			telemetry.Info("appstate.load.empty", map[string]any{"profile": s.profile})
			return nil
		}
		return err
	}
	prefs = prefs.normalize()

	s.mu.Lock()
	s.state.Preferences = prefs
	s.mu.Unlock()

	telemetry.Info("appstate.load", map[string]any{
		"profile": s.profile,
		"history": len(prefs.History),
	})
	return nil
}

// Snapshot returns a copy of the whole state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	st.Preferences = st.Preferences.clone()
	return st
}

// Preferences returns a copy of the persisted subset.
func (s *Store) Preferences() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Preferences.clone()
}

// Settings returns the current settings.
func (s *Store) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Settings
}

// CurrentJobID returns the id of the job currently being viewed, or "".
func (s *Store) CurrentJobID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.CurrentJobID
}

// HistoryItem returns the history entry for jobID.
func (s *Store) HistoryItem(jobID string) (jobs.Summary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.state.History {
		if item.JobID == jobID {
			return item, true
		}
	}
	return jobs.Summary{}, false
}

func (s *Store) SetTheme(ctx context.Context, theme Theme) error {
	if !theme.Valid() {
		return ErrInvalidTheme
	}
	s.mu.Lock()
	s.state.Theme = theme
	s.mu.Unlock()
	return s.save(ctx)
}

func (s *Store) SetSidebarOpen(ctx context.Context, open bool) error {
	s.mu.Lock()
	s.state.SidebarOpen = open
	s.mu.Unlock()
	return s.save(ctx)
}

// ToggleSidebar flips the sidebar and returns its new state.
func (s *Store) ToggleSidebar(ctx context.Context) (bool, error) {
	s.mu.Lock()
	s.state.SidebarOpen = !s.state.SidebarOpen
	open := s.state.SidebarOpen
	s.mu.Unlock()
	return open, s.save(ctx)
}

// SetCurrentJob makes jobID the viewed job. Switching to a different job clears
// the previous job's snapshot, error and analysis.
func (s *Store) SetCurrentJob(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.CurrentJobID == jobID {
		return
	}
	s.state.CurrentJobID = jobID
	s.state.CurrentJob = nil
	s.state.CurrentError = ""
	s.state.CurrentAnalysis = nil
}

// ClearCurrent forgets the viewed job.
func (s *Store) ClearCurrent() {
	s.SetCurrentJob("")
}

// SnapshotResult describes what ApplySnapshot did.
type SnapshotResult struct {
	// Applied is false when the snapshot's job is no longer the viewed job.
	Applied bool
	// Dirty reports that the history changed and the preferences need saving.
	Dirty bool
	// WasTerminal reports that the job was already known to be finished before
	// this snapshot, from an earlier snapshot or from its history entry.
	WasTerminal bool
}

// ApplySnapshot records a poll result for the viewed job in memory. The matching
// history entry follows the snapshot's status, completion time and error; when
// it changes the caller persists it with Save. Nothing is written when the job
// is no longer the viewed one.
func (s *Store) ApplySnapshot(job jobs.Job) SnapshotResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.ID == "" || job.ID != s.state.CurrentJobID {
		return SnapshotResult{}
	}
	res := SnapshotResult{Applied: true, WasTerminal: s.knownTerminalLocked(job.ID)}

	snap := job
	s.state.CurrentJob = &snap
	s.state.CurrentError = ""
	if job.Status == jobs.StatusCompleted && job.AnalysisResult != nil {
		s.state.CurrentAnalysis = job.AnalysisResult
	}
	status := job.Status
	update := HistoryUpdate{Status: &status, CompletedAt: job.CompletedAt}
	if job.ErrorMessage != "" {
		msg := job.ErrorMessage
		update.ErrorMessage = &msg
	}
	res.Dirty = s.updateHistoryLocked(job.ID, update)
	if job.Status.IsTerminal() {
		s.finished[job.ID] = struct{}{}
	}
	return res
}

func (s *Store) knownTerminalLocked(jobID string) bool {
	if _, ok := s.finished[jobID]; ok {
		return true
	}
	if cur := s.state.CurrentJob; cur != nil && cur.ID == jobID && cur.Status.IsTerminal() {
		return true
	}
	for _, h := range s.state.History {
		if h.JobID == jobID {
			return h.Status.IsTerminal()
		}
	}
	return false
}

// Save writes the current preferences to the repo.
func (s *Store) Save(ctx context.Context) error {
	return s.save(ctx)
}

// ApplyPollError records a failed poll for jobID while keeping the last snapshot.
func (s *Store) ApplyPollError(jobID string, message string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if jobID == "" || jobID != s.state.CurrentJobID {
		return false
	}
	s.state.CurrentError = message
	return true
}

// AddToHistory puts item first, replacing any entry with the same job id.
func (s *Store) AddToHistory(ctx context.Context, item jobs.Summary) error {
	s.mu.Lock()
	history := make([]jobs.Summary, 0, len(s.state.History)+1)
	history = append(history, item)
	for _, h := range s.state.History {
		if h.JobID != item.JobID {
			history = append(history, h)
		}
	}
	if len(history) > MaxHistory {
		history = history[:MaxHistory]
	}
	s.state.History = history
	s.mu.Unlock()
	return s.save(ctx)
}

// UpdateHistoryItem applies update to the entry for jobID.
func (s *Store) UpdateHistoryItem(ctx context.Context, jobID string, update HistoryUpdate) error {
	s.mu.Lock()
	found := false
	for _, h := range s.state.History {
		if h.JobID == jobID {
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return ErrHistoryItemNotFound
	}
	changed := s.updateHistoryLocked(jobID, update)
	s.mu.Unlock()
	if !changed {
		return nil
	}
	return s.save(ctx)
}

func (s *Store) updateHistoryLocked(jobID string, update HistoryUpdate) bool {
	for i, h := range s.state.History {
		if h.JobID != jobID {
			continue
		}
		next, changed := update.apply(h)
		if !changed {
			return false
		}
		history := append([]jobs.Summary(nil), s.state.History...)
		history[i] = next
		s.state.History = history
		return true
	}
	return false
}

func (s *Store) RemoveFromHistory(ctx context.Context, jobID string) error {
	s.mu.Lock()
	history := make([]jobs.Summary, 0, len(s.state.History))
	for _, h := range s.state.History {
		if h.JobID != jobID {
			history = append(history, h)
		}
	}
	if len(history) == len(s.state.History) {
		s.mu.Unlock()
		return ErrHistoryItemNotFound
	}
	s.state.History = history
	s.mu.Unlock()
	return s.save(ctx)
}

func (s *Store) ClearHistory(ctx context.Context) error {
	s.mu.Lock()
	s.state.History = []jobs.Summary{}
	s.mu.Unlock()
	return s.save(ctx)
}

// SetSystemStats caches the last stats fetched from the backend. It is not persisted.
func (s *Store) SetSystemStats(stats jobs.SystemStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SystemStats = &stats
}

// UpdateSettings merges patch into the settings and returns the result.
func (s *Store) UpdateSettings(ctx context.Context, patch SettingsPatch) (Settings, error) {
	prefs, err := s.UpdatePreferences(ctx, PreferencesPatch{Settings: &patch})
	if err != nil {
		return Settings{}, err
	}
	return prefs.Settings, nil
}

// UpdatePreferences validates the whole patch, applies it and saves once.
// A rejected patch leaves the preferences untouched.
func (s *Store) UpdatePreferences(ctx context.Context, patch PreferencesPatch) (Preferences, error) {
	s.mu.Lock()
	next, err := patch.apply(s.state.Preferences)
	if err != nil {
		s.mu.Unlock()
		return Preferences{}, err
	}
	s.state.Preferences = next
	out := next.clone()
	s.mu.Unlock()
	return out, s.save(ctx)
}

// Reset returns every field, persisted or not, to its initial value.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.state = State{Preferences: DefaultPreferences()}
	s.mu.Unlock()
	return s.save(ctx)
}

func (s *Store) save(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	prefs := s.Preferences()
	if err := s.repo.Save(ctx, s.profile, prefs); err != nil {
		telemetry.Error("appstate.save.failed", map[string]any{
			"profile": s.profile,
			"error":   err.Error(),
		})
		return err
	}
	return nil
}
