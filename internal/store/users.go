package store

import (
	"slices"

	"github.com/tbourn/character-hub/internal/domain"
)

// Tags returns the tag index sorted lexicographically.
func (s *Store) Tags() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := copyStrings(s.tags.order)
	slices.Sort(out)
	return out
}

// User returns a copy of the singleton user.
func (s *Store) User() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.defaultUserLocked().Clone()
}

// UserStats returns the singleton user's counters.
func (s *Store) UserStats() domain.UserStats {
	return s.User().Stats
}

// UpdatePreferences applies p to the singleton user's preferences.
func (s *Store) UpdatePreferences(p domain.PreferencesPatch) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.defaultUserLocked()
	setIf(&u.Preferences.Theme, p.Theme)
	setIf(&u.Preferences.Language, p.Language)
	setIf(&u.Preferences.NSFWEnabled, p.NSFWEnabled)
	setIf(&u.Preferences.AutoSave, p.AutoSave)
	return u.Clone()
}

// AutoSaveEnabled reports the user's autosave preference.
func (s *Store) AutoSaveEnabled() bool {
	return s.User().Preferences.AutoSave
}
