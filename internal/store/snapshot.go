package store

import (
	"github.com/tbourn/character-hub/internal/domain"
	"github.com/tbourn/character-hub/internal/snapshot"
)

// Export returns a point-in-time deep copy of every collection. It never
// fails; two exports without an intervening mutation carry identical data.
func (s *Store) Export() *snapshot.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data := &snapshot.Data{
		Characters: exportCollection(s.characters, (*domain.Character).Clone),
		Chats:      exportCollection(s.chats, (*domain.Chat).Clone),
		Messages:   exportCollection(s.messages, (*domain.Message).Clone),
		Scenarios:  exportCollection(s.scenarios, (*domain.Scenario).Clone),
		Users:      exportCollection(s.users, (*domain.User).Clone),
		Tags:       copyStrings(s.tags.order),
	}
	return snapshot.New(data, s.now())
}

func exportCollection[T any](c *collection[T], clone func(*T) *T) []snapshot.Entry[T] {
	out := make([]snapshot.Entry[T], 0, c.len())
	c.each(func(id string, v *T) bool {
		out = append(out, snapshot.Entry[T]{ID: id, Record: *clone(v)})
		return true
	})
	return out
}

// Import replaces every collection, tag index and users included, with the
// snapshot's contents. It fails with snapshot.ErrInvalidFormat, leaving the
// store untouched, when the snapshot has no data. The default user is
// re-seeded if the snapshot lacks it, and tags found on imported characters
// and scenarios are folded into the index.
func (s *Store) Import(snap *snapshot.Snapshot) error {
	if err := snapshot.Validate(snap); err != nil {
		return err
	}
	d := snap.Data

	characters := newCollection[domain.Character]()
	for _, e := range d.Characters {
		c := e.Record.Clone()
		c.ID = e.ID
		characters.put(e.ID, c)
	}
	chats := newCollection[domain.Chat]()
	for _, e := range d.Chats {
		ch := e.Record.Clone()
		ch.ID = e.ID
		chats.put(e.ID, ch)
	}
	messages := newCollection[domain.Message]()
	for _, e := range d.Messages {
		m := e.Record.Clone()
		m.ID = e.ID
		messages.put(e.ID, m)
	}
	scenarios := newCollection[domain.Scenario]()
	for _, e := range d.Scenarios {
		sc := e.Record.Clone()
		sc.ID = e.ID
		scenarios.put(e.ID, sc)
	}
	users := newCollection[domain.User]()
	for _, e := range d.Users {
		u := e.Record.Clone()
		u.ID = e.ID
		users.put(e.ID, u)
	}
	tags := newTagSet()
	tags.add(d.Tags...)
	characters.each(func(_ string, c *domain.Character) bool { tags.add(c.Tags...); return true })
	scenarios.each(func(_ string, sc *domain.Scenario) bool { tags.add(sc.Tags...); return true })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.characters = characters
	s.chats = chats
	s.messages = messages
	s.scenarios = scenarios
	s.users = users
	s.tags = tags
	s.ensureDefaultUserLocked()
	return nil
}

// Reset drops all data and returns the store to its freshly constructed state.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

// Counts reports the size of every collection.
func (s *Store) Counts() domain.Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.Counts{
		Characters: s.characters.len(),
		Chats:      s.chats.len(),
		Messages:   s.messages.len(),
		Scenarios:  s.scenarios.len(),
		Users:      s.users.len(),
		Tags:       s.tags.len(),
	}
}
