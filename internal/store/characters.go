package store

import (
	"cmp"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/tbourn/character-hub/internal/domain"
)

// CreateCharacter registers a new character, filling defaults, folding its
// tags into the index and counting it on the user's stats.
func (s *Store) CreateCharacter(in domain.CharacterInput) *domain.Character {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c := &domain.Character{
		ID:          s.newID(prefixCharacter),
		Name:        in.Name,
		Category:    in.Category,
		Personality: in.Personality,
		Scenario:    in.Scenario,
		Greeting:    in.Greeting,
		Examples:    in.Examples,
		Description: in.Description,
		Tags:        copyStrings(in.Tags),
		Creator:     in.Creator,
		IsNSFW:      in.IsNSFW,
		Visibility:  in.Visibility,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if c.Creator == "" {
		c.Creator = domain.DefaultUserID
	}
	if c.Visibility == "" {
		c.Visibility = domain.VisibilityPrivate
	}
	if in.Avatar != nil {
		c.Avatar = *in.Avatar
	} else {
		c.Avatar = s.generateAvatar(in.Name)
	}

	s.characters.put(c.ID, c)
	s.tags.add(c.Tags...)
	s.defaultUserLocked().Stats.CharactersCreated++
	return c.Clone()
}

// UpdateCharacter applies p to the character and refreshes UpdatedAt.
func (s *Store) UpdateCharacter(id string, p domain.CharacterPatch) (*domain.Character, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.characters.get(id)
	if !ok {
		return nil, ErrCharacterNotFound
	}
	setIf(&c.Name, p.Name)
	setIf(&c.Category, p.Category)
	setIf(&c.Personality, p.Personality)
	setIf(&c.Scenario, p.Scenario)
	setIf(&c.Greeting, p.Greeting)
	setIf(&c.Examples, p.Examples)
	setIf(&c.Description, p.Description)
	setIf(&c.Avatar, p.Avatar)
	setIf(&c.IsNSFW, p.IsNSFW)
	setIf(&c.Visibility, p.Visibility)
	setIf(&c.Stats.Rating, p.Rating)
	if p.Tags != nil {
		c.Tags = copyStrings(*p.Tags)
		s.tags.add(c.Tags...)
	}
	c.UpdatedAt = s.now()
	return c.Clone(), nil
}

// DeleteCharacter removes the character together with every chat it takes
// part in and every message of those chats. Scenario member lists drop the id.
func (s *Store) DeleteCharacter(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.characters.get(id); !ok {
		return ErrCharacterNotFound
	}

	var doomed []string
	s.chats.each(func(chatID string, ch *domain.Chat) bool {
		if ch.HasParticipant(id) {
			doomed = append(doomed, chatID)
		}
		return true
	})
	for _, chatID := range doomed {
		s.deleteChatLocked(chatID)
	}
	s.scenarios.each(func(_ string, sc *domain.Scenario) bool {
		sc.Characters = slices.DeleteFunc(sc.Characters, func(c string) bool { return c == id })
		return true
	})
	s.characters.remove(id)
	return nil
}

// GetCharacter returns a copy of the character.
func (s *Store) GetCharacter(id string) (*domain.Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.characters.get(id)
	if !ok {
		return nil, ErrCharacterNotFound
	}
	return c.Clone(), nil
}

// LikeCharacter increments the character's like counter.
func (s *Store) LikeCharacter(id string) (*domain.Character, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.characters.get(id)
	if !ok {
		return nil, ErrCharacterNotFound
	}
	c.Stats.Likes++
	return c.Clone(), nil
}

// ListCharacters returns the characters matching f, sorted by f.SortBy.
// Sorting is stable, so ties keep insertion order.
func (s *Store) ListCharacters(f domain.CharacterFilter) []domain.Character {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listCharactersLocked(f)
}

func (s *Store) listCharactersLocked(f domain.CharacterFilter) []domain.Character {
	search := lower(f.Search)
	wantTags := make([]string, 0, len(f.Tags))
	for _, t := range f.Tags {
		wantTags = append(wantTags, lower(t))
	}

	out := make([]domain.Character, 0, s.characters.len())
	s.characters.each(func(_ string, c *domain.Character) bool {
		if search != "" && !characterMatches(c, search) {
			return true
		}
		if f.Category != "" && f.Category != "all" && string(c.Category) != f.Category {
			return true
		}
		if !hasAllTags(c.Tags, wantTags) {
			return true
		}
		if f.NSFW != nil && c.IsNSFW != *f.NSFW {
			return true
		}
		out = append(out, *c.Clone())
		return true
	})

	switch f.SortBy {
	case domain.SortByName:
		col := collate.New(language.English)
		slices.SortStableFunc(out, func(a, b domain.Character) int {
			return col.CompareString(a.Name, b.Name)
		})
	case domain.SortByCreated:
		slices.SortStableFunc(out, func(a, b domain.Character) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	case domain.SortByPopular:
		slices.SortStableFunc(out, func(a, b domain.Character) int {
			return cmp.Compare(b.Stats.Chats, a.Stats.Chats)
		})
	case domain.SortByRating:
		slices.SortStableFunc(out, func(a, b domain.Character) int {
			return cmp.Compare(b.Stats.Rating, a.Stats.Rating)
		})
	}
	return out
}

// characterMatches reports whether the lowered query occurs in the name,
// description or any tag.
func characterMatches(c *domain.Character, q string) bool {
	if containsFold(c.Name, q) || containsFold(c.Description, q) {
		return true
	}
	for _, t := range c.Tags {
		if containsFold(t, q) {
			return true
		}
	}
	return false
}

// hasAllTags reports whether every lowered tag in want is present in have.
func hasAllTags(have, want []string) bool {
	for _, w := range want {
		if !slices.ContainsFunc(have, func(h string) bool { return lower(h) == w }) {
			return false
		}
	}
	return true
}

// setIf assigns *src to *dst when src is non-nil.
func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
