package store

import (
	"slices"

	"github.com/tbourn/character-hub/internal/domain"
)

// CreateScenario registers a scenario, folds its tags into the index and
// counts it on the user's stats.
func (s *Store) CreateScenario(in domain.ScenarioInput) *domain.Scenario {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sc := &domain.Scenario{
		ID:          s.newID(prefixScenario),
		Name:        in.Name,
		Description: in.Description,
		Characters:  copyStrings(in.Characters),
		Setting:     in.Setting,
		Objectives:  copyStrings(in.Objectives),
		Rules:       copyStrings(in.Rules),
		Tags:        copyStrings(in.Tags),
		Creator:     in.Creator,
		IsNSFW:      in.IsNSFW,
		Visibility:  in.Visibility,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if sc.Creator == "" {
		sc.Creator = domain.DefaultUserID
	}
	if sc.Visibility == "" {
		sc.Visibility = domain.VisibilityPrivate
	}

	s.scenarios.put(sc.ID, sc)
	s.tags.add(sc.Tags...)
	s.defaultUserLocked().Stats.ScenariosCreated++
	return sc.Clone()
}

// UpdateScenario applies p and refreshes UpdatedAt.
func (s *Store) UpdateScenario(id string, p domain.ScenarioPatch) (*domain.Scenario, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.scenarios.get(id)
	if !ok {
		return nil, ErrScenarioNotFound
	}
	setIf(&sc.Name, p.Name)
	setIf(&sc.Description, p.Description)
	setIf(&sc.Setting, p.Setting)
	setIf(&sc.IsNSFW, p.IsNSFW)
	setIf(&sc.Visibility, p.Visibility)
	setIf(&sc.Stats.Rating, p.Rating)
	if p.Characters != nil {
		sc.Characters = copyStrings(*p.Characters)
	}
	if p.Objectives != nil {
		sc.Objectives = copyStrings(*p.Objectives)
	}
	if p.Rules != nil {
		sc.Rules = copyStrings(*p.Rules)
	}
	if p.Tags != nil {
		sc.Tags = copyStrings(*p.Tags)
		s.tags.add(sc.Tags...)
	}
	sc.UpdatedAt = s.now()
	return sc.Clone(), nil
}

// DeleteScenario removes the scenario. Chats that referenced it keep
// existing with the reference cleared.
func (s *Store) DeleteScenario(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.scenarios.remove(id) {
		return ErrScenarioNotFound
	}
	s.chats.each(func(_ string, ch *domain.Chat) bool {
		if ch.Scenario == id {
			ch.Scenario = ""
		}
		return true
	})
	return nil
}

// GetScenario returns a copy of the scenario.
func (s *Store) GetScenario(id string) (*domain.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.scenarios.get(id)
	if !ok {
		return nil, ErrScenarioNotFound
	}
	return sc.Clone(), nil
}

// PlayScenario counts a play, or a completion when completed is true.
func (s *Store) PlayScenario(id string, completed bool) (*domain.Scenario, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.scenarios.get(id)
	if !ok {
		return nil, ErrScenarioNotFound
	}
	if completed {
		sc.Stats.Completions++
	} else {
		sc.Stats.Plays++
	}
	return sc.Clone(), nil
}

// ListScenarios returns scenarios matching f in insertion order.
func (s *Store) ListScenarios(f domain.ScenarioFilter) []domain.Scenario {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listScenariosLocked(f, 0)
}

// listScenariosLocked filters scenarios, stopping after limit matches when
// limit is positive.
func (s *Store) listScenariosLocked(f domain.ScenarioFilter, limit int) []domain.Scenario {
	q := lower(f.Search)
	out := make([]domain.Scenario, 0)
	s.scenarios.each(func(_ string, sc *domain.Scenario) bool {
		if q != "" && !containsFold(sc.Name, q) && !containsFold(sc.Description, q) {
			return true
		}
		if f.Character != "" && !slices.Contains(sc.Characters, f.Character) {
			return true
		}
		if f.NSFW != nil && sc.IsNSFW != *f.NSFW {
			return true
		}
		out = append(out, *sc.Clone())
		return limit <= 0 || len(out) < limit
	})
	return out
}
