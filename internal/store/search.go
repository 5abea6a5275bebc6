package store

import "github.com/tbourn/character-hub/internal/domain"

// Search matches query case-insensitively against character names,
// descriptions and tags, chat names, and scenario names and descriptions.
// Each result list is capped independently at opts.Limit (default 10).
func (s *Store) Search(query string, opts domain.SearchOptions) domain.SearchResults {
	limit := opts.Limit
	if limit <= 0 {
		limit = domain.DefaultSearchLimit
	}
	q := lower(query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	res := domain.SearchResults{
		Characters: []domain.Character{},
		Chats:      []domain.Chat{},
		Scenarios:  []domain.Scenario{},
	}
	if !opts.SkipCharacters {
		chars := s.listCharactersLocked(domain.CharacterFilter{Search: query})
		if len(chars) > limit {
			chars = chars[:limit]
		}
		res.Characters = chars
	}
	if !opts.SkipChats {
		s.chats.each(func(_ string, ch *domain.Chat) bool {
			if containsFold(ch.Name, q) {
				res.Chats = append(res.Chats, *ch.Clone())
			}
			return len(res.Chats) < limit
		})
	}
	if !opts.SkipScenarios {
		res.Scenarios = s.listScenariosLocked(domain.ScenarioFilter{Search: query}, limit)
	}
	return res
}
