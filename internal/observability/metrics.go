package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tbourn/character-hub/internal/domain"
)

// CountsSource reports the current collection sizes. *store.Store
// implements it.
type CountsSource interface {
	Counts() domain.Counts
}

// RegisterStoreGauges exposes the size of every collection as the
// character_hub_records gauge, labelled by kind. Values are read on scrape.
func RegisterStoreGauges(reg prometheus.Registerer, src CountsSource) error {
	kinds := map[string]func(domain.Counts) int{
		"characters": func(c domain.Counts) int { return c.Characters },
		"chats":      func(c domain.Counts) int { return c.Chats },
		"messages":   func(c domain.Counts) int { return c.Messages },
		"scenarios":  func(c domain.Counts) int { return c.Scenarios },
		"tags":       func(c domain.Counts) int { return c.Tags },
	}
	for kind, pick := range kinds {
		g := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "character_hub_records",
			Help:        "Number of records held by the entity store.",
			ConstLabels: prometheus.Labels{"kind": kind},
		}, func() float64 { return float64(pick(src.Counts())) })
		if err := reg.Register(g); err != nil {
			return err
		}
	}
	return nil
}
