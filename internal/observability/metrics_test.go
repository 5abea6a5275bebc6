package observability

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tbourn/character-hub/internal/domain"
)

type fakeCounts struct{ c domain.Counts }

func (f *fakeCounts) Counts() domain.Counts { return f.c }

func TestRegisterStoreGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	src := &fakeCounts{c: domain.Counts{Characters: 3, Chats: 1, Messages: 7}}
	if err := RegisterStoreGauges(reg, src); err != nil {
		t.Fatalf("register: %v", err)
	}

	src.c.Messages = 9 // read on scrape
	want := `
# HELP character_hub_records Number of records held by the entity store.
# TYPE character_hub_records gauge
character_hub_records{kind="characters"} 3
character_hub_records{kind="chats"} 1
character_hub_records{kind="messages"} 9
character_hub_records{kind="scenarios"} 0
character_hub_records{kind="tags"} 0
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "character_hub_records"); err != nil {
		t.Fatalf("gauges: %v", err)
	}

	if err := RegisterStoreGauges(reg, src); err == nil {
		t.Fatalf("registering twice should fail")
	}
}
