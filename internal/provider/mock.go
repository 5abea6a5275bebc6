package provider

import (
	"context"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"
)

// Reply prefixes per personality style.
var mockPrefixes = map[string][]string{
	"friendly": {
		"That's a great question! ",
		"I'm happy to help with that. ",
		"What an interesting topic! ",
		"I'd love to discuss this with you. ",
	},
	"professional": {
		"Thank you for your inquiry. ",
		"I understand your question. ",
		"Let me provide you with information on that. ",
		"Based on the context provided, ",
	},
	"creative": {
		"Oh, what a fascinating thought! ",
		"That sparks my imagination! ",
		"Let's explore this creatively... ",
		"What an artistic perspective! ",
	},
}

var greetingRe = regexp.MustCompile(`^(hi|hello|hey|greetings)`)

// mockProvider produces canned replies offline after a randomized delay.
type mockProvider struct {
	minDelay time.Duration
	maxDelay time.Duration
	intn     func(n int) int
	sleep    func(context.Context, time.Duration) error
}

func newMock(minDelay, maxDelay time.Duration) *mockProvider {
	return &mockProvider{minDelay: minDelay, maxDelay: maxDelay, intn: rand.IntN, sleep: sleepCtx}
}

func (p *mockProvider) Kind() Kind                     { return Mock }
func (p *mockProvider) Models() []string               { return []string{"mock-model"} }
func (p *mockProvider) DefaultModel() string           { return "mock-model" }
func (p *mockProvider) RequiresKey() bool              { return false }
func (p *mockProvider) Available(context.Context) bool { return true }

func (p *mockProvider) TestConnection(context.Context, string) error { return nil }

func (p *mockProvider) Generate(ctx context.Context, req Request) (string, error) {
	delay := p.minDelay
	if span := p.maxDelay - p.minDelay; span > 0 {
		delay += time.Duration(p.intn(int(span)))
	}
	if err := p.sleep(ctx, delay); err != nil {
		return "", err
	}
	prefixes := mockPrefixes[personaStyle(req.Persona.Personality)]
	replies := contextualReplies(req.lastContent(), req.Persona)
	return prefixes[p.intn(len(prefixes))] + replies[p.intn(len(replies))], nil
}

// personaStyle maps free-form personality text onto a prefix style.
func personaStyle(personality string) string {
	p := strings.ToLower(personality)
	switch {
	case strings.Contains(p, "professional"):
		return "professional"
	case strings.Contains(p, "creative"), strings.Contains(p, "imaginative"), strings.Contains(p, "artistic"):
		return "creative"
	default:
		return "friendly"
	}
}

func contextualReplies(userMessage string, persona Persona) []string {
	lower := strings.ToLower(strings.TrimSpace(userMessage))

	if greetingRe.MatchString(lower) {
		greeting := persona.Greeting
		if greeting == "" {
			greeting = "How can I assist you today?"
		}
		scenario := persona.Scenario
		if scenario == "" {
			scenario = "I'm here to help."
		}
		return []string{
			"Hello! " + greeting,
			"Greetings! " + scenario,
			"Hello there! What would you like to talk about?",
		}
	}

	name := persona.Name
	if name == "" {
		name = "your AI assistant"
	}
	if strings.Contains(lower, "?") {
		return []string{
			"That's an interesting question. Based on what you've asked, I think...",
			"Let me think about that for a moment. In my opinion...",
			"Great question! Here's what I think about that...",
			fmt.Sprintf("As %s, I believe...", name),
		}
	}

	lead := persona.Personality
	if lead == "" {
		lead = "From my understanding"
	}
	return []string{
		"I understand what you're saying. Let me share my thoughts on that...",
		"That's a fascinating point. Here's my perspective...",
		"Thank you for sharing that. In response, I would say...",
		fmt.Sprintf("%s, I think...", lead),
	}
}
