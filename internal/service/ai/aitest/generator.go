// Package aitest provides a scriptable ai.Generator for tests.
package aitest

import (
	"context"
	"strings"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/prestonty/timelens-be/internal/service/ai"
)

// Generator answers Generate calls with Respond and Stream calls with Chunks.
type Generator struct {
	Respond func(req ai.Request) (string, error)
	Chunks  []string

	mu       sync.Mutex
	requests []ai.Request
}

var _ ai.Generator = (*Generator)(nil)

// Generate records req and delegates to Respond.
func (g *Generator) Generate(_ context.Context, req ai.Request) (string, error) {
	g.record(req)
	if g.Respond == nil {
		return "", nil
	}
	return g.Respond(req)
}

// Stream records req and replays Chunks.
func (g *Generator) Stream(_ context.Context, req ai.Request) (*schema.StreamReader[*schema.Message], error) {
	g.record(req)
	msgs := make([]*schema.Message, 0, len(g.Chunks))
	for _, c := range g.Chunks {
		msgs = append(msgs, schema.AssistantMessage(c, nil))
	}
	return schema.StreamReaderFromArray(msgs), nil
}

// Requests returns a copy of every recorded request.
func (g *Generator) Requests() []ai.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]ai.Request(nil), g.requests...)
}

func (g *Generator) record(req ai.Request) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()
}

// Narrator returns a Respond func that recognises the narrative prompts by their wording.
func Narrator(name, personality, story, title string) func(ai.Request) (string, error) {
	return func(req ai.Request) (string, error) {
		switch {
		case strings.Contains(req.Prompt, "Give me only the name"):
			return name, nil
		case strings.Contains(req.Prompt, "Describe the personality"):
			return personality, nil
		case strings.Contains(req.Prompt, "give it a short title"):
			return title, nil
		default:
			return story, nil
		}
	}
}
