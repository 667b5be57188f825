// Package narrative drives persona creation, story continuation and in-character Q&A.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/prestonty/timelens-be/internal/apperr"
	"github.com/prestonty/timelens-be/internal/model/chat"
	"github.com/prestonty/timelens-be/internal/model/persona"
	"github.com/prestonty/timelens-be/internal/service/ai"
	chatservice "github.com/prestonty/timelens-be/internal/service/chat"
)

// ErrDuplicateName is returned when every attempt produced an empty or already used name.
var ErrDuplicateName = fmt.Errorf("%w: generated persona name duplicates an existing persona", apperr.ErrUpstreamGeneration)

// Config tunes the controller.
type Config struct {
	// PrimaryModel serves the name and personality calls.
	PrimaryModel string
	// StoryModel serves story, title and answer calls.
	StoryModel     string
	NameRetryLimit int
}

// Subevent is the result of one story continuation.
type Subevent struct {
	// ID is the ledger count before this subevent, kept for client compatibility.
	ID             int    `json:"id"`
	SubeventNumber int    `json:"subeventNumber"`
	Title          string `json:"title"`
	Content        string `json:"content"`
	Event          string `json:"event"`
}

// Service is the narrative session controller.
type Service struct {
	personas persona.Store
	ledger   *chatservice.Service
	gen      ai.Generator
	cfg      Config
	writers  *keyedMutex
}

// NewService composes the controller from its collaborators.
func NewService(personas persona.Store, ledger *chatservice.Service, gen ai.Generator, cfg Config) *Service {
	if cfg.NameRetryLimit < 1 {
		cfg.NameRetryLimit = 1
	}
	return &Service{
		personas: personas,
		ledger:   ledger,
		gen:      gen,
		cfg:      cfg,
		writers:  newKeyedMutex(),
	}
}

// GeneratePersona invents a character for event whose name is not yet used by that
// event, describes its personality and persists it.
func (s *Service) GeneratePersona(ctx context.Context, event string) (persona.Persona, error) {
	event = strings.TrimSpace(event)
	if event == "" {
		return persona.Persona{}, apperr.Validation("event is required")
	}

	names, err := s.personas.ListNames(ctx, event)
	if err != nil {
		return persona.Persona{}, fmt.Errorf("list personas for %q: %w", event, err)
	}

	name, err := s.generateName(ctx, event, names)
	if err != nil {
		return persona.Persona{}, err
	}

	personality, err := s.gen.Generate(ctx, ai.Request{
		System:      personalitySystemPrompt,
		Prompt:      buildPersonalityPrompt(name, event),
		Model:       s.cfg.PrimaryModel,
		MaxTokens:   personalityMaxTokens,
		Temperature: creativeTemperature,
	})
	if err != nil {
		return persona.Persona{}, fmt.Errorf("generate personality for %q: %w", name, err)
	}

	created, err := s.personas.Create(ctx, persona.Persona{
		Name:        name,
		Personality: personality,
		Event:       event,
	})
	if err != nil {
		return persona.Persona{}, fmt.Errorf("store persona %q: %w", name, err)
	}

	log.Printf("[narrative] created persona id=%d name=%q event=%q", created.ID, created.Name, created.Event)
	return created, nil
}

func (s *Service) generateName(ctx context.Context, event string, exclude []string) (string, error) {
	req := ai.Request{
		System:      nameSystemPrompt,
		Prompt:      buildNamePrompt(event, exclude),
		Model:       s.cfg.PrimaryModel,
		MaxTokens:   nameMaxTokens,
		Temperature: creativeTemperature,
	}

	for attempt := 1; attempt <= s.cfg.NameRetryLimit; attempt++ {
		raw, err := s.gen.Generate(ctx, req)
		if err != nil {
			return "", fmt.Errorf("generate persona name: %w", err)
		}
		name := normalizeName(raw)
		if name != "" && !isExcluded(name, exclude) {
			return name, nil
		}
		log.Printf("[narrative] rejected persona name %q for event %q (attempt %d/%d)", raw, event, attempt, s.cfg.NameRetryLimit)
	}
	return "", ErrDuplicateName
}

// ContinueStory narrates the next subevent for the persona and appends it to the ledger.
func (s *Service) ContinueStory(ctx context.Context, personaID int64) (Subevent, error) {
	if personaID <= 0 {
		return Subevent{}, chatservice.ErrPersonaRequired
	}

	unlock, err := s.writers.Lock(ctx, personaID)
	if err != nil {
		return Subevent{}, fmt.Errorf("wait for persona %d writer: %w", personaID, err)
	}
	defer unlock()

	snap, err := s.ledger.Snapshot(ctx, personaID)
	if err != nil {
		return Subevent{}, err
	}

	p, err := s.personas.GetByID(ctx, personaID)
	if err != nil {
		return Subevent{}, err
	}

	story, err := s.gen.Generate(ctx, ai.Request{
		System:      storySystemPrompt,
		Prompt:      buildStoryPrompt(p.Name, p.Personality, p.Event, snap.Context, snap.Next),
		Model:       s.cfg.StoryModel,
		MaxTokens:   storyMaxTokens,
		Temperature: creativeTemperature,
	})
	if err != nil {
		return Subevent{}, fmt.Errorf("generate subevent %d for persona %d: %w", snap.Next, personaID, err)
	}

	title, err := s.gen.Generate(ctx, ai.Request{
		System:      titleSystemPrompt,
		Prompt:      buildTitlePrompt(story, p.Event),
		Model:       s.cfg.StoryModel,
		MaxTokens:   titleMaxTokens,
		Temperature: creativeTemperature,
	})
	if err != nil {
		return Subevent{}, fmt.Errorf("generate title for persona %d: %w", personaID, err)
	}

	saved, err := s.ledger.AppendNext(ctx, chat.Entry{
		PersonaID:     personaID,
		Message:       story,
		SubeventTitle: title,
		IsUserInput:   false,
	})
	if err != nil {
		return Subevent{}, err
	}
	if saved.SubeventNumber != snap.Next {
		log.Printf("[narrative] persona %d subevent renumbered %d -> %d by a concurrent writer", personaID, snap.Next, saved.SubeventNumber)
	}

	return Subevent{
		ID:             saved.SubeventNumber - 1,
		SubeventNumber: saved.SubeventNumber,
		Title:          title,
		Content:        story,
		Event:          p.Event,
	}, nil
}

// AnswerQuestion answers input in the persona's voice using the ledger as background.
// The answer is streamed and never written to the ledger.
func (s *Service) AnswerQuestion(ctx context.Context, personaID int64, input string) (*schema.StreamReader[*schema.Message], error) {
	if personaID <= 0 {
		return nil, chatservice.ErrPersonaRequired
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, apperr.Validation("input is required")
	}

	snap, err := s.ledger.Snapshot(ctx, personaID)
	if err != nil {
		return nil, err
	}

	p, err := s.personas.GetByID(ctx, personaID)
	if err != nil {
		return nil, err
	}

	sr, err := s.gen.Stream(ctx, ai.Request{
		System:      storySystemPrompt,
		Prompt:      buildAnswerPrompt(p.Name, p.Personality, p.Event, snap.Context, input),
		Model:       s.cfg.StoryModel,
		MaxTokens:   answerMaxTokens,
		Temperature: creativeTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("answer question for persona %d: %w", personaID, err)
	}
	return sr, nil
}

// Answer is AnswerQuestion collected into a single string.
func (s *Service) Answer(ctx context.Context, personaID int64, input string) (string, error) {
	sr, err := s.AnswerQuestion(ctx, personaID, input)
	if err != nil {
		return "", err
	}
	answer, err := ai.Collect(sr)
	if err != nil {
		if !errors.Is(err, apperr.ErrUpstreamGeneration) {
			err = apperr.Upstream("answer", err)
		}
		return "", err
	}
	return strings.TrimSpace(answer), nil
}
