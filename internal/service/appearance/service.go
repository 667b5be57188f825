// Package appearance maps a persona onto the closed catalog of visual components.
package appearance

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/prestonty/timelens-be/internal/apperr"
	"github.com/prestonty/timelens-be/internal/service/ai"
)

const (
	systemPrompt = "You are a helpful assistant that generates the characteristics of a character and matches those characteristics with the corresponding IDs of the components from the provided list."
	maxTokens    = 200
	temperature  = 0.7
)

// Service selects appearance components through the text generator.
type Service struct {
	gen     ai.Generator
	model   string
	catalog []Category
	// index maps a component id to the position of its category.
	index map[int]int
}

// NewService builds a selector over catalog; a nil catalog means DefaultCatalog.
func NewService(gen ai.Generator, model string, catalog []Category) *Service {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	index := make(map[int]int)
	for pos, category := range catalog {
		for _, opt := range category.Options {
			index[opt.ID] = pos
		}
	}
	return &Service{gen: gen, model: model, catalog: catalog, index: index}
}

// Select returns the component ids chosen for the character, in catalog order.
func (s *Service) Select(ctx context.Context, characterName, eventName string) ([]int, error) {
	characterName = strings.TrimSpace(characterName)
	eventName = strings.TrimSpace(eventName)
	if characterName == "" || eventName == "" {
		return nil, apperr.Validation("Character name and event name are required")
	}

	raw, err := s.gen.Generate(ctx, ai.Request{
		System:      systemPrompt,
		Prompt:      s.buildPrompt(characterName, eventName),
		Model:       s.model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("select appearance for %q: %w", characterName, err)
	}

	ids, err := parseIDs(raw)
	if err != nil {
		return nil, apperr.Upstream("decode appearance", err)
	}

	selected, err := s.Validate(ids)
	if err != nil {
		log.Printf("[appearance] rejected selection %v for %q: %v", ids, characterName, err)
		return nil, err
	}
	return selected, nil
}

// Validate checks ids against the catalog: every id known, at most one per category,
// every mandatory category present. It returns the ids in catalog order.
func (s *Service) Validate(ids []int) ([]int, error) {
	chosen := make(map[int]int, len(s.catalog))
	for _, id := range ids {
		pos, ok := s.index[id]
		if !ok {
			return nil, fmt.Errorf("%w: unknown component id %d", apperr.ErrInvalidAppearance, id)
		}
		if prev, taken := chosen[pos]; taken {
			return nil, fmt.Errorf("%w: category %s selected twice (%d, %d)", apperr.ErrInvalidAppearance, s.catalog[pos].Name, prev, id)
		}
		chosen[pos] = id
	}

	ordered := make([]int, 0, len(chosen))
	for pos, category := range s.catalog {
		id, ok := chosen[pos]
		if !ok {
			if category.Mandatory {
				return nil, fmt.Errorf("%w: missing mandatory category %s", apperr.ErrInvalidAppearance, category.Name)
			}
			continue
		}
		ordered = append(ordered, id)
	}
	return ordered, nil
}

func (s *Service) buildPrompt(characterName, eventName string) string {
	var mandatory, optional []string
	for _, category := range s.catalog {
		if category.Mandatory {
			mandatory = append(mandatory, category.Name)
		} else {
			optional = append(optional, category.Name)
		}
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "You are designing %s from the event %s.\n", characterName, eventName)
	fmt.Fprintf(&builder, "Every character must include the following components: %s.\n", strings.Join(mandatory, ", "))
	if len(optional) > 0 {
		fmt.Fprintf(&builder, "The following components are optional: %s.\n", strings.Join(optional, ", "))
	}
	builder.WriteString("\nFocus only on the character's literal, physical appearance. Do not consider symbolic meanings, metaphors, or cultural associations when selecting components.\n")
	builder.WriteString("\nFor each component, choose the most appropriate option based on the descriptions below:\n\n")
	for _, category := range s.catalog {
		builder.WriteString(category.Name)
		if !category.Mandatory {
			builder.WriteString(" (optional)")
		}
		builder.WriteString(": ")
		for i, opt := range category.Options {
			if i > 0 {
				builder.WriteString(", ")
			}
			fmt.Fprintf(&builder, "%d: %s", opt.ID, opt.Description)
		}
		builder.WriteString("\n")
	}
	builder.WriteString("\nGive me only a JSON array of selected IDs that best match the character, choosing at most one ID per component.")
	return builder.String()
}

// parseIDs extracts the JSON array from the model output. Numbers may arrive as
// JSON numbers or numeric strings.
func parseIDs(content string) ([]int, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "[")
	end := strings.LastIndex(trimmed, "]")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("missing json array in %q", trimmed)
	}

	var raw []any
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &raw); err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(raw))
	for _, item := range raw {
		switch v := item.(type) {
		case float64:
			if v != math.Trunc(v) {
				return nil, fmt.Errorf("component id %v is not an integer", v)
			}
			ids = append(ids, int(v))
		case string:
			id, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("component id %q is not an integer", v)
			}
			ids = append(ids, id)
		default:
			return nil, fmt.Errorf("unexpected component id %v", item)
		}
	}
	return ids, nil
}
