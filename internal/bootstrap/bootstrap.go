// Package bootstrap builds the process-wide services from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/prestonty/timelens-be/internal/config"
	"github.com/prestonty/timelens-be/internal/model/chat"
	"github.com/prestonty/timelens-be/internal/model/persona"
	"github.com/prestonty/timelens-be/internal/service/ai"
	"github.com/prestonty/timelens-be/internal/service/appearance"
	chatservice "github.com/prestonty/timelens-be/internal/service/chat"
	"github.com/prestonty/timelens-be/internal/service/narrative"
	"github.com/prestonty/timelens-be/internal/storage/sqlstore"
)

// Services holds everything the HTTP layer and tools need.
// Narrative and Appearance are nil when text generation is not configured.
type Services struct {
	Personas   persona.Store
	Ledger     *chatservice.Service
	Narrative  *narrative.Service
	Appearance *appearance.Service

	close func() error
}

// Close releases the store connection, if any.
func (s *Services) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Build opens the configured store and, when credentials are present, the generation backend.
func Build(ctx context.Context, cfg *config.Config) (*Services, error) {
	personas, entries, closeFn, err := openStores(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	svcs := &Services{
		Personas: personas,
		Ledger:   chatservice.NewService(entries),
		close:    closeFn,
	}

	if !cfg.AI.Enabled() {
		log.Printf("[bootstrap] %s credentials missing, text generation disabled", cfg.AI.Provider)
		return svcs, nil
	}

	chatModel, err := cfg.AI.NewChatModel(ctx)
	if err != nil {
		svcs.Close()
		return nil, fmt.Errorf("init chat model: %w", err)
	}
	gen, err := ai.NewService(ctx, chatModel, cfg.AI.Timeout)
	if err != nil {
		svcs.Close()
		return nil, fmt.Errorf("init ai service: %w", err)
	}

	primary, story := cfg.AI.Models()
	svcs.Narrative = narrative.NewService(personas, svcs.Ledger, gen, narrative.Config{
		PrimaryModel:   primary,
		StoryModel:     story,
		NameRetryLimit: cfg.Narrative.NameRetryLimit,
	})
	svcs.Appearance = appearance.NewService(gen, primary, appearance.DefaultCatalog())

	log.Printf("[bootstrap] text generation enabled provider=%s model=%s story_model=%s", cfg.AI.Provider, primary, story)
	return svcs, nil
}

func openStores(ctx context.Context, cfg config.StoreConfig) (persona.Store, chat.Store, func() error, error) {
	if cfg.Driver == config.StoreMemory {
		log.Println("[bootstrap] using in-memory store, data is lost on restart")
		return persona.NewMemoryStore(nil), chat.NewMemoryStore(), nil, nil
	}

	store, err := sqlstore.Open(ctx, cfg.Driver, cfg.DSN, cfg.Timeout)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}
	log.Printf("[bootstrap] using %s store", cfg.Driver)
	return store, store, store.Close, nil
}
