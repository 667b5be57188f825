package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/prestonty/timelens-be/internal/config"
	"github.com/prestonty/timelens-be/internal/storage/sqlstore"
)

func TestBuildWithoutCredentials(t *testing.T) {
	cfg := &config.Config{
		AI:    config.AIConfig{Provider: config.ProviderOpenAI},
		Store: config.StoreConfig{Driver: config.StoreMemory},
	}

	svcs, err := Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Build err: %v", err)
	}
	defer svcs.Close()

	if svcs.Personas == nil || svcs.Ledger == nil {
		t.Fatal("stores must always be available")
	}
	if svcs.Narrative != nil || svcs.Appearance != nil {
		t.Fatal("generation services must be nil without credentials")
	}
}

func TestBuildWithOpenAIAndSQLite(t *testing.T) {
	cfg := &config.Config{
		AI: config.AIConfig{
			Provider:         config.ProviderOpenAI,
			OpenAIAPIKey:     "sk-test",
			OpenAIModel:      "gpt-4o",
			OpenAIStoryModel: "gpt-4o-mini",
			Timeout:          time.Second,
		},
		Store:     config.StoreConfig{Driver: "sqlite", DSN: ":memory:", Timeout: time.Second},
		Narrative: config.NarrativeConfig{NameRetryLimit: 3},
	}

	svcs, err := Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Build err: %v", err)
	}
	defer svcs.Close()

	if _, ok := svcs.Personas.(*sqlstore.Store); !ok {
		t.Fatalf("expected sqlstore, got %T", svcs.Personas)
	}
	if svcs.Narrative == nil || svcs.Appearance == nil {
		t.Fatal("generation services should be built when credentials are present")
	}
}
