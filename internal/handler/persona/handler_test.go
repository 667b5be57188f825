package persona

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	chatmodel "github.com/prestonty/timelens-be/internal/model/chat"
	"github.com/prestonty/timelens-be/internal/model/persona"
	"github.com/prestonty/timelens-be/internal/service/ai/aitest"
	chatservice "github.com/prestonty/timelens-be/internal/service/chat"
	"github.com/prestonty/timelens-be/internal/service/narrative"
)

func setupRouter(name string) (*chi.Mux, *persona.MemoryStore) {
	gen := &aitest.Generator{Respond: aitest.Narrator(name, "I carried three men to the Moon.", "story", "title")}
	store := persona.NewMemoryStore(nil)
	ledger := chatservice.NewService(chatmodel.NewMemoryStore())
	svc := narrative.NewService(store, ledger, gen, narrative.Config{NameRetryLimit: 2})

	r := chi.NewRouter()
	New(svc, store, ledger).RegisterRoutes(r)
	return r, store
}

func TestGenerateCreatesPersona(t *testing.T) {
	r, _ := setupRouter("Saturn V")

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/generate?event=Moon+Landing", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if body["name"] != "Saturn V" || body["event"] != "Moon Landing" || body["id"] != float64(1) {
		t.Fatalf("unexpected body %v", body)
	}
	if _, ok := body["personality"]; !ok {
		t.Fatalf("personality missing from %v", body)
	}
	if len(body) != 4 {
		t.Fatalf("expected exactly id, name, personality, event; got %v", body)
	}
}

func TestGenerateDuplicateNameFails(t *testing.T) {
	r, store := setupRouter("Saturn V")

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/generate?event=Moon+Landing", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/generate?event=Moon+Landing", nil))
	if second.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 when only duplicates are produced, got %d", second.Code)
	}
	var body map[string]string
	_ = json.NewDecoder(second.Body).Decode(&body)
	if body["error"] != "An error occurred when processing your request." {
		t.Fatalf("unexpected error body %v", body)
	}

	names, _ := store.ListNames(context.Background(), "Moon Landing")
	if len(names) != 1 {
		t.Fatalf("expected one stored persona, got %v", names)
	}
}

func TestGenerateMissingEvent(t *testing.T) {
	r, _ := setupRouter("Saturn V")

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/generate", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestGetPersonaAndHistory(t *testing.T) {
	r, _ := setupRouter("Saturn V")

	created := httptest.NewRecorder()
	r.ServeHTTP(created, httptest.NewRequest(http.MethodGet, "/generate?event=Moon+Landing", nil))

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/personas/1", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	history := httptest.NewRecorder()
	r.ServeHTTP(history, httptest.NewRequest(http.MethodGet, "/personas/1/history", nil))
	if history.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", history.Code)
	}
	if got := history.Body.String(); got != "[]\n" {
		t.Fatalf("expected empty history, got %q", got)
	}

	missing := httptest.NewRecorder()
	r.ServeHTTP(missing, httptest.NewRequest(http.MethodGet, "/personas/2", nil))
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.Code)
	}
}

func TestLookupsWorkWithoutGeneration(t *testing.T) {
	store := persona.NewMemoryStore([]persona.Persona{{Name: "Eagle", Personality: "steady", Event: "Moon Landing"}})
	entries := chatmodel.NewMemoryStore()
	if _, err := entries.AppendEntry(context.Background(), chatmodel.Entry{PersonaID: 1, SubeventNumber: 1, Message: "We landed.", SubeventTitle: "Touchdown"}); err != nil {
		t.Fatalf("AppendEntry err: %v", err)
	}

	r := chi.NewRouter()
	New(nil, store, chatservice.NewService(entries)).RegisterRoutes(r)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/personas/1", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 without a generator, got %d", resp.Code)
	}

	history := httptest.NewRecorder()
	r.ServeHTTP(history, httptest.NewRequest(http.MethodGet, "/personas/1/history", nil))
	if history.Code != http.StatusOK {
		t.Fatalf("expected 200 without a generator, got %d", history.Code)
	}
	var body []map[string]any
	if err := json.NewDecoder(history.Body).Decode(&body); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if len(body) != 1 {
		t.Fatalf("expected one ledger entry, got %v", body)
	}

	missing := httptest.NewRecorder()
	r.ServeHTTP(missing, httptest.NewRequest(http.MethodGet, "/personas/2/history", nil))
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown persona history, got %d", missing.Code)
	}

	generate := httptest.NewRecorder()
	r.ServeHTTP(generate, httptest.NewRequest(http.MethodGet, "/generate?event=Moon+Landing", nil))
	if generate.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for /generate without a generator, got %d", generate.Code)
	}
}
