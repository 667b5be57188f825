package appearance

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/prestonty/timelens-be/internal/service/ai"
	"github.com/prestonty/timelens-be/internal/service/ai/aitest"
	"github.com/prestonty/timelens-be/internal/service/appearance"
)

func setupRouter(reply string) *chi.Mux {
	gen := &aitest.Generator{Respond: func(ai.Request) (string, error) { return reply, nil }}
	r := chi.NewRouter()
	New(appearance.NewService(gen, "gpt-4o", nil)).RegisterRoutes(r)
	return r
}

func post(r http.Handler, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/generate_character", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestGenerateCharacterReturnsIDs(t *testing.T) {
	r := setupRouter("[41, 42, 5, 44, 2, 36]")

	resp := post(r, map[string]string{"character_name": "Babe Ruth", "event_name": "1927 World Series"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var ids []int
	if err := json.NewDecoder(resp.Body).Decode(&ids); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if !reflect.DeepEqual(ids, []int{41, 42, 5, 44, 2, 36}) {
		t.Fatalf("unexpected ids %v", ids)
	}
}

func TestGenerateCharacterMissingFields(t *testing.T) {
	r := setupRouter("[]")

	resp := post(r, map[string]string{"character_name": "Babe Ruth"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	var body map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body["error"] != "Character name and event name are required" {
		t.Fatalf("unexpected error body %v", body)
	}
}

func TestGenerateCharacterUnknownComponent(t *testing.T) {
	r := setupRouter("[41, 42, 5, 44, 2, 99]")

	resp := post(r, map[string]string{"character_name": "Babe Ruth", "event_name": "1927 World Series"})
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
}

func TestGenerateCharacterInvalidBody(t *testing.T) {
	r := setupRouter("[]")

	req := httptest.NewRequest(http.MethodPost, "/generate_character", bytes.NewBufferString("{"))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
