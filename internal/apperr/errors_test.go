package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestUpstreamPromotesDeadline(t *testing.T) {
	err := Upstream("generate name", fmt.Errorf("call: %w", context.DeadlineExceeded))
	if !errors.Is(err, ErrUpstreamTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if !errors.Is(err, ErrUpstreamGeneration) {
		t.Fatalf("timeout should also be a generation error: %v", err)
	}
}

func TestUpstreamPlainFailure(t *testing.T) {
	err := Upstream("generate name", errors.New("boom"))
	if !errors.Is(err, ErrUpstreamGeneration) {
		t.Fatalf("expected generation error, got %v", err)
	}
	if errors.Is(err, ErrUpstreamTimeout) {
		t.Fatal("plain failure must not be classified as timeout")
	}
	if Upstream("noop", nil) != nil {
		t.Fatal("nil error must stay nil")
	}
}

func TestStatus(t *testing.T) {
	cases := []struct {
		err  error
		code int
		msg  string
	}{
		{Validation("event is required"), http.StatusBadRequest, "event is required"},
		{fmt.Errorf("persona 3: %w", ErrNotFound), http.StatusNotFound, "not found"},
		{Upstream("story", context.DeadlineExceeded), http.StatusGatewayTimeout, GenericMessage},
		{fmt.Errorf("insert: %w", ErrStoreWrite), http.StatusInternalServerError, GenericMessage},
		{fmt.Errorf("%w: list names: %w", ErrStoreRead, context.DeadlineExceeded), http.StatusGatewayTimeout, GenericMessage},
		{fmt.Errorf("wait for writer: %w", context.Canceled), http.StatusInternalServerError, GenericMessage},
		{ErrInvalidAppearance, http.StatusInternalServerError, GenericMessage},
	}
	for _, tc := range cases {
		code, msg := Status(tc.err)
		if code != tc.code || msg != tc.msg {
			t.Fatalf("Status(%v) = %d %q, want %d %q", tc.err, code, msg, tc.code, tc.msg)
		}
	}
}
