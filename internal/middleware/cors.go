package middleware

import (
	"net/http"
	"strings"
)

type originSet struct {
	allowed  map[string]struct{}
	allowAll bool
}

func newOriginSet(allowedOrigins []string) originSet {
	set := originSet{allowed: make(map[string]struct{}, len(allowedOrigins))}
	for _, origin := range allowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "" {
			continue
		}
		if origin == "*" {
			set.allowAll = true
		}
		set.allowed[origin] = struct{}{}
	}
	return set
}

func (s originSet) allows(origin string) bool {
	if s.allowAll {
		return true
	}
	_, ok := s.allowed[origin]
	return ok
}

// CORS allows browser calls from the configured origins. "*" allows any origin.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	origins := newOriginSet(allowedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				w.Header().Add("Vary", "Origin")
				if origins.allows(origin) {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Authorization")
				}
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CheckOrigin applies the same origin rules to WebSocket upgrades.
// Requests without an Origin header come from non-browser clients and are allowed.
func CheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	origins := newOriginSet(allowedOrigins)
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || origins.allows(origin)
	}
}
