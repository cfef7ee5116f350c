package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS covers the JSON health check and the websocket upgrade; pages and
// forms are same-origin.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	handler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		MaxAge:           3600,
		AllowCredentials: false,
	})

	return handler.Handler
}

// OriginAllowed reports whether a websocket handshake origin is acceptable.
// Same-host origins are always allowed.
func OriginAllowed(origins []string) func(r *http.Request) bool {
	allowAll := len(origins) == 0
	set := map[string]struct{}{}
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		set[o] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowAll {
			return true
		}
		if origin == "http://"+r.Host || origin == "https://"+r.Host {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
