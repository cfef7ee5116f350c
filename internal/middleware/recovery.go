package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
)

const errorPage = `<!doctype html><html><head><meta charset="utf-8"><title>Error</title></head>` +
	`<body><h1>Something went wrong</h1><p>%s</p><p><a href="/listings">Back to listings</a></p></body></html>`

func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recovered := recover(); recovered != nil {
				if recovered == http.ErrAbortHandler {
					panic(recovered)
				}
				slog.ErrorContext(r.Context(), "panic recovered", "error", fmt.Sprintf("%v", recovered), "stack", string(debug.Stack()))
				if wantsJSON(r) {
					writeJSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Unexpected server error")
					return
				}
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = fmt.Fprintf(w, errorPage, "Unexpected server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}
