package middleware

import (
	"fmt"
	"net/http"
	"time"
)

// Timeout bounds page handlers. It buffers the response, so upload and
// websocket routes use TransferTimeout instead.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	message := fmt.Sprintf(errorPage, "The listings service took too long to answer, please try again.")

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, message)
	}
}
