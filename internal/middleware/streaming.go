package middleware

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"
)

// TransferTimeout bounds image upload routes without buffering the response.
// maxDuration caps the whole request; idleTimeout caps the gap between body
// reads or response writes, so a stalled upload is dropped early.
func TransferTimeout(maxDuration, idleTimeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), maxDuration)
			defer cancel()

			rc := http.NewResponseController(w)
			deadline := time.Now().Add(maxDuration)
			_ = rc.SetWriteDeadline(deadline)
			_ = rc.SetReadDeadline(deadline)

			tw := &transferWriter{
				ResponseWriter: w,
				rc:             rc,
				idleTimeout:    idleTimeout,
				cancel:         cancel,
			}
			tw.resetIdle()

			if r.Body != nil {
				r.Body = &transferBody{ReadCloser: r.Body, onRead: tw.resetIdle}
			}

			next.ServeHTTP(tw, r.WithContext(ctx))

			tw.mu.Lock()
			if tw.idleTimer != nil {
				tw.idleTimer.Stop()
			}
			tw.mu.Unlock()
		})
	}
}

// transferWriter cancels the request when neither side has moved for
// idleTimeout.
type transferWriter struct {
	http.ResponseWriter
	rc          *http.ResponseController
	idleTimeout time.Duration
	cancel      context.CancelFunc
	mu          sync.Mutex
	idleTimer   *time.Timer
}

func (tw *transferWriter) resetIdle() {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.idleTimeout <= 0 {
		return
	}
	if tw.idleTimer != nil {
		tw.idleTimer.Stop()
	}

	tw.idleTimer = time.AfterFunc(tw.idleTimeout, func() {
		_ = tw.rc.SetReadDeadline(time.Now())
		_ = tw.rc.SetWriteDeadline(time.Now())
		tw.cancel()
	})
}

func (tw *transferWriter) Write(b []byte) (int, error) {
	tw.resetIdle()
	return tw.ResponseWriter.Write(b)
}

func (tw *transferWriter) Unwrap() http.ResponseWriter {
	return tw.ResponseWriter
}

func (tw *transferWriter) Flush() {
	if f, ok := tw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

type transferBody struct {
	io.ReadCloser
	onRead func()
}

func (b *transferBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if n > 0 {
		b.onRead()
	}
	return n, err
}
