package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderWritesPage(t *testing.T) {
	t.Parallel()

	page := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, "<p>hello</p>")
		return err
	})

	rec := httptest.NewRecorder()
	render(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusCreated, page)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "<p>hello</p>", rec.Body.String())
}

func TestRenderFailureDiscardsPartialPage(t *testing.T) {
	t.Parallel()

	page := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, _ = io.WriteString(w, "<p>half")
		return errors.New("boom")
	})

	rec := httptest.NewRecorder()
	render(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, page)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "half")
	assert.Contains(t, rec.Body.String(), "page not available")
}
