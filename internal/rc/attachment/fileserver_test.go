package attachment

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rctrack/pkg/testutil"
)

func TestFileServer(t *testing.T) {
	store := NewInMemory()
	content := []byte("%PDF-1.4 body")
	require.NoError(t, store.Put(context.Background(), "pdf-1-a.pdf", bytes.NewReader(content), int64(len(content))))

	r := chi.NewRouter()
	NewFileServer(store, NewLocator("/utils/uploads"), slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)

	t.Run("serves pdf inline", func(t *testing.T) {
		rr := testutil.DoRequest(r, httptest.NewRequest(http.MethodGet, "/utils/uploads/pdf-1-a.pdf", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
		assert.Equal(t, `inline; filename=pdf-1-a.pdf`, rr.Header().Get("Content-Disposition"))
		assert.Equal(t, content, rr.Body.Bytes())
	})

	t.Run("missing file is 404 envelope", func(t *testing.T) {
		rr := testutil.DoRequest(r, httptest.NewRequest(http.MethodGet, "/utils/uploads/pdf-2-b.pdf", nil))
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
	})

	t.Run("hidden names are not served", func(t *testing.T) {
		rr := testutil.DoRequest(r, httptest.NewRequest(http.MethodGet, "/utils/uploads/.pdf-1-a.pdf.part", nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
