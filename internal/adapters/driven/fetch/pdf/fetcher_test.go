package pdf

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Suraj-Bhadauria/hackrx-DO/internal/core/domain"
)

func serveBody(t *testing.T, status int, body string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestFetch_HTTPError(t *testing.T) {
	f := NewFetcher(Config{})
	url := serveBody(t, http.StatusNotFound, "not here")

	_, err := f.Fetch(context.Background(), url)
	assert.ErrorContains(t, err, "status 404")
}

func TestFetch_OversizedDocument(t *testing.T) {
	f := NewFetcher(Config{MaxBytes: 100})
	url := serveBody(t, http.StatusOK, strings.Repeat("x", 200))

	_, err := f.Fetch(context.Background(), url)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.ErrorContains(t, err, "byte limit")
}

func TestFetch_NotAPDF(t *testing.T) {
	f := NewFetcher(Config{})
	url := serveBody(t, http.StatusOK, "<html>this is not a pdf</html>")

	_, err := f.Fetch(context.Background(), url)
	assert.ErrorContains(t, err, "extract text")
}

func TestFetch_UnreachableHost(t *testing.T) {
	f := NewFetcher(Config{})

	_, err := f.Fetch(context.Background(), "http://127.0.0.1:1/missing.pdf")
	assert.ErrorContains(t, err, "download document")
}

func TestFetch_ContextCancelled(t *testing.T) {
	f := NewFetcher(Config{})
	url := serveBody(t, http.StatusOK, "irrelevant")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx, url)
	require.Error(t, err)
}

func TestNewFetcher_Defaults(t *testing.T) {
	f := NewFetcher(Config{})
	assert.EqualValues(t, DefaultMaxBytes, f.maxBytes)
	assert.Equal(t, DefaultTimeout, f.client.Timeout)
}
