package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Suraj-Bhadauria/hackrx-DO/internal/core/domain"
)

// mockQueryService implements driving.QueryService.
type mockQueryService struct {
	answers []string
	err     error
	gotURL  string
	gotQs   []string
}

func (m *mockQueryService) Answer(_ context.Context, documentURL string, questions []string) ([]string, error) {
	m.gotURL = documentURL
	m.gotQs = questions
	if m.err != nil {
		return nil, m.err
	}
	return m.answers, nil
}

// mockReporter implements driving.PoolReporter.
type mockReporter struct {
	reports []domain.CredentialReport
}

func (m *mockReporter) Report() []domain.CredentialReport { return m.reports }
func (m *mockReporter) HealthCheck(_ context.Context)     {}

func newTestServer(query *mockQueryService, reporter *mockReporter) *Server {
	if reporter == nil {
		reporter = &mockReporter{}
	}
	return NewServer(Config{Addr: ":0", BearerToken: "test-token"}, query, reporter)
}

func doRequest(t *testing.T, s *Server, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestRun(t *testing.T) {
	query := &mockQueryService{answers: []string{"Yes.", "24 months."}}
	s := newTestServer(query, nil)

	body := `{"documents":"https://example.com/policy.pdf","questions":["Is maternity covered?","What is the waiting period?"]}`
	rec := doRequest(t, s, http.MethodPost, "/hackrx/run", "test-token", body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp runResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"Yes.", "24 months."}, resp.Answers)

	assert.Equal(t, "https://example.com/policy.pdf", query.gotURL)
	assert.Len(t, query.gotQs, 2)
}

func TestRun_AuthRequired(t *testing.T) {
	s := newTestServer(&mockQueryService{}, nil)
	body := `{"documents":"https://example.com/p.pdf","questions":["q"]}`

	cases := []struct {
		name  string
		token string
	}{
		{"missing token", ""},
		{"wrong token", "wrong-token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodPost, "/hackrx/run", tc.token, body)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRun_MalformedBody(t *testing.T) {
	s := newTestServer(&mockQueryService{}, nil)
	rec := doRequest(t, s, http.MethodPost, "/hackrx/run", "test-token", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRun_MissingFields(t *testing.T) {
	s := newTestServer(&mockQueryService{}, nil)

	rec := doRequest(t, s, http.MethodPost, "/hackrx/run", "test-token", `{"questions":["q"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "documents URL is required")

	rec = doRequest(t, s, http.MethodPost, "/hackrx/run", "test-token", `{"documents":"https://example.com/p.pdf","questions":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "at least one question")
}

func TestRun_EmptyDocumentIsBadRequest(t *testing.T) {
	query := &mockQueryService{err: domain.ErrDocumentEmpty}
	s := newTestServer(query, nil)

	body := `{"documents":"https://example.com/scanned.pdf","questions":["q"]}`
	rec := doRequest(t, s, http.MethodPost, "/hackrx/run", "test-token", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "failed to extract text")
}

func TestRun_InternalError(t *testing.T) {
	query := &mockQueryService{err: errors.New("downstream exploded")}
	s := newTestServer(query, nil)

	body := `{"documents":"https://example.com/p.pdf","questions":["q"]}`
	rec := doRequest(t, s, http.MethodPost, "/hackrx/run", "test-token", body)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "downstream exploded", "internal details stay internal")
}

func TestStatus(t *testing.T) {
	reporter := &mockReporter{reports: []domain.CredentialReport{
		{Index: 0, MaskedKey: "...ef123456", Healthy: true, UsageCount: 12},
		{Index: 1, MaskedKey: "...xyz98765", Blocked: true, LastError: "organization_restricted"},
	}}
	s := newTestServer(&mockQueryService{}, reporter)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/status", "test-token", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Keys, 2)
	assert.True(t, resp.Keys[0].Healthy)
	assert.True(t, resp.Keys[1].Blocked)
}

func TestStatus_AuthRequired(t *testing.T) {
	s := newTestServer(&mockQueryService{}, nil)
	rec := doRequest(t, s, http.MethodGet, "/api/v1/status", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealth_NoAuth(t *testing.T) {
	s := newTestServer(&mockQueryService{}, nil)
	rec := doRequest(t, s, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestRun_MethodNotAllowed(t *testing.T) {
	s := newTestServer(&mockQueryService{}, nil)
	rec := doRequest(t, s, http.MethodGet, "/hackrx/run", "test-token", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
