package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "adstats/internal/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRequestID(t *testing.T) {
	a := GenerateRequestID()
	b := GenerateRequestID()

	assert.True(t, strings.HasPrefix(a, "req_"))
	assert.Len(t, a, len("req_")+16)
	assert.NotEqual(t, a, b)
}

func TestMiddleware_PropagatesRequestID(t *testing.T) {
	m := NewMiddleware(applog.Discard(), func(*http.Request) string { return "192.0.2.1" })

	var seenID string
	var seenLogger *applog.Logger
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		seenLogger = applog.FromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.NotEmpty(t, seenID)
	assert.Equal(t, seenID, rec.Header().Get(RequestIDHeader))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	require.NotNil(t, seenLogger)
	assert.Equal(t, applog.ComponentHTTP, seenLogger.Component())

	metrics := m.GetMetrics()
	assert.Equal(t, int64(1), metrics.TotalRequests)
}

func TestGetRequestID_Missing(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, GetRequestID(r.Context()))
}
