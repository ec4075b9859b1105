package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observation struct {
	method string
	route  string
	status int
}

type fakeObserver struct {
	seen []observation
}

func (f *fakeObserver) ObserveHTTP(method, route string, status int, duration time.Duration) {
	f.seen = append(f.seen, observation{method: method, route: route, status: status})
}

func TestMetricsMiddleware(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("POST /api/v1/users/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{}"))
	})

	obs := &fakeObserver{}
	handler := MetricsMiddleware(obs)(mux)

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/v1/users/1", nil),
		httptest.NewRequest(http.MethodGet, "/api/v1/users/2", nil),
		httptest.NewRequest(http.MethodPost, "/api/v1/users/login", nil),
		httptest.NewRequest(http.MethodGet, "/nowhere", nil),
	} {
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	require.Len(t, obs.seen, 4)
	assert.Equal(t, observation{http.MethodGet, "GET /api/v1/users/{id}", http.StatusNotFound}, obs.seen[0])
	assert.Equal(t, observation{http.MethodGet, "GET /api/v1/users/{id}", http.StatusNotFound}, obs.seen[1])
	assert.Equal(t, observation{http.MethodPost, "POST /api/v1/users/login", http.StatusOK}, obs.seen[2])
	assert.Equal(t, http.StatusNotFound, obs.seen[3].status)
}
