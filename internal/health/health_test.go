package health

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadyHandler(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected int
	}{
		{"后端正常", http.StatusOK, http.StatusOK},
		{"后端错误", http.StatusInternalServerError, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer backend.Close()

			hc := NewHealthChecker(backend.URL+"/emails/stats", nil)
			rec := httptest.NewRecorder()
			hc.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			assert.Equal(t, tt.expected, rec.Code)
		})
	}
}

func TestReadyHandler_BackendDown(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	url := backend.URL
	backend.Close()

	hc := NewHealthChecker(url, nil)
	assert.Error(t, hc.BackendCheck()())

	rec := httptest.NewRecorder()
	hc.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLiveHandler_IgnoresBackend(t *testing.T) {
	// 后端不可用不影响 liveness
	hc := NewHealthChecker("http://127.0.0.1:1/unreachable", nil)

	rec := httptest.NewRecorder()
	hc.LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
