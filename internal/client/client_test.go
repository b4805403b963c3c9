package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderdesk/dashboard/internal/domain"
)

type recordingObserver struct {
	mu       sync.Mutex
	outcomes map[string]string
}

func (r *recordingObserver) ObserveRequest(op, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = make(map[string]string)
	}
	r.outcomes[op] = outcome
}

func (r *recordingObserver) get(op string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcomes[op]
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{
		BaseURL:    srv.URL + "/api",
		Timeout:    2 * time.Second,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	}, opts...)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew(t *testing.T) {
	c, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.BaseURL())

	_, err = New(Config{BaseURL: "localhost"})
	assert.Error(t, err)
}

func TestListEmails(t *testing.T) {
	t.Run("sends every filter key and decodes page", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/api/emails", r.URL.Path)
			assert.Equal(t, "2", r.URL.Query().Get("page"))
			assert.Equal(t, "10", r.URL.Query().Get("limit"))
			assert.Equal(t, "completed", r.URL.Query().Get("status"))
			assert.True(t, r.URL.Query().Has("priority"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, "application/json", r.Header.Get("Accept"))
			assert.NotEmpty(t, r.Header.Get(RequestIDHeader))

			writeJSON(w, http.StatusOK, map[string]any{
				"success": true,
				"data": map[string]any{
					"emails": []any{
						map[string]any{"_id": "e1", "trackingId": "TRK-1", "status": "completed"},
						"garbage",
						map[string]any{"_id": "e2", "trackingId": "TRK-2", "status": "pending"},
					},
					"pagination": map[string]any{"page": 2, "limit": 10, "total": 12, "totalPages": 2, "hasPrev": true},
				},
			})
		})

		filters := domain.NewFilters(map[string]string{"status": "completed", "priority": ""}).WithPage(2)
		page, err := c.ListEmails(context.Background(), filters)
		require.NoError(t, err)

		require.Len(t, page.Items, 2)
		assert.Equal(t, "TRK-1", page.Items[0].TrackingID)
		assert.Equal(t, "TRK-2", page.Items[1].TrackingID)
		assert.Equal(t, domain.Pagination{Page: 2, Limit: 10, Total: 12, TotalPages: 2, HasPrev: true}, page.Pagination.Resolve())
	})

	t.Run("missing items field yields empty list", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{}})
		})

		page, err := c.ListEmails(context.Background(), domain.NewFilters(nil))
		require.NoError(t, err)
		assert.NotNil(t, page.Items)
		assert.Empty(t, page.Items)
		assert.Equal(t, 1, page.Pagination.Resolve().TotalPages)
	})

	t.Run("items field not a list yields empty list", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"emails": "nope"}})
		})

		page, err := c.ListEmails(context.Background(), domain.NewFilters(nil))
		require.NoError(t, err)
		assert.NotNil(t, page.Items)
		assert.Empty(t, page.Items)
	})
}

func TestErrorNormalization(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
		wantMsg    string
	}{
		{
			name: "backend message preferred",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "Email not found"})
			},
			wantStatus: http.StatusNotFound,
			wantMsg:    "Email not found",
		},
		{
			name: "status text when body is not json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = io.WriteString(w, "<html>bad</html>")
			},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Request failed with status code 400",
		},
		{
			name: "rejected inside 2xx",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Invalid tracking id"})
			},
			wantStatus: http.StatusOK,
			wantMsg:    "Invalid tracking id",
		},
		{
			name: "rejected without message",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{"success": false})
			},
			wantStatus: http.StatusOK,
			wantMsg:    DefaultMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)

			_, err := c.GetEmail(context.Background(), "TRK-1")
			require.Error(t, err)

			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, "get_email", apiErr.Op)
			assert.Equal(t, tt.wantStatus, apiErr.Status)
			assert.Equal(t, tt.wantMsg, Message(err))
			assert.Equal(t, tt.wantStatus, StatusCode(err))
		})
	}

	t.Run("transport error text", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		base := srv.URL
		srv.Close()

		c, err := New(Config{BaseURL: base, RetryDelay: time.Millisecond})
		require.NoError(t, err)

		_, err = c.EmailStats(context.Background())
		require.Error(t, err)
		assert.Equal(t, 0, StatusCode(err))
		assert.NotEmpty(t, Message(err))
		assert.NotEqual(t, DefaultMessage, Message(err))
	})
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "boom", Message(errors.New("boom")))
	assert.Equal(t, DefaultMessage, newError("op", 0, "", nil).Message)
}

func TestRetryPolicy(t *testing.T) {
	tests := []struct {
		name      string
		call      func(c *Client) error
		wantCalls int32
	}{
		{
			name: "GET retried until exhausted",
			call: func(c *Client) error {
				_, err := c.OrderStats(context.Background())
				return err
			},
			wantCalls: 3,
		},
		{
			name: "PUT retried",
			call: func(c *Client) error {
				status := domain.SyncStatusSynced
				_, err := c.UpdateOrder(context.Background(), "o1", domain.OrderUpdate{SyncStatus: &status})
				return err
			},
			wantCalls: 3,
		},
		{
			name:      "DELETE email sent once",
			call:      func(c *Client) error { return c.DeleteEmail(context.Background(), "TRK-1") },
			wantCalls: 1,
		},
		{
			name:      "DELETE order sent once",
			call:      func(c *Client) error { return c.DeleteOrder(context.Background(), "o1") },
			wantCalls: 1,
		},
		{
			name: "reprocess sent once",
			call: func(c *Client) error {
				_, err := c.ReprocessEmail(context.Background(), "TRK-1")
				return err
			},
			wantCalls: 1,
		},
		{
			name:      "convert sent once",
			call:      func(c *Client) error { return c.ConvertEmail(context.Background(), "TRK-1") },
			wantCalls: 1,
		},
		{
			name: "upload sent once",
			call: func(c *Client) error {
				_, err := c.UploadEmail(context.Background(), domain.UploadRequest{From: "a@b.com", Subject: "PO"})
				return err
			},
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				writeJSON(w, http.StatusServiceUnavailable, map[string]any{"message": "busy"})
			})

			err := tt.call(c)
			require.Error(t, err)
			assert.Equal(t, "busy", Message(err))
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestRetryRecovers(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    map[string]any{"totalOrders": 4, "syncedOrders": 3, "avgConfidence": 0.9},
		})
	})

	stats, err := c.OrderStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 4, stats.TotalOrders)
	assert.Equal(t, 3, stats.SyncedOrders)
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Order not found"})
	})

	_, err := c.GetOrder(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCancelledContextStopsRetries(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		cancel()
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.EmailStats(ctx)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetEmailNormalizesOrders(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/emails/TRK-9", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data": map[string]any{
				"email": map[string]any{"_id": "e9", "trackingId": "TRK-9", "from": "Bob <bob@x.com>"},
				"order": map[string]any{"id": 1},
			},
		})
	})

	d, err := c.GetEmail(context.Background(), "TRK-9")
	require.NoError(t, err)
	require.NotNil(t, d.Email)
	require.Len(t, d.Orders, 1)
	assert.Equal(t, domain.ID("1"), d.Orders[0].ID)
	assert.Equal(t, "Bob", domain.ResolveCustomerName(d.Orders[0]))
}

func TestReprocessEmail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/emails/TRK-1/reprocess", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "No purchase order detected",
			"data":    map[string]any{"noOrderFound": true},
		})
	})

	result, err := c.ReprocessEmail(context.Background(), "TRK-1")
	require.NoError(t, err)
	assert.True(t, result.NoOrderFound)
	assert.Equal(t, "No purchase order detected", result.Message)
}

func TestUpdateOrderSendsJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/orders/o1", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "synced", body["syncStatus"])
		assert.NotContains(t, body, "currency")

		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    map[string]any{"id": "o1", "syncStatus": "synced"},
		})
	})

	status := domain.SyncStatusSynced
	order, err := c.UpdateOrder(context.Background(), "o1", domain.OrderUpdate{SyncStatus: &status})
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStatusSynced, order.SyncStatus)
}

func TestUploadEmail(t *testing.T) {
	t.Run("multipart fields and parts", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/webhook/email", r.URL.Path)
			require.NoError(t, r.ParseMultipartForm(1<<20))

			assert.Equal(t, "buyer@acme.com", r.FormValue("from"))
			assert.Equal(t, "ops@x.com", r.FormValue("to"))
			assert.Equal(t, "PO 123", r.FormValue("subject"))
			assert.Equal(t, "see attached", r.FormValue("body"))

			files := r.MultipartForm.File["attachments"]
			require.Len(t, files, 2)
			assert.Equal(t, "po.pdf", files[0].Filename)
			assert.Equal(t, "application/pdf", files[0].Header.Get("Content-Type"))
			assert.Equal(t, "notes.txt", files[1].Filename)
			assert.Equal(t, "text/plain", files[1].Header.Get("Content-Type"))

			writeJSON(w, http.StatusCreated, map[string]any{
				"success": true,
				"message": "Email received",
				"data":    map[string]any{"trackingId": "TRK-NEW", "status": "pending"},
			})
		})

		result, err := c.UploadEmail(context.Background(), domain.UploadRequest{
			From:    "buyer@acme.com",
			To:      "ops@x.com",
			Subject: "PO 123",
			Body:    "see attached",
			Attachments: []domain.UploadFile{
				{Filename: "po.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")},
				{Filename: "notes.txt", ContentType: "text/plain", Data: []byte("hello")},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "TRK-NEW", result.TrackingID)
		assert.Equal(t, domain.EmailStatusPending, result.Status)
		assert.Equal(t, "Email received", result.Message)
	})

	t.Run("validation failure issues no request", func(t *testing.T) {
		var calls atomic.Int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		})

		_, err := c.UploadEmail(context.Background(), domain.UploadRequest{Subject: "PO"})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrFromRequired)
		assert.Equal(t, int32(0), calls.Load())
	})
}

func TestObserver(t *testing.T) {
	obs := &recordingObserver{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{}})
	}, WithObserver(obs))

	_, err := c.EmailStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, obs.get("email_stats"))

	require.Error(t, c.DeleteOrder(context.Background(), "o1"))
	assert.Equal(t, OutcomeServer, obs.get("delete_order"))
}

func TestOAuthURL(t *testing.T) {
	c, err := New(Config{BaseURL: "http://backend:3000/api/"})
	require.NoError(t, err)

	u, ok := c.OAuthURL(ProviderGoogle)
	require.True(t, ok)
	assert.Equal(t, "http://backend:3000/api/auth/google", u)

	u, ok = c.OAuthURL(ProviderGmail)
	require.True(t, ok)
	assert.Equal(t, "http://backend:3000/api/auth/gmail/connect", u)

	_, ok = c.OAuthURL("github")
	assert.False(t, ok)
}
