package apify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-token", WithBaseURL(srv.URL), WithWaitForFinish(60*time.Second))
}

func TestRunTask(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus string
		wantErr    bool
		wantAPIErr bool
		wantCode   int
	}{
		{
			name: "happy path",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/actor-tasks/acme~search-task/runs", r.URL.Path)
				assert.Equal(t, "60", r.URL.Query().Get("waitForFinish"))
				assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

				var input map[string]any
				require.NoError(t, json.NewDecoder(r.Body).Decode(&input))
				assert.Equal(t, "pinkpop festival", input["queries"])

				w.WriteHeader(http.StatusCreated)
				json.NewEncoder(w).Encode(runEnvelope{Data: Run{
					ID:               "run-1",
					Status:           StatusSucceeded,
					DefaultDatasetID: "ds-1",
				}})
			},
			wantStatus: StatusSucceeded,
		},
		{
			name: "failed run status is returned, not an error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(runEnvelope{Data: Run{
					ID:            "run-2",
					Status:        StatusFailed,
					StatusMessage: "Actor ran out of memory",
				}})
			},
			wantStatus: StatusFailed,
		},
		{
			name: "payment required",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusPaymentRequired)
				w.Write([]byte(`{"error":{"message":"Monthly usage hard limit exceeded"}}`))
			},
			wantErr:    true,
			wantAPIErr: true,
			wantCode:   402,
		},
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":{"message":"Rate limit exceeded"}}`))
			},
			wantErr:    true,
			wantAPIErr: true,
			wantCode:   429,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, tt.handler)
			run, err := c.RunTask(context.Background(), "acme~search-task", map[string]any{"queries": "pinkpop festival"})

			if tt.wantErr {
				require.Error(t, err)
				if tt.wantAPIErr {
					var apiErr *APIError
					require.ErrorAs(t, err, &apiErr)
					assert.Equal(t, tt.wantCode, apiErr.StatusCode)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, run.Status)
		})
	}
}

func TestRun_Succeeded(t *testing.T) {
	assert.True(t, (&Run{Status: StatusSucceeded}).Succeeded())
	assert.False(t, (&Run{Status: StatusFailed}).Succeeded())
	assert.False(t, (&Run{Status: StatusTimedOut}).Succeeded())
}

func TestGetDatasetItems(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/datasets/ds-1/items", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("clean"))

		json.NewEncoder(w).Encode([]map[string]any{
			{"url": "https://pinkpop.nl", "title": "Pinkpop"},
			{"url": "https://example.com", "title": "Other"},
		})
	})

	items, err := c.GetDatasetItems(context.Background(), "ds-1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "https://pinkpop.nl", items[0]["url"])
}

func TestGetDatasetItems_NotFound(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"message":"Dataset was not found"}}`))
	})

	_, err := c.GetDatasetItems(context.Background(), "missing")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.StatusCode)
}
