package labclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labflow/backend/internal/domain/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSetClient(t *testing.T, handler http.HandlerFunc) *SetClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewSetClient(ServiceConfig{BaseURL: server.URL})
	require.NoError(t, err)
	return client
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", jsonAPIContentType)
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestSetClient_Find(t *testing.T) {
	client := newSetClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/sets/set-1", r.URL.Path)
		assert.Empty(t, r.URL.Query().Get("include"))
		assert.Equal(t, jsonAPIContentType, r.Header.Get("Accept"))
		writeJSON(t, w, http.StatusOK, map[string]any{
			"data": map[string]any{
				"id":         "set-1",
				"type":       "sets",
				"attributes": map[string]any{"name": "Work Order 7", "owner_id": "owner@example.com", "locked": true},
				"meta":       map[string]any{"size": 96},
			},
		})
	})

	set, err := client.Find(context.Background(), "set-1")
	require.NoError(t, err)

	assert.Equal(t, "set-1", set.ID)
	assert.Equal(t, "Work Order 7", set.Name)
	assert.Equal(t, "owner@example.com", set.Owner)
	assert.True(t, set.Locked)
	require.NotNil(t, set.Size())
	assert.Equal(t, 96, *set.Size())
	assert.Nil(t, set.Materials)
}

func TestSetClient_FindWithMaterials(t *testing.T) {
	client := newSetClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "materials", r.URL.Query().Get("include"))
		writeJSON(t, w, http.StatusOK, map[string]any{
			"data": map[string]any{
				"id": "set-1", "type": "sets",
				"attributes": map[string]any{"name": "s"},
				"relationships": map[string]any{
					"materials": map[string]any{"data": []map[string]string{
						{"type": "materials", "id": "m-1"},
						{"type": "materials", "id": "m-2"},
					}},
				},
			},
		})
	})

	set, err := client.FindWithMaterials(context.Background(), "set-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"m-1", "m-2"}, set.MaterialIDs())
}

func TestSetClient_NotFound(t *testing.T) {
	client := newSetClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusNotFound, map[string]any{"errors": []map[string]string{{"status": "404"}}})
	})

	_, err := client.Find(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, remote.IsNotFound(err))
	var se *remote.ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, remote.ServiceSets, se.Service)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
}

func TestSetClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"server error", http.StatusBadGateway, remote.ErrServiceUnavailable},
		{"validation error", http.StatusUnprocessableEntity, remote.ErrRequestFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newSetClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"errors":[{"detail":"nope"}]}`))
			})

			err := client.Destroy(context.Background(), "set-1")

			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestSetClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()
	client, err := NewSetClient(ServiceConfig{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Create(context.Background(), "x")

	assert.ErrorIs(t, err, remote.ErrServiceUnavailable)
}

func TestSetClient_CreateAndPopulate(t *testing.T) {
	var populated []string
	client := newSetClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/sets":
			var doc struct {
				Data struct {
					Type       string `json:"type"`
					Attributes struct {
						Name string `json:"name"`
					} `json:"attributes"`
				} `json:"data"`
			}
			require.NoError(t, json.Unmarshal(body, &doc))
			assert.Equal(t, "sets", doc.Data.Type)
			assert.Equal(t, "Job 1 Input Set", doc.Data.Attributes.Name)
			assert.Equal(t, jsonAPIContentType, r.Header.Get("Content-Type"))
			writeJSON(t, w, http.StatusCreated, map[string]any{
				"data": map[string]any{"id": "new-set", "type": "sets", "attributes": map[string]any{"name": doc.Data.Attributes.Name}},
			})
		case r.Method == http.MethodPatch && r.URL.Path == "/api/v1/sets/new-set/relationships/materials":
			var doc struct {
				Data []resourceIdentifier `json:"data"`
			}
			require.NoError(t, json.Unmarshal(body, &doc))
			for _, m := range doc.Data {
				assert.Equal(t, "materials", m.Type)
				populated = append(populated, m.ID)
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})
	ctx := context.Background()

	set, err := client.Create(ctx, "Job 1 Input Set")
	require.NoError(t, err)
	assert.Equal(t, "new-set", set.ID)
	assert.False(t, set.Locked)

	require.NoError(t, client.SetMaterials(ctx, set.ID, []string{"m-1", "m-2"}))
	assert.Equal(t, []string{"m-1", "m-2"}, populated)
}

func TestSetClient_UpdateSendsOnlyGivenFields(t *testing.T) {
	client := newSetClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		var doc struct {
			Data struct {
				ID         string         `json:"id"`
				Attributes map[string]any `json:"attributes"`
			} `json:"data"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&doc))
		assert.Equal(t, "set-1", doc.Data.ID)
		assert.Equal(t, map[string]any{"locked": true}, doc.Data.Attributes)
		writeJSON(t, w, http.StatusOK, map[string]any{
			"data": map[string]any{"id": "set-1", "type": "sets", "attributes": map[string]any{"name": "s", "locked": true}},
		})
	})
	locked := true

	set, err := client.Update(context.Background(), "set-1", remote.SetUpdate{Locked: &locked})

	require.NoError(t, err)
	assert.True(t, set.IsLocked())
}

func TestSetClient_Clone(t *testing.T) {
	client := newSetClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/sets/orig/clone", r.URL.Path)
		var doc struct {
			Data struct {
				Attributes cloneAttributes `json:"attributes"`
			} `json:"data"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&doc))
		writeJSON(t, w, http.StatusCreated, map[string]any{
			"data": map[string]any{"id": "clone", "type": "sets", "attributes": map[string]any{
				"name": doc.Data.Attributes.Name, "locked": doc.Data.Attributes.Locked,
			}},
		})
	})

	locked, err := client.CreateLockedClone(context.Background(), "orig", "Work Order 1")
	require.NoError(t, err)
	assert.True(t, locked.Locked)
	assert.Equal(t, "Work Order 1", locked.Name)

	unlocked, err := client.CreateUnlockedClone(context.Background(), "orig", "Work Order 1")
	require.NoError(t, err)
	assert.False(t, unlocked.Locked)
}

func TestSetClient_MissingID(t *testing.T) {
	client := newSetClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"data": map[string]any{"type": "sets"}})
	})

	_, err := client.Find(context.Background(), "set-1")

	assert.ErrorIs(t, err, remote.ErrRequestFailed)
}
