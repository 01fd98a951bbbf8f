package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/channel-sync/internal/domain/sync"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_ShipOrder(t *testing.T) {
	t.Run("sends the order and the idempotency key", func(t *testing.T) {
		var gotPath, gotKey, gotAuth string
		var gotBody map[string]string

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotKey = r.Header.Get("Idempotency-Key")
			gotAuth = r.Header.Get("Authorization")
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, &gotBody)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client, err := NewClient(server.URL, "secret-key", server.Client())
		require.NoError(t, err)

		orderID := uuid.New()
		err = client.ShipOrder(context.Background(), orderID, "ship-"+orderID.String())
		require.NoError(t, err)

		assert.Equal(t, "/api/v1/orders/ship", gotPath)
		assert.Equal(t, "ship-"+orderID.String(), gotKey)
		assert.Equal(t, "Bearer secret-key", gotAuth)
		assert.Equal(t, orderID.String(), gotBody["orderId"])
	})

	t.Run("rejects an empty idempotency key", func(t *testing.T) {
		client, err := NewClient("http://localhost:1", "", nil)
		require.NoError(t, err)

		err = client.ShipOrder(context.Background(), uuid.New(), "")
		assert.Error(t, err)
	})

	t.Run("surfaces remote errors as platform errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "order not shippable", http.StatusConflict)
		}))
		defer server.Close()

		client, err := NewClient(server.URL, "", server.Client())
		require.NoError(t, err)

		err = client.ShipOrder(context.Background(), uuid.New(), "key-1")
		var pe *sync.PlatformError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, http.StatusConflict, pe.StatusCode)
		assert.Contains(t, pe.Message, "not shippable")
	})

	t.Run("maps transport failures to unavailable", func(t *testing.T) {
		client, err := NewClient("http://127.0.0.1:1", "", nil)
		require.NoError(t, err)

		err = client.ShipOrder(context.Background(), uuid.New(), "key-1")
		assert.ErrorIs(t, err, sync.ErrPlatformUnavailable)
	})
}

func TestClient_CancelOrder(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "", server.Client())
	require.NoError(t, err)

	require.NoError(t, client.CancelOrder(context.Background(), uuid.New(), "cancel-1"))
	assert.Equal(t, "/api/v1/orders/cancel", gotPath)
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient("", "", nil)
	assert.Error(t, err)
}
