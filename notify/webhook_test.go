package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookSend(t *testing.T) {
	var gotAuth string
	var gotPayload webhookPayload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p := NewWebhookProvider(srv.URL, "s3cret", testLogger())
	require.NoError(t, p.Send(context.Background(), "hello outlet 1"))

	assert.Equal(t, "Bearer s3cret", gotAuth)
	assert.Equal(t, "hello outlet 1", gotPayload.Content)
}

func TestWebhookSendOmitsAuthWithoutToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewWebhookProvider(srv.URL, "", testLogger())
	require.NoError(t, p.Send(context.Background(), "ping"))
	assert.Empty(t, gotAuth)
}

func TestWebhookSendRetriesThenFails(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewWebhookProvider(srv.URL, "", testLogger())
	err := p.Send(context.Background(), "doomed")

	require.Error(t, err)
	assert.Equal(t, 3, hits, "bounded retries inside one dispatch")
}

func TestWebhookSendRecoversMidDispatch(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		if hits == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewWebhookProvider(srv.URL, "", testLogger())
	require.NoError(t, p.Send(context.Background(), "second try"))
	assert.Equal(t, 2, hits)
}
