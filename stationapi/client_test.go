package stationapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stationStub is a fake remote station API.
type stationStub struct {
	validateHits    int
	queueHits       int
	validateStatus  int
	validateBody    string
	queueBody       string
	lastQueueCookie string
	lastDeviceID    string
	lastForm        map[string]string
}

func newStationStub() *stationStub {
	return &stationStub{
		validateStatus: http.StatusOK,
		validateBody:   `{"code":200,"msg":"ok","data":{"token":"tok-1"}}`,
		queueBody: `{"code":200,"msg":"ok","data":{
			"maxChargingTime":7200,"currTime":7900,
			"chargingUserList":[
				{"subscriberId":"u1","subscriberName":"Alice","status":"CHARGING","startChargingTime":1000,"outletNo":1},
				{"subscriberId":"","subscriberName":"Ghost","status":"CHARGING","startChargingTime":2000,"outletNo":2}
			],
			"onHoldUserList":[
				{"subscriberId":"","subscriberName":"Nameless","status":"ACCEPT_PENDING","outletNo":1}
			]}}`,
	}
}

func (s *stationStub) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/users/validate", func(w http.ResponseWriter, r *http.Request) {
		s.validateHits++
		require.NoError(t, r.ParseForm())
		s.lastForm = map[string]string{
			"user_name":     r.PostFormValue("user_name"),
			"user_password": r.PostFormValue("user_password"),
		}
		w.WriteHeader(s.validateStatus)
		fmt.Fprint(w, s.validateBody)
	})
	mux.HandleFunc("/community/getStationQueueDetail", func(w http.ResponseWriter, r *http.Request) {
		s.queueHits++
		require.NoError(t, r.ParseForm())
		s.lastDeviceID = r.PostFormValue("deviceId")
		if c, err := r.Cookie(sessionCookie); err == nil {
			s.lastQueueCookie = c.Value
		}
		fmt.Fprint(w, s.queueBody)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, stub *stationStub, now *time.Time) *Client {
	t.Helper()
	srv := stub.server(t)
	c := New(srv.URL, "user", "secret", "dev-42", 6*time.Hour, testLogger())
	c.now = func() time.Time { return *now }
	return c
}

func TestEnsureSessionExchangesCredentials(t *testing.T) {
	stub := newStationStub()
	now := time.Now()
	c := newTestClient(t, stub, &now)

	require.NoError(t, c.EnsureSession(context.Background()))

	assert.Equal(t, 1, stub.validateHits)
	assert.Equal(t, "user", stub.lastForm["user_name"])
	assert.Equal(t, "secret", stub.lastForm["user_password"])
	assert.Equal(t, "tok-1", c.token)
}

func TestEnsureSessionRefreshIsTimeBased(t *testing.T) {
	stub := newStationStub()
	now := time.Now()
	c := newTestClient(t, stub, &now)

	require.NoError(t, c.EnsureSession(context.Background()))
	require.Equal(t, 1, stub.validateHits)

	// Inside the refresh window nothing happens.
	now = now.Add(5 * time.Hour)
	require.NoError(t, c.EnsureSession(context.Background()))
	assert.Equal(t, 1, stub.validateHits)

	// Past the window the token is exchanged again.
	now = now.Add(2 * time.Hour)
	stub.validateBody = `{"code":200,"msg":"ok","data":{"token":"tok-2"}}`
	require.NoError(t, c.EnsureSession(context.Background()))
	assert.Equal(t, 2, stub.validateHits)
	assert.Equal(t, "tok-2", c.token)
}

func TestEnsureSessionPropagatesHTTPFailure(t *testing.T) {
	stub := newStationStub()
	stub.validateStatus = http.StatusInternalServerError
	now := time.Now()
	c := newTestClient(t, stub, &now)

	err := c.EnsureSession(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "HTTP 500")
	// Exactly one attempt: retry cadence belongs to the polling loop.
	assert.Equal(t, 1, stub.validateHits)
}

func TestEnsureSessionPropagatesEnvelopeFailure(t *testing.T) {
	stub := newStationStub()
	stub.validateBody = `{"code":401,"msg":"bad credentials","data":null}`
	now := time.Now()
	c := newTestClient(t, stub, &now)

	err := c.EnsureSession(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.Code)
	assert.Equal(t, "bad credentials", apiErr.Msg)
}

func TestQueueDetailMapsSnapshot(t *testing.T) {
	stub := newStationStub()
	now := time.Now()
	c := newTestClient(t, stub, &now)
	require.NoError(t, c.EnsureSession(context.Background()))

	snap, err := c.QueueDetail(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "dev-42", stub.lastDeviceID)
	assert.Equal(t, "tok-1", stub.lastQueueCookie, "token travels as a session cookie")

	assert.Equal(t, int64(7200), snap.MaxChargingTime)
	assert.Equal(t, int64(7900), snap.CurrTime)

	// Charging entries without a subscriber id are dropped; on-hold
	// entries are passed through as-is.
	require.Len(t, snap.ChargingUsers, 1)
	got := snap.ChargingUsers[0]
	assert.Equal(t, "u1", got.ID)
	assert.Equal(t, "Alice", got.Name)
	assert.Equal(t, "CHARGING", got.Status)
	assert.Equal(t, int64(1000), got.StartTime)
	assert.Equal(t, 1, got.Outlet)

	require.Len(t, snap.OnHoldUsers, 1)
	assert.Empty(t, snap.OnHoldUsers[0].ID)
	assert.Equal(t, "Nameless", snap.OnHoldUsers[0].Name)
}

func TestQueueDetailPropagatesDecodeFailure(t *testing.T) {
	stub := newStationStub()
	stub.queueBody = `not json`
	now := time.Now()
	c := newTestClient(t, stub, &now)

	_, err := c.QueueDetail(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "decode envelope")
}
