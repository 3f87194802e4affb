// Package stationapi is the client for the remote community charging-station
// API: credential exchange for a session token plus queue-detail fetches.
package stationapi

import (
	"context"
	"encoding/json"
	"evqueue-notifier/pkg/station"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const successCode = 200

// sessionCookie is the cookie the remote expects the session token in.
const sessionCookie = "token"

// APIError is a remote response whose envelope code signals failure.
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("station API error %d: %s", e.Code, e.Msg)
}

// Client talks to the station API. It owns the session token and refreshes
// it on a fixed client-side interval; server-side expiry is never consulted.
type Client struct {
	rc           *resty.Client
	logger       *slog.Logger
	username     string
	password     string
	deviceID     string
	refreshEvery time.Duration

	token   string
	tokenAt time.Time
	now     func() time.Time
}

// New creates a station API client. No request is made until the first
// EnsureSession call.
func New(baseURL, username, password, deviceID string, refreshEvery time.Duration, logger *slog.Logger) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second)

	return &Client{
		rc:           rc,
		logger:       logger,
		username:     username,
		password:     password,
		deviceID:     deviceID,
		refreshEvery: refreshEvery,
		now:          time.Now,
	}
}

// envelope is the wrapper every station API response arrives in.
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type validateData struct {
	Token string `json:"token"`
}

type chargingRecord struct {
	SubscriberID   string `json:"subscriberId"`
	SubscriberName string `json:"subscriberName"`
	Status         string `json:"status"`
	StartTime      int64  `json:"startChargingTime"`
	OutletNo       int    `json:"outletNo"`
}

type onHoldRecord struct {
	SubscriberID   string `json:"subscriberId"`
	SubscriberName string `json:"subscriberName"`
	Status         string `json:"status"`
	OutletNo       int    `json:"outletNo"`
}

type queueDetailData struct {
	MaxChargingTime int64            `json:"maxChargingTime"`
	CurrTime        int64            `json:"currTime"`
	ChargingUsers   []chargingRecord `json:"chargingUserList"`
	OnHoldUsers     []onHoldRecord   `json:"onHoldUserList"`
}

// EnsureSession obtains a session token if none is held or the held one is
// older than the refresh interval. There is no retry here: the polling
// schedule is the retry cadence.
func (c *Client) EnsureSession(ctx context.Context) error {
	age := c.now().Sub(c.tokenAt)
	if c.token != "" && age < c.refreshEvery {
		return nil
	}

	c.logger.Info("Refreshing station session",
		"token_age", age.Round(time.Second).String(),
		"held", c.token != "")

	resp, err := c.rc.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"user_name":     c.username,
			"user_password": c.password,
		}).
		Post("/users/validate")
	if err != nil {
		return fmt.Errorf("validate request: %w", err)
	}

	var data validateData
	if err := decode(resp, &data); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if data.Token == "" {
		return fmt.Errorf("validate: empty token in response")
	}

	c.token = data.Token
	c.tokenAt = c.now()
	c.logger.Info("Station session refreshed")
	return nil
}

// QueueDetail fetches the current occupancy snapshot for the configured
// device. Charging entries without a subscriber id are dropped as malformed;
// on-hold entries are passed through unfiltered, matching the remote's
// observed behavior.
func (c *Client) QueueDetail(ctx context.Context) (*station.Snapshot, error) {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetFormData(map[string]string{"deviceId": c.deviceID}).
		SetCookie(&http.Cookie{Name: sessionCookie, Value: c.token}).
		Post("/community/getStationQueueDetail")
	if err != nil {
		return nil, fmt.Errorf("queue detail request: %w", err)
	}

	var data queueDetailData
	if err := decode(resp, &data); err != nil {
		return nil, fmt.Errorf("queue detail: %w", err)
	}

	snap := &station.Snapshot{
		MaxChargingTime: data.MaxChargingTime,
		CurrTime:        data.CurrTime,
	}
	for _, rec := range data.ChargingUsers {
		if rec.SubscriberID == "" {
			c.logger.Warn("Dropping charging entry without subscriber id",
				"name", rec.SubscriberName,
				"outlet", rec.OutletNo)
			continue
		}
		snap.ChargingUsers = append(snap.ChargingUsers, &station.ChargingUser{
			ID:        rec.SubscriberID,
			Name:      rec.SubscriberName,
			Status:    rec.Status,
			StartTime: rec.StartTime,
			Outlet:    rec.OutletNo,
		})
	}
	for _, rec := range data.OnHoldUsers {
		snap.OnHoldUsers = append(snap.OnHoldUsers, &station.OnHoldUser{
			ID:     rec.SubscriberID,
			Name:   rec.SubscriberName,
			Status: rec.Status,
			Outlet: rec.OutletNo,
		})
	}

	c.logger.Info("Queue detail fetched",
		"charging", len(snap.ChargingUsers),
		"on_hold", len(snap.OnHoldUsers),
		"curr_time", snap.CurrTime,
		"max_charging_time", snap.MaxChargingTime)

	return snap, nil
}

func decode(resp *resty.Response, out any) error {
	if resp.IsError() {
		return fmt.Errorf("HTTP %d", resp.StatusCode())
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if env.Code != successCode {
		return &APIError{Code: env.Code, Msg: env.Msg}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
