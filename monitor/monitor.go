// Package monitor turns successive station snapshots into at-most-once
// notifications: session started, time almost up, your turn.
package monitor

import (
	"context"
	"evqueue-notifier/pkg/station"
	"fmt"
	"log/slog"
	"time"
)

// StationAPI interface for session handling and snapshot fetching.
type StationAPI interface {
	EnsureSession(ctx context.Context) error
	QueueDetail(ctx context.Context) (*station.Snapshot, error)
}

// Notifier interface for sending the three notification kinds.
type Notifier interface {
	SessionStarted(ctx context.Context, name string, outlet int, endsAt time.Time) error
	AlmostUp(ctx context.Context, recipient, name string, outlet int) error
	TurnReady(ctx context.Context, recipient, name string, outlet int) error
}

// Options are the knobs the diff engine and the gating need.
type Options struct {
	// Recipients maps occupant display names to messaging handles.
	// Names absent from the map never get addressed notifications.
	Recipients map[string]string

	// WarningOffset is the lead time, in remote-clock seconds, before
	// session end at which the almost-up notice fires.
	WarningOffset int64

	// WorkdayStart/WorkdayEnd bound polling to local hours
	// [WorkdayStart, WorkdayEnd). Weekends are always skipped.
	WorkdayStart int
	WorkdayEnd   int
}

// chargingSlot is the retained charging-track state for one outlet.
type chargingSlot struct {
	user         *station.ChargingUser
	exitNotified bool
}

// onHoldSlot is the retained on-hold-track state for one outlet.
type onHoldSlot struct {
	user            *station.OnHoldUser
	waitingNotified bool
}

// Monitor owns the per-outlet state between polls. It is not safe for
// concurrent use; the scheduler guarantees single-flight invocation.
type Monitor struct {
	api      StationAPI
	notifier Notifier
	logger   *slog.Logger
	opts     Options

	charging map[int]*chargingSlot
	onHold   map[int]*onHoldSlot
	firstRun bool

	now func() time.Time
}

// New creates a monitor. State starts empty, so the first completed poll
// only records occupants without announcing them.
func New(api StationAPI, notifier Notifier, opts Options, logger *slog.Logger) *Monitor {
	return &Monitor{
		api:      api,
		notifier: notifier,
		logger:   logger,
		opts:     opts,
		charging: make(map[int]*chargingSlot),
		onHold:   make(map[int]*onHoldSlot),
		firstRun: true,
		now:      time.Now,
	}
}

// Run is the scheduler entrypoint: apply the working-hours gate, then run
// one poll cycle. A failed cycle, including the very first one, is only
// logged; the next tick retries.
func (m *Monitor) Run(ctx context.Context) {
	if ok, reason := pollDecision(m.now(), m.opts.WorkdayStart, m.opts.WorkdayEnd); !ok {
		m.logger.Info("Skipping poll", "reason", reason)
		return
	}

	if err := m.Check(ctx); err != nil {
		m.logger.Error("Poll cycle failed", "error", err)
	}
}

// Check runs one cycle: refresh the session if due, fetch a snapshot, and
// diff it against the retained state.
func (m *Monitor) Check(ctx context.Context) error {
	if err := m.api.EnsureSession(ctx); err != nil {
		return fmt.Errorf("ensure session: %w", err)
	}

	snap, err := m.api.QueueDetail(ctx)
	if err != nil {
		return fmt.Errorf("fetch snapshot: %w", err)
	}

	m.apply(ctx, snap)
	return nil
}

// apply diffs one snapshot against the retained per-outlet state. Outlets
// are independent; nothing here depends on ordering across outlets. An
// occupant absent from the snapshot leaves its slot untouched: the remote
// never reports empty outlets, so absence is not treated as vacancy.
func (m *Monitor) apply(ctx context.Context, snap *station.Snapshot) {
	firstRun := m.firstRun
	m.firstRun = false

	for _, user := range snap.ChargingUsers {
		m.trackCharging(ctx, snap, user, firstRun)
	}
	for _, user := range snap.OnHoldUsers {
		m.trackOnHold(ctx, user)
	}
}

func (m *Monitor) trackCharging(ctx context.Context, snap *station.Snapshot, user *station.ChargingUser, firstRun bool) {
	slot, ok := m.charging[user.Outlet]
	if !ok || slot.user.ID != user.ID {
		// New occupancy: replace wholesale, flags reset.
		slot = &chargingSlot{user: user}
		m.charging[user.Outlet] = slot

		m.logger.Info("New charging occupant",
			"outlet", user.Outlet,
			"name", user.Name,
			"status", user.Status,
			"start_time", user.StartTime)

		if !firstRun {
			endsAt := time.Unix(user.StartTime+snap.MaxChargingTime, 0)
			if err := m.notifier.SessionStarted(ctx, user.Name, user.Outlet, endsAt); err != nil {
				m.logger.Warn("Session-started notification failed",
					"outlet", user.Outlet,
					"name", user.Name,
					"error", err)
			}
		}
	}

	if slot.exitNotified || slot.user.Status != station.StatusCharging {
		return
	}
	recipient, known := m.opts.Recipients[slot.user.Name]
	if !known {
		return
	}

	// Remote clock only: endsAt inside the warning window, boundary
	// inclusive.
	if slot.user.StartTime+snap.MaxChargingTime <= snap.CurrTime+m.opts.WarningOffset {
		if err := m.notifier.AlmostUp(ctx, recipient, slot.user.Name, slot.user.Outlet); err != nil {
			m.logger.Warn("Almost-up notification failed",
				"outlet", slot.user.Outlet,
				"name", slot.user.Name,
				"error", err)
		}
		// Delivery is attempted once per occupancy, success or not.
		slot.exitNotified = true
	}
}

func (m *Monitor) trackOnHold(ctx context.Context, user *station.OnHoldUser) {
	slot, ok := m.onHold[user.Outlet]
	if !ok || slot.user.ID != user.ID {
		slot = &onHoldSlot{user: user}
		m.onHold[user.Outlet] = slot

		m.logger.Info("New on-hold occupant",
			"outlet", user.Outlet,
			"name", user.Name,
			"status", user.Status)
	}

	if slot.waitingNotified || slot.user.Status != station.StatusAcceptPending {
		return
	}
	recipient, known := m.opts.Recipients[slot.user.Name]
	if !known {
		return
	}

	if err := m.notifier.TurnReady(ctx, recipient, slot.user.Name, slot.user.Outlet); err != nil {
		m.logger.Warn("Your-turn notification failed",
			"outlet", slot.user.Outlet,
			"name", slot.user.Name,
			"error", err)
	}
	slot.waitingNotified = true
}

// pollDecision decides whether a tick should poll at all, based on the
// local wall clock.
func pollDecision(now time.Time, startHour, endHour int) (ok bool, reason string) {
	switch now.Weekday() {
	case time.Saturday, time.Sunday:
		return false, "weekend"
	default:
	}

	hour := now.Hour()
	if hour < startHour || hour >= endHour {
		return false, "outside working hours"
	}

	return true, "within working hours"
}
