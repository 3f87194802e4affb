// Package station contains the core domain types for the charging-queue
// notification service.
package station

// Remote occupant status values as reported by the station API.
const (
	StatusCharging      = "CHARGING"
	StatusAcceptPending = "ACCEPT_PENDING"
)

// ChargingUser is the subscriber currently charging on an outlet.
type ChargingUser struct {
	ID        string // opaque subscriber id, identity key for the occupancy
	Name      string // display name, key into the recipient roster
	Status    string // remote status enum, e.g. CHARGING
	StartTime int64  // epoch seconds when charging began
	Outlet    int    // physical outlet number
}

// OnHoldUser is a subscriber queued for an outlet, waiting to accept.
type OnHoldUser struct {
	ID     string
	Name   string
	Status string // remote status enum, e.g. ACCEPT_PENDING
	Outlet int
}

// Snapshot is one polled observation of the station queue. MaxChargingTime
// and CurrTime come from the remote system and are authoritative; the local
// clock is never used for the time-remaining decision.
type Snapshot struct {
	MaxChargingTime int64 // seconds a session may run
	CurrTime        int64 // remote epoch seconds at observation
	ChargingUsers   []*ChargingUser
	OnHoldUsers     []*OnHoldUser
}
