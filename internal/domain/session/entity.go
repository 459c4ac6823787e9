// Package session holds the ChargingSession and MeterValue entities, the
// sole-writer contract enforced by the Session Engine.
package session

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusStopping  Status = "stopping"
	StatusCompleted Status = "completed"
)

// PlaceholderTransactionID marks a session pre-allocated by remote_start
// before the charger has confirmed StartTransaction (I-2, I-3).
const PlaceholderTransactionID = -1

// Entity is one row per (charger, attempted transaction).
type Entity struct {
	ID            int64
	ChargePointID string
	TransactionID int64
	ConnectorID   int
	UserTag       string
	Status        Status
	StartTime     time.Time
	StopTime      *time.Time
	EnergyKWh     float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsPlaceholder reports whether the session has not yet been bound to a
// charger-confirmed transaction id.
func (e Entity) IsPlaceholder() bool {
	return e.TransactionID <= 0
}

// Open reports whether the session still counts toward the at-most-one
// pending|active invariant (I-1).
func (e Entity) Open() bool {
	return e.Status == StatusPending || e.Status == StatusActive
}

// MeterValue is append-only telemetry never mutated after insert.
type MeterValue struct {
	ID            int64
	ChargePointID string
	TransactionID int64
	Timestamp     time.Time
	Voltage       *float64
	CurrentAmps   *float64
	PowerKW       *float64
	EnergyWhTotal *float64
}
