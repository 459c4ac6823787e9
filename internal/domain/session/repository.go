package session

import "context"

// Repository persists ChargingSession and MeterValue rows. Because (I-1)
// guarantees at most one pending|active session per charger, most engine
// logic operates against OpenOnCharger rather than age-scanning queries.
type Repository interface {
	Insert(ctx context.Context, s Entity) (Entity, error)
	Update(ctx context.Context, s Entity) error
	Delete(ctx context.Context, id int64) error

	// OpenOnCharger returns the most recent pending|active session for a
	// charger, if any.
	OpenOnCharger(ctx context.Context, chargePointID string) (Entity, bool, error)
	ByTransactionID(ctx context.Context, transactionID int64) (Entity, bool, error)
	ByID(ctx context.Context, id int64) (Entity, bool, error)

	AppendMeterValue(ctx context.Context, mv MeterValue) error
}
