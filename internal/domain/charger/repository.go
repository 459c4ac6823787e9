package charger

import (
	"context"
	"time"
)

// Repository persists Charger and Fault rows. Implementations must not
// delete chargers; BootNotification always upserts.
type Repository interface {
	Upsert(ctx context.Context, c Entity) (Entity, error)
	Get(ctx context.Context, chargePointID string) (Entity, error)
	UpdateHeartbeat(ctx context.Context, chargePointID string, at time.Time) error
	UpdateAvailability(ctx context.Context, chargePointID string, availability Availability) error
	List(ctx context.Context) ([]Entity, error)

	// Fault ledger.
	OpenFault(ctx context.Context, f FaultEntity) (FaultEntity, error)
	UnclearedFault(ctx context.Context, chargePointID, faultType string) (FaultEntity, bool, error)
	ClearAllFaults(ctx context.Context, chargePointID string) error
}
