// Package audit holds the append-only AuditLog entity written for every
// monetary and authentication event. Rows are never mutated or deleted.
package audit

import (
	"context"
	"time"
)

type Entity struct {
	ID        int64
	ActorID   string
	Action    string
	Entity    string
	EntityID  string
	Detail    map[string]interface{}
	CreatedAt time.Time
}

// Repository appends audit rows. Insert must succeed within the same
// transaction as the event it records where one is open on ctx.
type Repository interface {
	Insert(ctx context.Context, e Entity) error
}
