package store

import (
	"context"
	"encoding/json"

	"csms/internal/domain/audit"
	"csms/internal/pkg/errors"
)

func (s *Store) InsertAudit(ctx context.Context, e audit.Entity) error {
	detail, err := json.Marshal(e.Detail)
	if err != nil {
		return errors.Internal("marshal audit detail", err)
	}

	const q = `
		INSERT INTO audit_logs (actor_id, action, entity, entity_id, detail, created_at)
		VALUES (NULLIF($1, ''), $2, $3, $4, $5, now())`
	if _, err := s.q(ctx).Exec(ctx, q, e.ActorID, e.Action, e.Entity, e.EntityID, detail); err != nil {
		return errors.Database("insert audit log", err)
	}
	return nil
}
