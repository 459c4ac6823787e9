package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"csms/internal/domain/charger"
	"csms/internal/pkg/errors"
)

func (s *Store) Upsert(ctx context.Context, c charger.Entity) (charger.Entity, error) {
	const q = `
		INSERT INTO chargers (charge_point_id, vendor, model, firmware_version, availability,
			last_heartbeat, heartbeat_interval_s, number_of_connectors, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		ON CONFLICT (charge_point_id) DO UPDATE SET
			vendor = EXCLUDED.vendor,
			model = EXCLUDED.model,
			firmware_version = EXCLUDED.firmware_version,
			last_heartbeat = EXCLUDED.last_heartbeat,
			updated_at = now()
		RETURNING charge_point_id, vendor, model, firmware_version, availability,
			last_heartbeat, heartbeat_interval_s, number_of_connectors, created_at, updated_at`

	if c.HeartbeatIntervalS == 0 {
		c.HeartbeatIntervalS = 7200
	}
	if c.NumberOfConnectors == 0 {
		c.NumberOfConnectors = 1
	}
	if c.Availability == "" {
		c.Availability = charger.AvailabilityAvailable
	}

	var out charger.Entity
	row := s.q(ctx).QueryRow(ctx, q, c.ChargePointID, c.Vendor, c.Model, c.FirmwareVersion,
		c.Availability, c.LastHeartbeat, c.HeartbeatIntervalS, c.NumberOfConnectors)
	if err := row.Scan(&out.ChargePointID, &out.Vendor, &out.Model, &out.FirmwareVersion,
		&out.Availability, &out.LastHeartbeat, &out.HeartbeatIntervalS, &out.NumberOfConnectors,
		&out.CreatedAt, &out.UpdatedAt); err != nil {
		return charger.Entity{}, errors.Database("upsert charger", err)
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, chargePointID string) (charger.Entity, error) {
	const q = `
		SELECT charge_point_id, vendor, model, firmware_version, availability,
			last_heartbeat, heartbeat_interval_s, number_of_connectors, created_at, updated_at
		FROM chargers WHERE charge_point_id = $1`

	var out charger.Entity
	row := s.q(ctx).QueryRow(ctx, q, chargePointID)
	if err := row.Scan(&out.ChargePointID, &out.Vendor, &out.Model, &out.FirmwareVersion,
		&out.Availability, &out.LastHeartbeat, &out.HeartbeatIntervalS, &out.NumberOfConnectors,
		&out.CreatedAt, &out.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return charger.Entity{}, errors.NotFoundWithID("charger", chargePointID)
		}
		return charger.Entity{}, errors.Database("get charger", err)
	}
	return out, nil
}

func (s *Store) UpdateHeartbeat(ctx context.Context, chargePointID string, at time.Time) error {
	const q = `UPDATE chargers SET last_heartbeat = $2, updated_at = now() WHERE charge_point_id = $1`
	if _, err := s.q(ctx).Exec(ctx, q, chargePointID, at); err != nil {
		return errors.Database("update heartbeat", err)
	}
	return nil
}

func (s *Store) UpdateAvailability(ctx context.Context, chargePointID string, availability charger.Availability) error {
	const q = `UPDATE chargers SET availability = $2, updated_at = now() WHERE charge_point_id = $1`
	if _, err := s.q(ctx).Exec(ctx, q, chargePointID, availability); err != nil {
		return errors.Database("update availability", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]charger.Entity, error) {
	const q = `
		SELECT charge_point_id, vendor, model, firmware_version, availability,
			last_heartbeat, heartbeat_interval_s, number_of_connectors, created_at, updated_at
		FROM chargers ORDER BY charge_point_id`

	rows, err := s.q(ctx).Query(ctx, q)
	if err != nil {
		return nil, errors.Database("list chargers", err)
	}
	defer rows.Close()

	var out []charger.Entity
	for rows.Next() {
		var c charger.Entity
		if err := rows.Scan(&c.ChargePointID, &c.Vendor, &c.Model, &c.FirmwareVersion,
			&c.Availability, &c.LastHeartbeat, &c.HeartbeatIntervalS, &c.NumberOfConnectors,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, errors.Database("scan charger", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) OpenFault(ctx context.Context, f charger.FaultEntity) (charger.FaultEntity, error) {
	const q = `
		INSERT INTO faults (charge_point_id, fault_type, message, "timestamp", cleared)
		VALUES ($1, $2, $3, $4, false)
		RETURNING id, charge_point_id, fault_type, message, "timestamp", cleared, cleared_at`

	var out charger.FaultEntity
	row := s.q(ctx).QueryRow(ctx, q, f.ChargePointID, f.FaultType, f.Message, f.Timestamp)
	if err := row.Scan(&out.ID, &out.ChargePointID, &out.FaultType, &out.Message,
		&out.Timestamp, &out.Cleared, &out.ClearedAt); err != nil {
		return charger.FaultEntity{}, errors.Database("open fault", err)
	}
	return out, nil
}

func (s *Store) UnclearedFault(ctx context.Context, chargePointID, faultType string) (charger.FaultEntity, bool, error) {
	const q = `
		SELECT id, charge_point_id, fault_type, message, "timestamp", cleared, cleared_at
		FROM faults WHERE charge_point_id = $1 AND fault_type = $2 AND cleared = false
		ORDER BY "timestamp" DESC LIMIT 1`

	var out charger.FaultEntity
	row := s.q(ctx).QueryRow(ctx, q, chargePointID, faultType)
	if err := row.Scan(&out.ID, &out.ChargePointID, &out.FaultType, &out.Message,
		&out.Timestamp, &out.Cleared, &out.ClearedAt); err != nil {
		if err == pgx.ErrNoRows {
			return charger.FaultEntity{}, false, nil
		}
		return charger.FaultEntity{}, false, errors.Database("get uncleared fault", err)
	}
	return out, true, nil
}

func (s *Store) ClearAllFaults(ctx context.Context, chargePointID string) error {
	const q = `UPDATE faults SET cleared = true, cleared_at = now()
		WHERE charge_point_id = $1 AND cleared = false`
	if _, err := s.q(ctx).Exec(ctx, q, chargePointID); err != nil {
		return errors.Database("clear faults", err)
	}
	return nil
}
