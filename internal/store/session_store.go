package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"csms/internal/domain/session"
	"csms/internal/pkg/errors"
)

func (s *Store) InsertSession(ctx context.Context, e session.Entity) (session.Entity, error) {
	const q = `
		INSERT INTO charging_sessions (charge_point_id, transaction_id, connector_id, user_tag,
			status, start_time, stop_time, energy_kwh, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING id, charge_point_id, transaction_id, connector_id, user_tag, status,
			start_time, stop_time, energy_kwh, created_at, updated_at`

	var out session.Entity
	row := s.q(ctx).QueryRow(ctx, q, e.ChargePointID, e.TransactionID, e.ConnectorID, e.UserTag,
		e.Status, e.StartTime, e.StopTime, e.EnergyKWh)
	if err := scanSession(row, &out); err != nil {
		return session.Entity{}, errors.Database("insert session", err)
	}
	return out, nil
}

func (s *Store) UpdateSession(ctx context.Context, e session.Entity) error {
	const q = `
		UPDATE charging_sessions SET transaction_id=$2, status=$3, stop_time=$4, energy_kwh=$5,
			updated_at=now()
		WHERE id = $1`
	if _, err := s.q(ctx).Exec(ctx, q, e.ID, e.TransactionID, e.Status, e.StopTime, e.EnergyKWh); err != nil {
		return errors.Database("update session", err)
	}
	return nil
}

func (s *Store) DeleteSession(ctx context.Context, id int64) error {
	if _, err := s.q(ctx).Exec(ctx, `DELETE FROM charging_sessions WHERE id = $1`, id); err != nil {
		return errors.Database("delete session", err)
	}
	return nil
}

func (s *Store) OpenOnCharger(ctx context.Context, chargePointID string) (session.Entity, bool, error) {
	const q = `
		SELECT id, charge_point_id, transaction_id, connector_id, user_tag, status,
			start_time, stop_time, energy_kwh, created_at, updated_at
		FROM charging_sessions
		WHERE charge_point_id = $1 AND status IN ('pending', 'active')
		ORDER BY created_at DESC LIMIT 1`

	var out session.Entity
	row := s.q(ctx).QueryRow(ctx, q, chargePointID)
	if err := scanSession(row, &out); err != nil {
		if err == pgx.ErrNoRows {
			return session.Entity{}, false, nil
		}
		return session.Entity{}, false, errors.Database("get open session", err)
	}
	return out, true, nil
}

func (s *Store) ByTransactionID(ctx context.Context, transactionID int64) (session.Entity, bool, error) {
	const q = `
		SELECT id, charge_point_id, transaction_id, connector_id, user_tag, status,
			start_time, stop_time, energy_kwh, created_at, updated_at
		FROM charging_sessions WHERE transaction_id = $1 ORDER BY created_at DESC LIMIT 1`

	var out session.Entity
	row := s.q(ctx).QueryRow(ctx, q, transactionID)
	if err := scanSession(row, &out); err != nil {
		if err == pgx.ErrNoRows {
			return session.Entity{}, false, nil
		}
		return session.Entity{}, false, errors.Database("get session by transaction", err)
	}
	return out, true, nil
}

func (s *Store) SessionByID(ctx context.Context, id int64) (session.Entity, bool, error) {
	const q = `
		SELECT id, charge_point_id, transaction_id, connector_id, user_tag, status,
			start_time, stop_time, energy_kwh, created_at, updated_at
		FROM charging_sessions WHERE id = $1`

	var out session.Entity
	row := s.q(ctx).QueryRow(ctx, q, id)
	if err := scanSession(row, &out); err != nil {
		if err == pgx.ErrNoRows {
			return session.Entity{}, false, nil
		}
		return session.Entity{}, false, errors.Database("get session", err)
	}
	return out, true, nil
}

func (s *Store) AppendMeterValue(ctx context.Context, mv session.MeterValue) error {
	const q = `
		INSERT INTO meter_values (charge_point_id, transaction_id, "timestamp", voltage,
			current_amps, power_kw, energy_wh_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := s.q(ctx).Exec(ctx, q, mv.ChargePointID, mv.TransactionID, mv.Timestamp,
		mv.Voltage, mv.CurrentAmps, mv.PowerKW, mv.EnergyWhTotal); err != nil {
		return errors.Database("append meter value", err)
	}
	return nil
}

func scanSession(row pgx.Row, out *session.Entity) error {
	return row.Scan(&out.ID, &out.ChargePointID, &out.TransactionID, &out.ConnectorID, &out.UserTag,
		&out.Status, &out.StartTime, &out.StopTime, &out.EnergyKWh, &out.CreatedAt, &out.UpdatedAt)
}
