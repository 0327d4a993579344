package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/blocksafe/internal/classifier"
	"github.com/MikeSquared-Agency/blocksafe/internal/report"
)

// Entity kinds as stored in record_entities.kind.
const (
	KindPaymentHandle = "upi_id"
	KindBankAccount   = "bank_account"
	KindURL           = "url"
	KindPhoneNumber   = "phone_number"
)

// SaveRecord writes a record, its identifiers and its honeypot turns in one
// transaction. Saving the same request id twice is a no-op.
func (s *Store) SaveRecord(ctx context.Context, rec *report.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var scamType any
	if rec.ScamType != classifier.ScamTypeNone {
		scamType = rec.ScamType.String()
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO analysis_records (id, session_id, created_at, is_scam, confidence, scam_type, evidence_level, mode, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`,
		rec.RequestID, rec.SessionID, rec.Timestamp, rec.IsScam, rec.Confidence,
		scamType, rec.EvidenceLevel.String(), rec.Mode.String(), payload,
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tx.Commit(ctx)
	}

	for _, e := range entityRows(rec) {
		_, err = tx.Exec(ctx, `
			INSERT INTO record_entities (record_id, kind, value)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING`,
			rec.RequestID, e.kind, e.value,
		)
		if err != nil {
			return fmt.Errorf("insert entity: %w", err)
		}
	}

	if rec.Honeypot != nil {
		for _, t := range rec.Honeypot.Turns {
			_, err = tx.Exec(ctx, `
				INSERT INTO honeypot_turns (record_id, turn_number, scammer_message, agent_response)
				VALUES ($1, $2, $3, $4)`,
				rec.RequestID, t.Number, t.Inbound, t.Outbound,
			)
			if err != nil {
				return fmt.Errorf("insert turn %d: %w", t.Number, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetRecord returns the stored JSON of a record.
func (s *Store) GetRecord(ctx context.Context, id string) (json.RawMessage, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `SELECT payload FROM analysis_records WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record %s: %w", id, err)
	}
	return json.RawMessage(payload), nil
}

// ListSession returns the records of a session, oldest first.
func (s *Store) ListSession(ctx context.Context, sessionID string, limit int) ([]json.RawMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT payload FROM analysis_records
		WHERE session_id = $1
		ORDER BY created_at
		LIMIT $2`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list session %s: %w", sessionID, err)
	}
	defer rows.Close()

	out := []json.RawMessage{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, json.RawMessage(payload))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

type entityRow struct {
	kind  string
	value string
}

func entityRows(rec *report.Record) []entityRow {
	var out []entityRow
	add := func(kind string, values []string) {
		for _, v := range values {
			out = append(out, entityRow{kind, v})
		}
	}
	add(KindPaymentHandle, rec.Entities.PaymentHandles)
	add(KindBankAccount, rec.Entities.BankAccounts)
	add(KindURL, rec.Entities.URLs)
	add(KindPhoneNumber, rec.Entities.PhoneNumbers)
	return out
}
