package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/steveyegge/lb/internal/types"
)

// Enqueue appends an operation to the durable write queue and returns its row
// id. Rows are drained strictly in id order by the background worker.
func (s *Store) Enqueue(op types.Operation, payload interface{}) (int64, error) {
	if !op.IsValid() {
		return 0, fmt.Errorf("%w: invalid outbox operation %q", types.ErrValidation, op)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("%w: encoding outbox payload: %v", types.ErrValidation, err)
	}
	res, err := s.conn.Exec(
		`INSERT INTO outbox (operation, payload, created_at) VALUES (?, ?, ?)`,
		string(op), string(data), formatTime(time.Now().UTC()))
	if err != nil {
		return 0, storage("enqueueing operation", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storage("reading outbox row id", err)
	}
	return id, nil
}

// NextOutbox returns the oldest queued row, or nil when the queue is empty.
func (s *Store) NextOutbox() (*types.OutboxItem, error) {
	row := s.conn.QueryRow(
		`SELECT id, operation, payload, created_at, retry_count, last_error
		 FROM outbox ORDER BY id ASC LIMIT 1`)
	item, err := scanOutboxItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storage("reading outbox head", err)
	}
	return item, nil
}

// ListOutbox returns every queued row in id order, for status display.
func (s *Store) ListOutbox() ([]*types.OutboxItem, error) {
	rows, err := s.conn.Query(
		`SELECT id, operation, payload, created_at, retry_count, last_error
		 FROM outbox ORDER BY id ASC`)
	if err != nil {
		return nil, storage("listing outbox", err)
	}
	defer rows.Close()

	var items []*types.OutboxItem
	for rows.Next() {
		item, err := scanOutboxItem(rows)
		if err != nil {
			return nil, storage("scanning outbox row", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, storage("iterating outbox rows", err)
	}
	return items, nil
}

// AckOutbox removes a row after its operation was pushed successfully.
func (s *Store) AckOutbox(id int64) error {
	if _, err := s.conn.Exec(`DELETE FROM outbox WHERE id = ?`, id); err != nil {
		return storage("acking outbox row", err)
	}
	return nil
}

// FailOutbox records a failed push attempt, keeping the row queued.
func (s *Store) FailOutbox(id int64, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if _, err := s.conn.Exec(
		`UPDATE outbox SET retry_count = retry_count + 1, last_error = ? WHERE id = ?`,
		msg, id); err != nil {
		return storage("recording outbox failure", err)
	}
	return nil
}

// CountOutbox returns the number of queued rows.
func (s *Store) CountOutbox() (int, error) {
	var n int
	if err := s.conn.QueryRow(`SELECT COUNT(*) FROM outbox`).Scan(&n); err != nil {
		return 0, storage("counting outbox", err)
	}
	return n, nil
}

func scanOutboxItem(row rowScanner) (*types.OutboxItem, error) {
	var (
		item    types.OutboxItem
		op      string
		payload string
		created string
	)
	if err := row.Scan(&item.ID, &op, &payload, &created, &item.RetryCount, &item.LastError); err != nil {
		return nil, err
	}
	item.Operation = types.Operation(op)
	item.Payload = json.RawMessage(payload)
	item.CreatedAt = parseTime(created)
	return &item, nil
}
