package history

import (
	"context"
	"errors"
	"time"

	"nearhire/internal/call"
	nearhire_errors "nearhire/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Record is one row of durable call history. Both sides of a call share one
// row keyed by the call id.
type Record struct {
	ID              uuid.UUID  `json:"id"`
	CallerID        uuid.UUID  `json:"caller_id"`
	CalleeID        uuid.UUID  `json:"callee_id"`
	RoomID          string     `json:"room_id"`
	Type            string     `json:"type"`
	StartedAt       time.Time  `json:"started_at"`
	ConnectedAt     *time.Time `json:"connected_at,omitempty"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	EndReason       *string    `json:"end_reason,omitempty"`
	DurationSeconds *int32     `json:"duration_seconds,omitempty"`
}

// Repository persists call history in Postgres. It implements the call
// engine's Recorder contract; lifecycle writes are idempotent because both
// call legs report the same call id.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const schema = `
CREATE TABLE IF NOT EXISTS calls (
	id UUID PRIMARY KEY,
	caller_id UUID NOT NULL,
	callee_id UUID NOT NULL,
	room_id TEXT NOT NULL,
	type TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	connected_at TIMESTAMPTZ,
	ended_at TIMESTAMPTZ,
	end_reason TEXT,
	duration_seconds INT
);
CREATE INDEX IF NOT EXISTS idx_calls_caller ON calls (caller_id, started_at DESC);
CREATE INDEX IF NOT EXISTS idx_calls_callee ON calls (callee_id, started_at DESC);
`

func (r *Repository) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return err
}

func (r *Repository) CallStarted(ctx context.Context, rec call.Record) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO calls (id, caller_id, callee_id, room_id, type, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`,
		rec.CallID, rec.CallerID, rec.CalleeID, rec.RoomID, string(rec.Type), rec.StartedAt)
	return err
}

func (r *Repository) CallConnected(ctx context.Context, callID uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE calls SET connected_at = $2
		WHERE id = $1 AND connected_at IS NULL`,
		callID, at)
	return err
}

func (r *Repository) CallEnded(ctx context.Context, callID uuid.UUID, reason call.EndReason, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE calls
		SET ended_at = $3,
		    end_reason = $2,
		    duration_seconds = CASE
		        WHEN connected_at IS NOT NULL
		        THEN EXTRACT(EPOCH FROM ($3 - connected_at))::int
		        ELSE NULL
		    END
		WHERE id = $1 AND ended_at IS NULL`,
		callID, string(reason), at)
	return err
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Record, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, caller_id, callee_id, room_id, type, started_at,
		       connected_at, ended_at, end_reason, duration_seconds
		FROM calls WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, nearhire_errors.ErrNotFound
	}
	return rec, err
}

// ListUserCalls returns the user's call history, most recent first.
func (r *Repository) ListUserCalls(ctx context.Context, userID uuid.UUID, page, limit int) ([]Record, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var total int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM calls WHERE caller_id = $1 OR callee_id = $1`,
		userID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, caller_id, callee_id, room_id, type, started_at,
		       connected_at, ended_at, end_reason, duration_seconds
		FROM calls
		WHERE caller_id = $1 OR callee_id = $1
		ORDER BY started_at DESC
		OFFSET $2 LIMIT $3`,
		userID, (page-1)*limit, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}
	return records, total, rows.Err()
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.CallerID, &rec.CalleeID, &rec.RoomID, &rec.Type,
		&rec.StartedAt, &rec.ConnectedAt, &rec.EndedAt, &rec.EndReason, &rec.DurationSeconds)
	return rec, err
}
