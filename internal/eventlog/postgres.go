package eventlog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores events in a shared database through a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return p, nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS room_events (
			id         BIGSERIAL PRIMARY KEY,
			room_id    TEXT NOT NULL,
			user_id    TEXT NOT NULL,
			message    JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_room_events_room_id ON room_events(room_id, id)`,
	}
	for _, stmt := range stmts {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create room_events: %w", err)
		}
	}
	return nil
}

func (p *Postgres) Append(ctx context.Context, e Event) (int64, error) {
	var id int64
	err := p.pool.QueryRow(ctx,
		`INSERT INTO room_events (room_id, user_id, message, created_at)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		e.RoomID, e.UserID, []byte(e.Message), e.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	return id, nil
}

func (p *Postgres) Events(ctx context.Context, roomID string, after int64, limit int) ([]Event, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, room_id, user_id, message, created_at FROM room_events
		 WHERE room_id = $1 AND id > $2 ORDER BY id LIMIT $3`,
		roomID, after, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Event, error) {
		var (
			e   Event
			msg []byte
		)
		err := row.Scan(&e.ID, &e.RoomID, &e.UserID, &msg, &e.CreatedAt)
		e.Message = msg
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect events: %w", err)
	}
	return events, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
