package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStorage struct {
	Connection *pgxpool.Pool
}

func NewPostgresStorage(ctx context.Context, dsn string) (*PostgresStorage, error) {
	conn, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("can't open database: %w", err)
	}

	if err = conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("can't connect to database: %w", err)
	}

	return &PostgresStorage{Connection: conn}, nil
}

func (that *PostgresStorage) Init(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS round_results (
		id BIGSERIAL PRIMARY KEY,
		passcode TEXT NOT NULL,
		winner TEXT NOT NULL DEFAULT '',
		win_line INT[],
		is_draw BOOLEAN NOT NULL DEFAULT FALSE,
		started_by TEXT NOT NULL,
		moves INT NOT NULL,
		player1_wins BIGINT NOT NULL,
		player2_wins BIGINT NOT NULL,
		draws BIGINT NOT NULL,
		total_matches BIGINT NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS round_results_passcode_idx ON round_results (passcode, finished_at DESC);`

	_, err := that.Connection.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("can't create table: %w", err)
	}

	return nil
}

func (that *PostgresStorage) Close() {
	that.Connection.Close()
}
