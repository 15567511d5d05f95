package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/tictactoe"
)

const defaultHistoryLimit = 50

type HistoryRepository interface {
	Record(ctx context.Context, result *entity.RoundResult) error
	ListByPasscode(ctx context.Context, passcode string, limit int) ([]*entity.RoundResult, error)
}

type dbHistory struct {
	db *pgxpool.Pool
}

func NewHistoryRepository(db *pgxpool.Pool) HistoryRepository {
	return &dbHistory{
		db: db,
	}
}

func (that *dbHistory) Record(ctx context.Context, result *entity.RoundResult) error {
	var winLine []int32
	if result.WinLine != nil {
		winLine = []int32{int32(result.WinLine[0]), int32(result.WinLine[1]), int32(result.WinLine[2])}
	}

	err := that.db.QueryRow(ctx,
		`INSERT INTO round_results
			(passcode, winner, win_line, is_draw, started_by, moves,
			 player1_wins, player2_wins, draws, total_matches, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id`,
		result.Passcode,
		string(result.Winner),
		winLine,
		result.IsDraw,
		string(result.StartedBy),
		result.Moves,
		int64(result.Score.Player1Wins),
		int64(result.Score.Player2Wins),
		int64(result.Score.Draws),
		int64(result.Score.TotalMatches),
		result.FinishedAt,
	).Scan(&result.ID)
	if err != nil {
		return fmt.Errorf("failed to record round: %w", err)
	}

	return nil
}

func (that *dbHistory) ListByPasscode(ctx context.Context, passcode string, limit int) ([]*entity.RoundResult, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	rows, err := that.db.Query(ctx,
		`SELECT id, passcode, winner, win_line, is_draw, started_by, moves,
				player1_wins, player2_wins, draws, total_matches, finished_at
		 FROM round_results
		 WHERE passcode = $1
		 ORDER BY finished_at DESC, id DESC
		 LIMIT $2`,
		passcode, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}
	defer rows.Close()

	results, err := pgx.CollectRows(rows, scanRoundResult)
	if err != nil {
		return nil, fmt.Errorf("failed to scan rounds: %w", err)
	}

	return results, nil
}

func scanRoundResult(row pgx.CollectableRow) (*entity.RoundResult, error) {
	var (
		result                                 entity.RoundResult
		winner, startedBy                      string
		winLine                                []int32
		player1Wins, player2Wins, draws, total int64
	)

	err := row.Scan(
		&result.ID,
		&result.Passcode,
		&winner,
		&winLine,
		&result.IsDraw,
		&startedBy,
		&result.Moves,
		&player1Wins,
		&player2Wins,
		&draws,
		&total,
		&result.FinishedAt,
	)
	if err != nil {
		return nil, err
	}

	result.Winner = entity.Role(winner)
	result.StartedBy = entity.Role(startedBy)
	if len(winLine) == len(tictactoe.Line{}) {
		result.WinLine = &tictactoe.Line{int(winLine[0]), int(winLine[1]), int(winLine[2])}
	}
	result.Score = entity.Score{
		Player1Wins:  uint(player1Wins),
		Player2Wins:  uint(player2Wins),
		Draws:        uint(draws),
		TotalMatches: uint(total),
	}

	return &result, nil
}
