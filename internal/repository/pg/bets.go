package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dynamost/totalizator-bot/internal/models"
	"github.com/dynamost/totalizator-bot/internal/repository"
)

// BetsRepo is the Postgres mirror target. One row per (user, match),
// replaced in full on conflict.
type BetsRepo struct {
	pool *pgxpool.Pool
}

func NewBetsRepo(pool *pgxpool.Pool) repository.BetsRepository {
	return &BetsRepo{pool: pool}
}

// EnsureSchema creates the bets table when it does not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS bets (
			user_id      BIGINT NOT NULL,
			display_name TEXT NOT NULL,
			match_id     TEXT NOT NULL,
			outcome      TEXT NOT NULL,
			score_home   INT NOT NULL,
			score_away   INT NOT NULL,
			description  TEXT NOT NULL,
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (user_id, match_id)
		)`)
	if err != nil {
		return fmt.Errorf("ensure bets schema: %w", err)
	}
	return nil
}

func (r *BetsRepo) ListByUser(ctx context.Context, userID int64) ([]models.Bet, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, display_name, match_id, outcome, score_home, score_away, description
		FROM bets
		WHERE user_id = $1
		ORDER BY match_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Bet
	for rows.Next() {
		var bet models.Bet
		var outcome string
		if err := rows.Scan(
			&bet.UserID,
			&bet.DisplayName,
			&bet.MatchID,
			&outcome,
			&bet.Score.Home,
			&bet.Score.Away,
			&bet.Description,
		); err != nil {
			return nil, err
		}
		bet.Outcome = models.Outcome(outcome)
		items = append(items, bet)
	}
	return items, rows.Err()
}

func (r *BetsRepo) Get(ctx context.Context, userID int64, matchID string) (*models.Bet, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT user_id, display_name, match_id, outcome, score_home, score_away, description
		FROM bets
		WHERE user_id = $1 AND match_id = $2`, userID, matchID)

	var bet models.Bet
	var outcome string
	if err := row.Scan(
		&bet.UserID,
		&bet.DisplayName,
		&bet.MatchID,
		&outcome,
		&bet.Score.Home,
		&bet.Score.Away,
		&bet.Description,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	bet.Outcome = models.Outcome(outcome)
	return &bet, nil
}

func (r *BetsRepo) Upsert(ctx context.Context, bet models.Bet) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO bets (user_id, display_name, match_id, outcome, score_home, score_away, description, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (user_id, match_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			outcome      = EXCLUDED.outcome,
			score_home   = EXCLUDED.score_home,
			score_away   = EXCLUDED.score_away,
			description  = EXCLUDED.description,
			updated_at   = now()`,
		bet.UserID,
		bet.DisplayName,
		bet.MatchID,
		string(bet.Outcome),
		bet.Score.Home,
		bet.Score.Away,
		bet.Description,
	)
	return err
}
