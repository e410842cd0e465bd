package repository

import (
	"context"

	"github.com/dynamost/totalizator-bot/internal/models"
)

// MatchesCatalog is the read-only fixture list. Implementations reload the
// source on every call; callers rely on stable source order.
type MatchesCatalog interface {
	List(ctx context.Context) ([]models.Match, error)
	Get(ctx context.Context, id string) (*models.Match, error)
}

// BetsRepository persists one live bet per (user, match) pair.
type BetsRepository interface {
	ListByUser(ctx context.Context, userID int64) ([]models.Bet, error)
	Get(ctx context.Context, userID int64, matchID string) (*models.Bet, error)
	Upsert(ctx context.Context, bet models.Bet) error
}

type Logger interface {
	Info(action string, entity string, entityID string, userID int64, status string)
	Error(err error, action string, entity string, entityID string, userID int64)
}
