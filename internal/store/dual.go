package store

import (
	"context"

	"github.com/dynamost/totalizator-bot/internal/models"
	"github.com/dynamost/totalizator-bot/internal/repository"
)

// DualStore writes to the local store first and mirrors the write to a
// remote target. The local copy is the source of truth for the running
// process: reads never touch the remote, a local write failure fails the
// operation, a remote failure is retried once and then only logged.
type DualStore struct {
	local  repository.BetsRepository
	remote repository.BetsRepository
	logger repository.Logger
}

func NewDualStore(local, remote repository.BetsRepository, logger repository.Logger) repository.BetsRepository {
	return &DualStore{local: local, remote: remote, logger: logger}
}

func (s *DualStore) ListByUser(ctx context.Context, userID int64) ([]models.Bet, error) {
	return s.local.ListByUser(ctx, userID)
}

func (s *DualStore) Get(ctx context.Context, userID int64, matchID string) (*models.Bet, error) {
	return s.local.Get(ctx, userID, matchID)
}

func (s *DualStore) Upsert(ctx context.Context, bet models.Bet) error {
	if err := s.local.Upsert(ctx, bet); err != nil {
		return err
	}
	if err := s.remote.Upsert(ctx, bet); err != nil {
		if err = s.remote.Upsert(ctx, bet); err != nil {
			s.logger.Error(err, "mirror_bet", "bet", bet.MatchID, bet.UserID)
		}
	}
	return nil
}
