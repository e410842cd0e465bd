package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/dynamost/totalizator-bot/internal/models"
)

type flakyRemote struct {
	failures int
	upserts  int
}

func (r *flakyRemote) ListByUser(ctx context.Context, userID int64) ([]models.Bet, error) {
	return nil, nil
}

func (r *flakyRemote) Get(ctx context.Context, userID int64, matchID string) (*models.Bet, error) {
	return nil, models.ErrNotFound
}

func (r *flakyRemote) Upsert(ctx context.Context, bet models.Bet) error {
	r.upserts++
	if r.failures > 0 {
		r.failures--
		return models.ErrStoreUnavailable
	}
	return nil
}

type nopLogger struct{}

func (nopLogger) Info(action, entity, entityID string, userID int64, status string) {}
func (nopLogger) Error(err error, action, entity, entityID string, userID int64)    {}

func TestDualStoreWritesLocalFirst(t *testing.T) {
	ctx := context.Background()
	local := NewCSVStore(filepath.Join(t.TempDir(), "bets.csv"))
	remote := &flakyRemote{}
	s := NewDualStore(local, remote, nopLogger{})

	bet := testBet(10, "1", models.OutcomeHome, 2, 1)
	if err := s.Upsert(ctx, bet); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if remote.upserts != 1 {
		t.Errorf("remote upserts = %d, want 1", remote.upserts)
	}
	got, err := s.Get(ctx, 10, "1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Score.String() != "2-1" {
		t.Errorf("local read = %+v", got)
	}
}

func TestDualStoreRetriesRemoteOnce(t *testing.T) {
	ctx := context.Background()
	local := NewCSVStore(filepath.Join(t.TempDir(), "bets.csv"))
	remote := &flakyRemote{failures: 1}
	s := NewDualStore(local, remote, nopLogger{})

	if err := s.Upsert(ctx, testBet(10, "1", models.OutcomeHome, 2, 1)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if remote.upserts != 2 {
		t.Errorf("remote upserts = %d, want first attempt + one retry", remote.upserts)
	}
}

func TestDualStoreRemoteFailureNonFatal(t *testing.T) {
	ctx := context.Background()
	local := NewCSVStore(filepath.Join(t.TempDir(), "bets.csv"))
	remote := &flakyRemote{failures: 2}
	s := NewDualStore(local, remote, nopLogger{})

	if err := s.Upsert(ctx, testBet(10, "1", models.OutcomeHome, 2, 1)); err != nil {
		t.Fatalf("Upsert failed on remote outage: %v", err)
	}
	// The local copy still holds the bet.
	if _, err := local.Get(ctx, 10, "1"); err != nil {
		t.Errorf("local copy missing bet: %v", err)
	}
}

func TestDualStoreLocalFailureIsFatal(t *testing.T) {
	ctx := context.Background()
	// A directory path makes every local write fail.
	local := NewCSVStore(t.TempDir())
	remote := &flakyRemote{}
	s := NewDualStore(local, remote, nopLogger{})

	err := s.Upsert(ctx, testBet(10, "1", models.OutcomeHome, 2, 1))
	if !errors.Is(err, models.ErrStoreUnavailable) {
		t.Fatalf("error = %v, want ErrStoreUnavailable", err)
	}
	if remote.upserts != 0 {
		t.Error("remote written despite local failure")
	}
}
