package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dynamost/totalizator-bot/internal/models"
)

func testBet(userID int64, matchID string, outcome models.Outcome, home, away int) models.Bet {
	return models.Bet{
		UserID:      userID,
		DisplayName: "User " + matchID,
		MatchID:     matchID,
		Outcome:     outcome,
		Score:       models.Score{Home: home, Away: away},
		Description: "A vs B",
	}
}

func TestCSVStoreUpsertAndReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bets.csv")
	s := NewCSVStore(path)

	bet := testBet(10, "1", models.OutcomeHome, 2, 1)
	if err := s.Upsert(ctx, bet); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	// A fresh store over the same file sees the bet.
	reloaded := NewCSVStore(path)
	got, err := reloaded.Get(ctx, 10, "1")
	if err != nil {
		t.Fatalf("Get after reload: %v", err)
	}
	if *got != bet {
		t.Errorf("reloaded bet = %+v, want %+v", *got, bet)
	}
}

func TestCSVStoreHeaderWrittenOnce(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bets.csv")
	s := NewCSVStore(path)

	s.Upsert(ctx, testBet(10, "1", models.OutcomeHome, 2, 1))
	s.Upsert(ctx, testBet(10, "2", models.OutcomeDraw, 0, 0))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("file has %d lines, want header + 2 rows:\n%s", len(lines), data)
	}
	if lines[0] != "user_id,display_name,match_id,outcome,score,description" {
		t.Errorf("header = %q", lines[0])
	}
	if strings.Count(string(data), "user_id") != 1 {
		t.Error("header written more than once")
	}
}

func TestCSVStoreUpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bets.csv")
	s := NewCSVStore(path)

	bet := testBet(10, "1", models.OutcomeAway, 0, 2)
	s.Upsert(ctx, bet)
	first, _ := os.ReadFile(path)
	s.Upsert(ctx, bet)
	second, _ := os.ReadFile(path)

	if string(first) != string(second) {
		t.Errorf("identical upserts changed the file:\n%s\nvs\n%s", first, second)
	}
}

func TestCSVStoreUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bets.csv")
	s := NewCSVStore(path)

	s.Upsert(ctx, testBet(10, "1", models.OutcomeHome, 2, 1))
	s.Upsert(ctx, testBet(10, "1", models.OutcomeDraw, 1, 1))

	bets, err := s.ListByUser(ctx, 10)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(bets) != 1 {
		t.Fatalf("got %d bets, want 1", len(bets))
	}
	if bets[0].Outcome != models.OutcomeDraw || bets[0].Score.String() != "1-1" {
		t.Errorf("bet = %+v, want the replacing values", bets[0])
	}
}

func TestCSVStoreIsolatesUsers(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bets.csv")
	s := NewCSVStore(path)

	s.Upsert(ctx, testBet(10, "1", models.OutcomeHome, 2, 1))
	s.Upsert(ctx, testBet(11, "1", models.OutcomeAway, 0, 1))

	mine, err := s.ListByUser(ctx, 10)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(mine) != 1 || mine[0].UserID != 10 {
		t.Errorf("user 10 sees %+v", mine)
	}
	if _, err := s.Get(ctx, 12, "1"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Get for unknown user: error = %v, want ErrNotFound", err)
	}
}

func TestCSVStoreMissingFileIsEmpty(t *testing.T) {
	ctx := context.Background()
	s := NewCSVStore(filepath.Join(t.TempDir(), "absent.csv"))

	bets, err := s.ListByUser(ctx, 10)
	if err != nil {
		t.Fatalf("ListByUser on missing file: %v", err)
	}
	if len(bets) != 0 {
		t.Errorf("bets = %+v, want none", bets)
	}
}
