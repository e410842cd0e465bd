package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/dynamost/totalizator-bot/internal/models"
	"github.com/dynamost/totalizator-bot/internal/repository"
)

var csvHeader = []string{"user_id", "display_name", "match_id", "outcome", "score", "description"}

// CSVStore keeps bets in a local CSV file, one row per (user, match).
// Upserts rewrite the whole file through a temp file so a crash never
// leaves a half-written store behind. A single mutex serializes access;
// at this scale that is the whole concurrency story.
type CSVStore struct {
	mu   sync.Mutex
	path string
}

func NewCSVStore(path string) repository.BetsRepository {
	return &CSVStore{path: path}
}

func (s *CSVStore) ListByUser(ctx context.Context, userID int64) ([]models.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bets, err := s.readAll()
	if err != nil {
		return nil, err
	}
	var mine []models.Bet
	for _, bet := range bets {
		if bet.UserID == userID {
			mine = append(mine, bet)
		}
	}
	return mine, nil
}

func (s *CSVStore) Get(ctx context.Context, userID int64, matchID string) (*models.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bets, err := s.readAll()
	if err != nil {
		return nil, err
	}
	for _, bet := range bets {
		if bet.UserID == userID && bet.MatchID == matchID {
			return &bet, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *CSVStore) Upsert(ctx context.Context, bet models.Bet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bets, err := s.readAll()
	if err != nil {
		return err
	}
	replaced := false
	for i := range bets {
		if bets[i].UserID == bet.UserID && bets[i].MatchID == bet.MatchID {
			bets[i] = bet
			replaced = true
			break
		}
	}
	if !replaced {
		bets = append(bets, bet)
	}
	return s.writeAll(bets)
}

func (s *CSVStore) readAll() ([]models.Bet, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open bets file: %w", models.ErrStoreUnavailable)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read bets file: %w", models.ErrStoreUnavailable)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var bets []models.Bet
	for i, row := range records[1:] {
		if len(row) < len(csvHeader) {
			return nil, fmt.Errorf("bets row %d truncated: %w", i+2, models.ErrStoreUnavailable)
		}
		userID, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bets row %d user id %q: %w", i+2, row[0], models.ErrStoreUnavailable)
		}
		score, err := models.ParseScore(row[4])
		if err != nil {
			return nil, fmt.Errorf("bets row %d score %q: %w", i+2, row[4], models.ErrStoreUnavailable)
		}
		bets = append(bets, models.Bet{
			UserID:      userID,
			DisplayName: row[1],
			MatchID:     row[2],
			Outcome:     models.Outcome(row[3]),
			Score:       score,
			Description: row[5],
		})
	}
	return bets, nil
}

func (s *CSVStore) writeAll(bets []models.Bet) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "bets-*.csv")
	if err != nil {
		return fmt.Errorf("create temp bets file: %w", models.ErrStoreUnavailable)
	}
	tmpName := tmp.Name()

	writer := csv.NewWriter(tmp)
	if err := writer.Write(csvHeader); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write bets header: %w", models.ErrStoreUnavailable)
	}
	for _, bet := range bets {
		row := []string{
			strconv.FormatInt(bet.UserID, 10),
			bet.DisplayName,
			bet.MatchID,
			string(bet.Outcome),
			bet.Score.String(),
			bet.Description,
		}
		if err := writer.Write(row); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("write bets row: %w", models.ErrStoreUnavailable)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("flush bets file: %w", models.ErrStoreUnavailable)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close bets file: %w", models.ErrStoreUnavailable)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace bets file: %w", models.ErrStoreUnavailable)
	}
	return nil
}
