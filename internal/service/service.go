package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dynamost/totalizator-bot/internal/models"
	"github.com/dynamost/totalizator-bot/internal/repository"
	"github.com/dynamost/totalizator-bot/internal/session"
)

// BetService is the bet intake state machine. It walks one user through
// match selection, outcome selection and exact-score entry, and commits
// exactly one valid bet per (user, match) to the store.
type BetService interface {
	ListOpenMatches(ctx context.Context, userID int64, editing bool) ([]models.Match, error)
	OpenDates(ctx context.Context, userID int64) ([]string, error)
	MatchesForDate(ctx context.Context, userID int64, date string) ([]models.Match, error)
	SelectMatch(ctx context.Context, userID int64, matchID string, editing bool) (*models.Match, error)
	SelectOutcome(ctx context.Context, userID int64, token string) error
	SubmitScore(ctx context.Context, userID int64, displayName, raw string) (*models.Bet, bool, error)
	UserBets(ctx context.Context, userID int64) ([]models.Bet, error)
	HasSession(userID int64) bool
	Abandon(userID int64)
}

type betService struct {
	catalog  repository.MatchesCatalog
	bets     repository.BetsRepository
	sessions *session.Store
	timeNow  func() time.Time
}

func NewBetService(catalog repository.MatchesCatalog, bets repository.BetsRepository, sessions *session.Store) BetService {
	return &betService{
		catalog:  catalog,
		bets:     bets,
		sessions: sessions,
		timeNow:  time.Now,
	}
}

// ListOpenMatches reloads the catalog and the user's bets on every call.
// Open means kickoff strictly in the future. Outside an edit flow, matches
// the user already bet on are excluded; inside one the filter inverts to
// only those matches. Catalog order is preserved.
func (s *betService) ListOpenMatches(ctx context.Context, userID int64, editing bool) ([]models.Match, error) {
	matches, err := s.catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	betOn, err := s.betMatchIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.timeNow()
	var open []models.Match
	for _, m := range matches {
		if m.Started(now) {
			continue
		}
		if betOn[m.ID] != editing {
			continue
		}
		open = append(open, m)
	}
	return open, nil
}

// OpenDates lists the distinct dates, in first-seen catalog order, that
// still carry at least one match the user can bet on.
func (s *betService) OpenDates(ctx context.Context, userID int64) ([]string, error) {
	open, err := s.ListOpenMatches(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(open))
	var dates []string
	for _, m := range open {
		if _, ok := seen[m.Date]; ok {
			continue
		}
		seen[m.Date] = struct{}{}
		dates = append(dates, m.Date)
	}
	return dates, nil
}

func (s *betService) MatchesForDate(ctx context.Context, userID int64, date string) ([]models.Match, error) {
	open, err := s.ListOpenMatches(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	var day []models.Match
	for _, m := range open {
		if m.Date == date {
			day = append(day, m)
		}
	}
	return day, nil
}

// SelectMatch pins a match in a fresh session, discarding any in-progress
// flow for the user. No session is created on failure.
func (s *betService) SelectMatch(ctx context.Context, userID int64, matchID string, editing bool) (*models.Match, error) {
	match, err := s.catalog.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.Started(s.timeNow()) {
		return nil, fmt.Errorf("match %s: %w", matchID, models.ErrExpired)
	}
	if editing {
		if _, err := s.bets.Get(ctx, userID, matchID); err != nil {
			return nil, err
		}
	}
	s.sessions.Put(userID, models.BetSession{
		MatchID:   match.ID,
		MatchDesc: match.Desc(),
		Editing:   editing,
	})
	return match, nil
}

// SelectOutcome requires a pinned match. Any token outside 1/X/2 is a
// protocol violation from the transport layer.
func (s *betService) SelectOutcome(ctx context.Context, userID int64, token string) error {
	sess, ok := s.sessions.Get(userID)
	if !ok || sess.MatchID == "" {
		return fmt.Errorf("no match selected: %w", models.ErrInvalidState)
	}
	outcome, ok := models.ParseOutcome(token)
	if !ok {
		return fmt.Errorf("outcome token %q: %w", token, models.ErrInvalidState)
	}
	sess.Outcome = outcome
	s.sessions.Put(userID, sess)
	return nil
}

// SubmitScore validates and commits the bet. On an inconsistent score the
// session is preserved so the user can resubmit; on expiry the flow is
// dead and the session is cleared. The returned bool reports whether this
// replaced an existing bet from an edit flow.
func (s *betService) SubmitScore(ctx context.Context, userID int64, displayName, raw string) (*models.Bet, bool, error) {
	sess, ok := s.sessions.Get(userID)
	if !ok || sess.MatchID == "" || sess.Outcome == "" {
		return nil, false, fmt.Errorf("no outcome selected: %w", models.ErrInvalidState)
	}

	score, err := models.ParseScore(raw)
	if err != nil {
		return nil, false, err
	}

	// The match may have kicked off while the user was typing.
	match, err := s.catalog.Get(ctx, sess.MatchID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.sessions.Clear(userID)
		}
		return nil, false, err
	}
	if match.Started(s.timeNow()) {
		s.sessions.Clear(userID)
		return nil, false, fmt.Errorf("match %s: %w", sess.MatchID, models.ErrExpired)
	}

	if !score.Consistent(sess.Outcome) {
		return nil, false, fmt.Errorf("score %s vs outcome %s: %w", score, sess.Outcome, models.ErrInconsistent)
	}

	bet := models.Bet{
		UserID:      userID,
		DisplayName: displayName,
		MatchID:     match.ID,
		Outcome:     sess.Outcome,
		Score:       score,
		Description: fmt.Sprintf("%s vs %s", match.HomeTeam, match.AwayTeam),
	}
	if err := s.bets.Upsert(ctx, bet); err != nil {
		return nil, false, err
	}
	s.sessions.Clear(userID)
	return &bet, sess.Editing, nil
}

func (s *betService) UserBets(ctx context.Context, userID int64) ([]models.Bet, error) {
	return s.bets.ListByUser(ctx, userID)
}

func (s *betService) HasSession(userID int64) bool {
	_, ok := s.sessions.Get(userID)
	return ok
}

// Abandon drops any in-progress flow, e.g. when the user re-runs a listing
// command mid-flow.
func (s *betService) Abandon(userID int64) {
	s.sessions.Clear(userID)
}

func (s *betService) betMatchIDs(ctx context.Context, userID int64) (map[string]bool, error) {
	bets, err := s.bets.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(bets))
	for _, bet := range bets {
		ids[bet.MatchID] = true
	}
	return ids, nil
}
