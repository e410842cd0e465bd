package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNotFound indicates absence of a match or bet.
	ErrNotFound = errors.New("not found")
	// ErrExpired indicates an action attempted at or after kickoff.
	ErrExpired = errors.New("match already started")
	// ErrMalformedScore indicates free-text score that failed to parse.
	ErrMalformedScore = errors.New("malformed score")
	// ErrInconsistent indicates a score that contradicts the chosen outcome.
	ErrInconsistent = errors.New("score inconsistent with outcome")
	// ErrInvalidState indicates an action attempted out of sequence.
	ErrInvalidState = errors.New("invalid flow state")
	// ErrStoreUnavailable indicates the catalog or bet store could not be reached.
	ErrStoreUnavailable = errors.New("store unavailable")
)

type Outcome string

const (
	OutcomeHome Outcome = "1"
	OutcomeDraw Outcome = "X"
	OutcomeAway Outcome = "2"
)

func ParseOutcome(token string) (Outcome, bool) {
	switch Outcome(token) {
	case OutcomeHome, OutcomeDraw, OutcomeAway:
		return Outcome(token), true
	default:
		return "", false
	}
}

// Score is an exact-score prediction, home goals first.
type Score struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// ParseScore parses "<int>-<int>" with non-negative sides.
func ParseScore(text string) (Score, error) {
	parts := strings.SplitN(strings.TrimSpace(text), "-", 2)
	if len(parts) != 2 {
		return Score{}, fmt.Errorf("%q: %w", text, ErrMalformedScore)
	}
	home, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Score{}, fmt.Errorf("%q: %w", text, ErrMalformedScore)
	}
	away, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Score{}, fmt.Errorf("%q: %w", text, ErrMalformedScore)
	}
	if home < 0 || away < 0 {
		return Score{}, fmt.Errorf("%q: %w", text, ErrMalformedScore)
	}
	return Score{Home: home, Away: away}, nil
}

func (s Score) String() string {
	return fmt.Sprintf("%d-%d", s.Home, s.Away)
}

// Outcome derives the coarse result category from the goal difference.
func (s Score) Outcome() Outcome {
	switch {
	case s.Home > s.Away:
		return OutcomeHome
	case s.Home < s.Away:
		return OutcomeAway
	default:
		return OutcomeDraw
	}
}

// Consistent reports whether the exact score agrees with the outcome.
func (s Score) Consistent(outcome Outcome) bool {
	return s.Outcome() == outcome
}

// Match is one fixture of the tournament, immutable once loaded.
type Match struct {
	ID       string    `json:"id"`
	Date     string    `json:"date"`
	Time     string    `json:"time"`
	HomeTeam string    `json:"home_team"`
	AwayTeam string    `json:"away_team"`
	Venue    string    `json:"venue"`
	Kickoff  time.Time `json:"kickoff"`
}

// Desc is the human-readable line used in keyboards and stored bets.
func (m Match) Desc() string {
	return fmt.Sprintf("%s %s • %s vs %s (%s)", m.Date, m.Time, m.HomeTeam, m.AwayTeam, m.Venue)
}

// Started reports whether betting is closed. The boundary at kickoff
// itself is closed.
func (m Match) Started(now time.Time) bool {
	return !now.Before(m.Kickoff)
}

// Bet is one user's prediction for one match.
type Bet struct {
	UserID      int64   `json:"user_id"`
	DisplayName string  `json:"display_name"`
	MatchID     string  `json:"match_id"`
	Outcome     Outcome `json:"outcome"`
	Score       Score   `json:"score"`
	Description string  `json:"description"`
}

// BetSession is the ephemeral per-user scratch state of one bet flow.
type BetSession struct {
	MatchID   string  `json:"match_id"`
	MatchDesc string  `json:"match_desc"`
	Outcome   Outcome `json:"outcome,omitempty"`
	Editing   bool    `json:"editing,omitempty"`
}
