package store

import (
	"context"
	"fmt"
	"strconv"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/dynamost/totalizator-bot/internal/models"
	"github.com/dynamost/totalizator-bot/internal/repository"
)

// SheetsStore mirrors bets to a Google spreadsheet so the group can eyeball
// the scoreboard. Rows follow the CSV header; the header row is appended
// once when the sheet is empty. Lookups scan the whole sheet, which is fine
// for a handful of friends.
type SheetsStore struct {
	srv           *sheets.Service
	spreadsheetID string
	sheetName     string
}

func NewSheetsStore(ctx context.Context, credentialsFile, spreadsheetID, sheetName string) (repository.BetsRepository, error) {
	srv, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	return &SheetsStore{srv: srv, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

func (s *SheetsStore) ListByUser(ctx context.Context, userID int64) ([]models.Bet, error) {
	rows, err := s.readRows(ctx)
	if err != nil {
		return nil, err
	}
	var mine []models.Bet
	for _, row := range rows {
		bet, ok := betFromRow(row)
		if ok && bet.UserID == userID {
			mine = append(mine, bet)
		}
	}
	return mine, nil
}

func (s *SheetsStore) Get(ctx context.Context, userID int64, matchID string) (*models.Bet, error) {
	rows, err := s.readRows(ctx)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		bet, ok := betFromRow(row)
		if ok && bet.UserID == userID && bet.MatchID == matchID {
			return &bet, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *SheetsStore) Upsert(ctx context.Context, bet models.Bet) error {
	rows, err := s.readRows(ctx)
	if err != nil {
		return err
	}

	values := []interface{}{
		strconv.FormatInt(bet.UserID, 10),
		bet.DisplayName,
		bet.MatchID,
		string(bet.Outcome),
		bet.Score.String(),
		bet.Description,
	}

	// A nil row set means the sheet has no header yet.
	if rows == nil {
		header := make([]interface{}, len(csvHeader))
		for i, name := range csvHeader {
			header[i] = name
		}
		if err := s.append(ctx, header); err != nil {
			return err
		}
	}

	for i, row := range rows {
		existing, ok := betFromRow(row)
		if ok && existing.UserID == bet.UserID && existing.MatchID == bet.MatchID {
			// Data rows start at sheet row 2, after the header.
			return s.update(ctx, i+2, values)
		}
	}
	return s.append(ctx, values)
}

func (s *SheetsStore) readRows(ctx context.Context) ([][]interface{}, error) {
	resp, err := s.srv.Spreadsheets.Values.
		Get(s.spreadsheetID, s.sheetName+"!A:F").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet: %w", models.ErrStoreUnavailable)
	}
	if len(resp.Values) <= 1 {
		if len(resp.Values) == 0 {
			return nil, nil
		}
		return [][]interface{}{}, nil
	}
	return resp.Values[1:], nil
}

func (s *SheetsStore) append(ctx context.Context, row []interface{}) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{row}}
	_, err := s.srv.Spreadsheets.Values.
		Append(s.spreadsheetID, s.sheetName+"!A:F", vr).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append sheet row: %w", models.ErrStoreUnavailable)
	}
	return nil
}

func (s *SheetsStore) update(ctx context.Context, sheetRow int, row []interface{}) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{row}}
	rng := fmt.Sprintf("%s!A%d:F%d", s.sheetName, sheetRow, sheetRow)
	_, err := s.srv.Spreadsheets.Values.
		Update(s.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update sheet row: %w", models.ErrStoreUnavailable)
	}
	return nil
}

func betFromRow(row []interface{}) (models.Bet, bool) {
	if len(row) < 6 {
		return models.Bet{}, false
	}
	cell := func(i int) string {
		s, _ := row[i].(string)
		return s
	}
	userID, err := strconv.ParseInt(cell(0), 10, 64)
	if err != nil {
		return models.Bet{}, false
	}
	score, err := models.ParseScore(cell(4))
	if err != nil {
		return models.Bet{}, false
	}
	return models.Bet{
		UserID:      userID,
		DisplayName: cell(1),
		MatchID:     cell(2),
		Outcome:     models.Outcome(cell(3)),
		Score:       score,
		Description: cell(5),
	}, true
}
