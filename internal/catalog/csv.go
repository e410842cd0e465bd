package catalog

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dynamost/totalizator-bot/internal/models"
	"github.com/dynamost/totalizator-bot/internal/repository"
)

// CSVCatalog reads the fixture list from a CSV file with the header
// Date,Time,HomeTeam,AwayTeam,Venue. Match ids are row numbers, counted
// from 1, so they stay stable as long as rows are only appended. The file
// is re-read on every call.
type CSVCatalog struct {
	path string
	loc  *time.Location
}

func NewCSVCatalog(path string, loc *time.Location) repository.MatchesCatalog {
	return &CSVCatalog{path: path, loc: loc}
}

func (c *CSVCatalog) List(ctx context.Context) ([]models.Match, error) {
	file, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("open matches file: %w", models.ErrStoreUnavailable)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read matches file: %w", models.ErrStoreUnavailable)
	}
	if len(records) == 0 {
		return nil, nil
	}

	cols, err := headerIndex(records[0])
	if err != nil {
		return nil, err
	}

	var matches []models.Match
	for i, row := range records[1:] {
		match, err := parseRow(row, cols, strconv.Itoa(i+1), c.loc)
		if err != nil {
			return nil, fmt.Errorf("matches row %d: %w", i+2, err)
		}
		matches = append(matches, match)
	}
	return matches, nil
}

func (c *CSVCatalog) Get(ctx context.Context, id string) (*models.Match, error) {
	matches, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		if m.ID == id {
			return &m, nil
		}
	}
	return nil, models.ErrNotFound
}

func headerIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"Date", "Time", "HomeTeam", "AwayTeam", "Venue"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("matches file missing column %q", required)
		}
	}
	return cols, nil
}

func parseRow(row []string, cols map[string]int, id string, loc *time.Location) (models.Match, error) {
	field := func(name string) string {
		idx := cols[name]
		if idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}
	match := models.Match{
		ID:       id,
		Date:     field("Date"),
		Time:     field("Time"),
		HomeTeam: field("HomeTeam"),
		AwayTeam: field("AwayTeam"),
		Venue:    field("Venue"),
	}
	kickoff, err := time.ParseInLocation("2006-01-02 15:04", match.Date+" "+match.Time, loc)
	if err != nil {
		return models.Match{}, fmt.Errorf("kickoff %q %q: %w", match.Date, match.Time, err)
	}
	match.Kickoff = kickoff
	return match, nil
}
