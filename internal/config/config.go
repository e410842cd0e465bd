package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

type Settings struct {
	BotToken    string
	Location    *time.Location
	MatchesCSV  string
	BetsCSV     string
	DBDSN       string
	SheetID     string
	SheetName   string
	GoogleCreds string
	WebhookURL  string
	ListenAddr  string
}

// Load reads settings from the environment (.env honored) and, when DB_DSN
// is set, opens the Postgres pool for the remote mirror. The pool is nil
// otherwise.
func Load(ctx context.Context) (*Settings, *pgxpool.Pool, error) {
	_ = godotenv.Load()

	set := &Settings{}
	set.BotToken = strings.TrimSpace(os.Getenv("BOT_TOKEN"))
	if set.BotToken == "" {
		return nil, nil, fmt.Errorf("BOT_TOKEN is required")
	}

	tz := strings.TrimSpace(os.Getenv("BOT_TZ"))
	if tz == "" {
		return nil, nil, fmt.Errorf("BOT_TZ is required")
	}
	location, err := time.LoadLocation(tz)
	if err != nil {
		return nil, nil, fmt.Errorf("load BOT_TZ: %w", err)
	}
	set.Location = location

	set.MatchesCSV = envOrDefault("MATCHES_CSV", "matches.csv")
	set.BetsCSV = envOrDefault("BETS_CSV", "bets.csv")

	set.SheetID = strings.TrimSpace(os.Getenv("SHEET_ID"))
	set.SheetName = envOrDefault("SHEET_NAME", "Sheet1")
	set.GoogleCreds = strings.TrimSpace(os.Getenv("GOOGLE_CREDENTIALS_FILE"))
	if set.SheetID != "" && set.GoogleCreds == "" {
		return nil, nil, fmt.Errorf("GOOGLE_CREDENTIALS_FILE is required when SHEET_ID is set")
	}

	set.WebhookURL = strings.TrimSpace(os.Getenv("WEBHOOK_URL"))
	set.ListenAddr = envOrDefault("LISTEN_ADDR", ":8080")

	set.DBDSN = strings.TrimSpace(os.Getenv("DB_DSN"))
	if set.DBDSN == "" {
		return set, nil, nil
	}

	cfg, err := pgxpool.ParseConfig(set.DBDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("parse db dsn: %w", err)
	}
	cfg.ConnConfig.RuntimeParams["timezone"] = "UTC"
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 15 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect db: %w", err)
	}
	return set, pool, nil
}

func envOrDefault(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return def
}
