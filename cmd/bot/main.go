package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dynamost/totalizator-bot/internal/catalog"
	"github.com/dynamost/totalizator-bot/internal/config"
	"github.com/dynamost/totalizator-bot/internal/repository"
	"github.com/dynamost/totalizator-bot/internal/repository/pg"
	"github.com/dynamost/totalizator-bot/internal/service"
	"github.com/dynamost/totalizator-bot/internal/session"
	"github.com/dynamost/totalizator-bot/internal/store"
	"github.com/dynamost/totalizator-bot/internal/telegram"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	settings, pool, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if pool != nil {
		defer pool.Close()
	}

	logger, err := config.NewLogger()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	matches := catalog.NewCSVCatalog(settings.MatchesCSV, settings.Location)
	bets := store.NewCSVStore(settings.BetsCSV)

	// The local CSV is the write-ahead source of truth; at most one remote
	// mirror is attached on top of it.
	var remote repository.BetsRepository
	switch {
	case pool != nil:
		if err := pg.EnsureSchema(ctx, pool); err != nil {
			log.Fatalf("db schema: %v", err)
		}
		remote = pg.NewBetsRepo(pool)
	case settings.SheetID != "":
		remote, err = store.NewSheetsStore(ctx, settings.GoogleCreds, settings.SheetID, settings.SheetName)
		if err != nil {
			log.Fatalf("sheets: %v", err)
		}
	}
	if remote != nil {
		bets = store.NewDualStore(bets, remote, logger)
	}

	sessions := session.NewStore()
	betSvc := service.NewBetService(matches, bets, sessions)

	botAPI, err := tgbotapi.NewBotAPI(settings.BotToken)
	if err != nil {
		log.Fatalf("telegram: %v", err)
	}
	botAPI.Debug = os.Getenv("DEBUG") == "1"

	bot := telegram.NewBot(botAPI, betSvc, logger, settings.WebhookURL, settings.ListenAddr)
	if err := bot.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("bot stopped: %v", err)
	}
}
