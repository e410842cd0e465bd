package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dynamost/totalizator-bot/internal/models"
	"github.com/dynamost/totalizator-bot/internal/repository"
	"github.com/dynamost/totalizator-bot/internal/service"
)

const (
	actionBetDate    = "bet_date"
	actionBetPick    = "bet_pick"
	actionEditPick   = "edit_pick"
	actionBetOutcome = "bet_outcome"
)

type Bot struct {
	api        *tgbotapi.BotAPI
	svc        service.BetService
	logger     repository.Logger
	webhookURL string
	listenAddr string
}

func NewBot(api *tgbotapi.BotAPI, svc service.BetService, logger repository.Logger, webhookURL, listenAddr string) *Bot {
	return &Bot{
		api:        api,
		svc:        svc,
		logger:     logger,
		webhookURL: webhookURL,
		listenAddr: listenAddr,
	}
}

// Run consumes updates until the context is canceled. With WEBHOOK_URL set
// the bot registers a webhook and serves it; otherwise it long-polls.
func (b *Bot) Run(ctx context.Context) error {
	updates, shutdown, err := b.updates()
	if err != nil {
		return err
	}
	defer shutdown()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update := <-updates:
			if err := b.handleUpdate(ctx, update); err != nil {
				b.logger.Error(err, "handle_update", "update", fmt.Sprint(update.UpdateID), 0)
			}
		}
	}
}

func (b *Bot) updates() (tgbotapi.UpdatesChannel, func(), error) {
	if b.webhookURL == "" {
		updateConfig := tgbotapi.NewUpdate(0)
		updateConfig.Timeout = 30
		return b.api.GetUpdatesChan(updateConfig), func() { b.api.StopReceivingUpdates() }, nil
	}

	parsed, err := url.Parse(b.webhookURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse webhook url: %w", err)
	}
	info, err := b.api.GetWebhookInfo()
	if err != nil {
		return nil, nil, fmt.Errorf("webhook info: %w", err)
	}
	if info.URL != b.webhookURL {
		wh, err := tgbotapi.NewWebhook(b.webhookURL)
		if err != nil {
			return nil, nil, fmt.Errorf("webhook config: %w", err)
		}
		if _, err := b.api.Request(wh); err != nil {
			return nil, nil, fmt.Errorf("set webhook: %w", err)
		}
	}

	updates := b.api.ListenForWebhook(parsed.Path)
	server := &http.Server{Addr: b.listenAddr}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			b.logger.Error(err, "webhook_server", "server", b.listenAddr, 0)
		}
	}()
	shutdown := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
	return updates, shutdown, nil
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.Message != nil {
		return b.handleMessage(ctx, update.Message)
	}
	if update.CallbackQuery != nil {
		return b.handleCallback(ctx, update.CallbackQuery)
	}
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	userID := msg.From.ID
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.sendSimple(chatID, startMessage)
		case "matches":
			return b.sendOpenDates(ctx, chatID, userID)
		case "edit":
			return b.sendEditList(ctx, chatID, userID)
		case "mybets":
			return b.sendMyBets(ctx, chatID, userID)
		case "info":
			b.sendSimple(chatID, infoMessage)
		default:
			b.sendSimple(chatID, "Неизвестная команда. Список команд: /start")
		}
		return nil
	}

	// Free text is only meaningful as an exact score inside a flow.
	if !b.svc.HasSession(userID) {
		return nil
	}
	return b.submitScore(ctx, msg)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb.From == nil || cb.Message == nil {
		return nil
	}
	userID := cb.From.ID
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID

	payload, err := parseCallback(cb.Data)
	if err != nil {
		_, _ = b.api.Request(tgbotapi.NewCallback(cb.ID, "Некорректная кнопка"))
		return nil
	}
	_, _ = b.api.Request(tgbotapi.NewCallback(cb.ID, ""))

	switch payload.Action {
	case actionBetDate:
		return b.sendMatchesForDate(ctx, chatID, messageID, userID, payload.Params["d"])
	case actionBetPick:
		return b.pickMatch(ctx, chatID, messageID, userID, payload.Params["id"], false)
	case actionEditPick:
		return b.pickMatch(ctx, chatID, messageID, userID, payload.Params["id"], true)
	case actionBetOutcome:
		return b.pickOutcome(ctx, chatID, messageID, userID, payload.Params["o"])
	default:
		b.logger.Info("callback", "action", payload.Action, userID, "unknown")
	}
	return nil
}

// ----------------------------------------------------------------------------
// Flow steps

func (b *Bot) sendOpenDates(ctx context.Context, chatID, userID int64) error {
	b.svc.Abandon(userID)
	dates, err := b.svc.OpenDates(ctx, userID)
	if err != nil {
		b.reportError(chatID, userID, "list_dates", err)
		return nil
	}
	if len(dates) == 0 {
		b.sendSimple(chatID, "📭 Нет доступных матчей для ставок.")
		return nil
	}
	keyboard := make([][]tgbotapi.InlineKeyboardButton, 0, len(dates))
	for _, date := range dates {
		keyboard = append(keyboard, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(date, fmt.Sprintf("%s|d=%s", actionBetDate, date)),
		})
	}
	msg := tgbotapi.NewMessage(chatID, "📅 Выберите дату:")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(keyboard...)
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) sendMatchesForDate(ctx context.Context, chatID int64, messageID int, userID int64, date string) error {
	matches, err := b.svc.MatchesForDate(ctx, userID, date)
	if err != nil {
		b.reportError(chatID, userID, "list_matches", err)
		return nil
	}
	if len(matches) == 0 {
		return b.editSimple(chatID, messageID, "📭 На эту дату не осталось доступных матчей.")
	}
	keyboard := make([][]tgbotapi.InlineKeyboardButton, 0, len(matches))
	for _, m := range matches {
		label := fmt.Sprintf("%s • %s vs %s (%s)", m.Time, m.HomeTeam, m.AwayTeam, m.Venue)
		keyboard = append(keyboard, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s|id=%s", actionBetPick, m.ID)),
		})
	}
	msg := tgbotapi.NewEditMessageText(chatID, messageID, fmt.Sprintf("📆 Матчи на %s:", date))
	markup := tgbotapi.NewInlineKeyboardMarkup(keyboard...)
	msg.ReplyMarkup = &markup
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) sendEditList(ctx context.Context, chatID, userID int64) error {
	b.svc.Abandon(userID)
	matches, err := b.svc.ListOpenMatches(ctx, userID, true)
	if err != nil {
		b.reportError(chatID, userID, "list_editable", err)
		return nil
	}
	if len(matches) == 0 {
		b.sendSimple(chatID, "⏱ Нет ставок, которые ещё можно изменить.")
		return nil
	}
	keyboard := make([][]tgbotapi.InlineKeyboardButton, 0, len(matches))
	for _, m := range matches {
		keyboard = append(keyboard, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(m.Desc(), fmt.Sprintf("%s|id=%s", actionEditPick, m.ID)),
		})
	}
	msg := tgbotapi.NewMessage(chatID, "✏ Выберите ставку для изменения:")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(keyboard...)
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) pickMatch(ctx context.Context, chatID int64, messageID int, userID int64, matchID string, editing bool) error {
	match, err := b.svc.SelectMatch(ctx, userID, matchID, editing)
	if err != nil {
		if errors.Is(err, models.ErrExpired) || errors.Is(err, models.ErrNotFound) {
			return b.editSimple(chatID, messageID, "❌ Матч уже начался или недоступен.")
		}
		b.reportError(chatID, userID, "select_match", err)
		return nil
	}
	b.logger.Info("select_match", "match", match.ID, userID, "ok")

	header := fmt.Sprintf("📌 Матч: %s\n\nВыберите исход:", match.Desc())
	if editing {
		header = fmt.Sprintf("✏ Изменение ставки: %s\n\nВыберите новый исход:", match.Desc())
	}
	msg := tgbotapi.NewEditMessageText(chatID, messageID, header)
	markup := tgbotapi.NewInlineKeyboardMarkup(outcomeRow())
	msg.ReplyMarkup = &markup
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) pickOutcome(ctx context.Context, chatID int64, messageID int, userID int64, token string) error {
	if err := b.svc.SelectOutcome(ctx, userID, token); err != nil {
		if errors.Is(err, models.ErrInvalidState) {
			return b.editSimple(chatID, messageID, "Сначала выберите матч: /matches")
		}
		b.reportError(chatID, userID, "select_outcome", err)
		return nil
	}
	text := fmt.Sprintf("✅ Исход: %s\n\n✍ Отправьте точный счёт (например 2-1):", token)
	return b.editSimple(chatID, messageID, text)
}

func (b *Bot) submitScore(ctx context.Context, msg *tgbotapi.Message) error {
	userID := msg.From.ID
	chatID := msg.Chat.ID
	displayName := strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
	if displayName == "" {
		displayName = msg.From.UserName
	}

	bet, edited, err := b.svc.SubmitScore(ctx, userID, displayName, msg.Text)
	if err != nil {
		b.reportError(chatID, userID, "submit_score", err)
		return nil
	}
	b.logger.Info("submit_score", "bet", bet.MatchID, userID, "ok")

	verb := "зарегистрирована"
	if edited {
		verb = "изменена"
	}
	text := fmt.Sprintf(
		"🎉 *Ставка %s!*\n\n📝 *%s*\n📊 Исход: *%s*\n🎯 Счёт: *%s*",
		verb, escape(bet.Description), bet.Outcome, bet.Score,
	)
	b.sendSimple(chatID, text)
	return nil
}

func (b *Bot) sendMyBets(ctx context.Context, chatID, userID int64) error {
	bets, err := b.svc.UserBets(ctx, userID)
	if err != nil {
		b.reportError(chatID, userID, "list_bets", err)
		return nil
	}
	if len(bets) == 0 {
		b.sendSimple(chatID, "📭 Вы ещё не сделали ни одной ставки.")
		return nil
	}
	var builder strings.Builder
	builder.WriteString("📊 *Ваши ставки:*\n")
	for _, bet := range bets {
		builder.WriteString(fmt.Sprintf("\n📝 %s\n📊 Исход: %s\n🎯 Счёт: %s\n",
			escape(bet.Description), bet.Outcome, bet.Score))
	}
	b.sendSimple(chatID, builder.String())
	return nil
}

// ----------------------------------------------------------------------------
// Rendering helpers

const startMessage = "👋 *Добро пожаловать в тотализатор!*\n\n" +
	"Здесь можно:\n" +
	"- Поставить прогноз на каждый матч (исход + точный счёт)\n" +
	"- Изменить прогноз до начала матча\n" +
	"- Посмотреть свои ставки\n\n" +
	"*Команды:*\n" +
	"📅 /matches – матчи и новая ставка\n" +
	"✏ /edit – изменить сделанную ставку\n" +
	"📊 /mybets – ваши ставки\n" +
	"ℹ /info – о турнире и правилах\n\n" +
	"📌 *Правила:*\n" +
	"- Одна ставка на матч\n" +
	"- Точный счёт должен соответствовать исходу\n" +
	"- После начала матча ставка не принимается и не меняется"

const infoMessage = "ℹ *Клубный чемпионат мира 2025*\n\n" +
	"- 32 команды со всего мира\n" +
	"- Плей-офф на вылет\n" +
	"- Побеждает тот, кто угадает больше точных счетов!\n\n" +
	"Ставки бесплатные, без призов.\n" +
	"Только честь и азарт 😎"

func outcomeRow() []tgbotapi.InlineKeyboardButton {
	return []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("1", actionBetOutcome+"|o=1"),
		tgbotapi.NewInlineKeyboardButtonData("X", actionBetOutcome+"|o=X"),
		tgbotapi.NewInlineKeyboardButtonData("2", actionBetOutcome+"|o=2"),
	}
}

func (b *Bot) sendSimple(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	_, _ = b.api.Send(msg)
}

func (b *Bot) editSimple(chatID int64, messageID int, text string) error {
	msg := tgbotapi.NewEditMessageText(chatID, messageID, text)
	_, err := b.api.Send(msg)
	return err
}

// reportError maps the error taxonomy to short user-facing messages.
// Unclassified errors are logged in full and surfaced generically only.
func (b *Bot) reportError(chatID, userID int64, action string, err error) {
	if text := userMessage(err); text != "" {
		b.sendSimple(chatID, text)
		return
	}
	b.logger.Error(err, action, "update", "", userID)
	b.sendSimple(chatID, "Что-то пошло не так. Попробуйте позже.")
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, models.ErrExpired):
		return "⛔ Матч уже начался, ставки закрыты."
	case errors.Is(err, models.ErrMalformedScore):
		return "Неверный формат счёта. Пример: 2-1"
	case errors.Is(err, models.ErrInconsistent):
		return "⚠ Счёт не соответствует выбранному исходу. Попробуйте ещё раз (например 2-1 для «1»)."
	case errors.Is(err, models.ErrNotFound):
		return "❌ Матч не найден или ставка отсутствует."
	case errors.Is(err, models.ErrInvalidState):
		return "Сначала выберите матч: /matches"
	case errors.Is(err, models.ErrStoreUnavailable):
		return "⚠ Хранилище ставок недоступно. Попробуйте позже."
	default:
		return ""
	}
}

// ----------------------------------------------------------------------------

type callbackPayload struct {
	Action string
	Params map[string]string
}

func parseCallback(data string) (*callbackPayload, error) {
	parts := strings.Split(data, "|")
	if len(parts) == 0 || parts[0] == "" {
		return nil, errors.New("empty callback")
	}
	payload := &callbackPayload{
		Action: parts[0],
		Params: map[string]string{},
	}
	for _, part := range parts[1:] {
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		payload.Params[kv[0]] = kv[1]
	}
	return payload, nil
}

func escape(s string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"`", "\\`",
		"[", "\\[",
	)
	return replacer.Replace(s)
}
