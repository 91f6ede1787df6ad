package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"ai-travel-planner/internal/app"
	"ai-travel-planner/internal/config"
	"ai-travel-planner/internal/llm"
	"ai-travel-planner/internal/metrics"
	"ai-travel-planner/internal/notes"
	"ai-travel-planner/internal/planner"
	"ai-travel-planner/internal/travelplan"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	// contextBloatTokens triggers an admin alert when a prompt grows past it.
	contextBloatTokens = 4000
	// maxMessageLen stays under Telegram's 4096 character limit.
	maxMessageLen = 4000
	maxTitleRunes = 60
	// requestTimeout bounds one message's work, generation included.
	requestTimeout = 3 * time.Minute
)

// botAPI is the part of tgbotapi.BotAPI the bot uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	HandleUpdate(r *http.Request) (*tgbotapi.Update, error)
}

// Service is the application surface the bot drives.
type Service interface {
	CreateNote(ctx context.Context, userID, title string, content *string) (notes.Note, error)
	ImportNote(ctx context.Context, userID, url string) (notes.Note, error)
	GeneratePlanForNote(ctx context.Context, userID, noteID string, opts *planner.Options, mode app.Mode) (app.PlanOutcome, error)
}

// UsageReporter provides the numbers behind /metrics.
type UsageReporter interface {
	GetDailyUsage(days int) ([]metrics.DailyUsage, error)
}

// Bot turns Telegram messages into notes and travel plans.
type Bot struct {
	api      botAPI
	svc      Service
	usage    UsageReporter
	cfg      *config.Config
	dataPath string
	// wait, when set, makes the webhook process updates synchronously.
	wait bool
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(cfg *config.Config, svc Service, usage UsageReporter) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	log.Printf("Authorized on account %s", api.Self.UserName)

	wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook URL %s: %w", cfg.TelegramWebhookURL, err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	log.Printf("Webhook set response: %s", resp.Description)

	return newBot(api, cfg, svc, usage), nil
}

func newBot(api botAPI, cfg *config.Config, svc Service, usage UsageReporter) *Bot {
	return &Bot{
		api:      api,
		svc:      svc,
		usage:    usage,
		cfg:      cfg,
		dataPath: filepath.Dir(cfg.DatabasePath),
	}
}

// ServeHTTP handles webhook updates. Telegram retries on non-2xx replies, so
// updates that cannot be parsed are logged and acknowledged.
func (b *Bot) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		log.Printf("Error parsing update: %v", err)
		return
	}

	run := func(f func()) {
		if b.wait {
			f()
			return
		}
		go f()
	}

	switch {
	case update.CallbackQuery != nil:
		if !b.isAllowed(update.CallbackQuery.From) {
			return
		}
		run(func() { b.handleCallbackQuery(update.CallbackQuery) })
	case update.Message != nil:
		if !b.isAllowed(update.Message.From) {
			return
		}
		run(func() { b.processMessage(update.Message) })
	}
}

func (b *Bot) isAllowed(from *tgbotapi.User) bool {
	if from == nil {
		return false
	}
	if slices.Contains(b.cfg.TelegramAllowedUserIDs, from.ID) {
		return true
	}
	log.Printf("⚠️ Unauthorized access attempt from UserID: %d (@%s)", from.ID, from.UserName)
	return false
}

// ownerID is the notes owner for a Telegram user.
func ownerID(from *tgbotapi.User) string {
	return fmt.Sprintf("tg:%d", from.ID)
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	switch {
	case text == "/start" || text == "/help":
		b.reply(msg.Chat.ID, helpText)
	case text == "/metrics":
		if msg.From.ID != b.cfg.AdminTelegramID {
			b.reply(msg.Chat.ID, "⛔ *Brak dostępu*: tylko dla administratora.")
			return
		}
		b.handleMetricsCommand(msg.Chat.ID)
	case strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://"):
		b.handleImport(msg, text)
	default:
		b.handleNote(msg, text)
	}
}

const helpText = "✈️ *Planer podróży*\n\n" +
	"Wyślij notatkę z podróży (co najmniej 10 słów), a przygotuję plan dzień po dniu.\n" +
	"Wyślij link do artykułu, aby zapisać go jako notatkę."

func (b *Bot) handleImport(msg *tgbotapi.Message, url string) {
	sent, err := b.status(msg.Chat.ID, "✂️ *Importuję artykuł...*")
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	note, err := b.svc.ImportNote(ctx, ownerID(msg.From), url)
	if err != nil {
		log.Printf("Error importing %s: %v", url, err)
		b.edit(msg.Chat.ID, sent.MessageID, "❌ *Nie udało się zaimportować artykułu.*", nil)
		return
	}

	text := fmt.Sprintf("✅ *Zapisano notatkę:* %s", escape(note.Title))
	keyboard := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🗺 Generuj plan", callbackData(actionPlan, note.ID, "")),
	))
	b.edit(msg.Chat.ID, sent.MessageID, text, &keyboard)
}

func (b *Bot) handleNote(msg *tgbotapi.Message, text string) {
	if !planner.ValidateNoteContent(text) {
		b.reply(msg.Chat.ID, msgNoteTooShort)
		return
	}

	sent, err := b.status(msg.Chat.ID, "🧭 *Planuję podróż...*")
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	userID := ownerID(msg.From)
	note, err := b.svc.CreateNote(ctx, userID, noteTitle(text), &text)
	if err != nil {
		log.Printf("Error saving note for %s: %v", userID, err)
		b.edit(msg.Chat.ID, sent.MessageID, "❌ "+userMessage(err), nil)
		return
	}

	b.generateAndSendPlan(ctx, userID, msg.Chat.ID, sent.MessageID, note.ID, nil, app.ModeCreate)
}

// Callback data is "<action>|<noteID>|<style>", at most 52 bytes, below
// Telegram's 64 byte limit.
const (
	actionPlan  = "plan"
	actionRegen = "regen"
)

func callbackData(action, noteID string, style planner.Style) string {
	return fmt.Sprintf("%s|%s|%s", action, noteID, style)
}

func parseCallbackData(data string) (action, noteID string, style planner.Style, ok bool) {
	parts := strings.Split(data, "|")
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], planner.Style(parts[2]), true
}

func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	// Answer callback to remove spinner
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		log.Printf("Warning: failed to answer callback: %v", err)
	}
	if query.Message == nil {
		return
	}

	action, noteID, style, ok := parseCallbackData(query.Data)
	if !ok {
		log.Printf("Ignoring callback with unexpected data %q", query.Data)
		return
	}

	var (
		mode = app.ModeCreate
		opts *planner.Options
	)
	switch action {
	case actionPlan:
	case actionRegen:
		mode = app.ModeReplace
		opts = &planner.Options{Style: style}
	default:
		log.Printf("Ignoring callback with unknown action %q", action)
		return
	}

	chatID, messageID := query.Message.Chat.ID, query.Message.MessageID
	b.edit(chatID, messageID, "🧭 *Planuję podróż...*", nil)

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	b.generateAndSendPlan(ctx, ownerID(query.From), chatID, messageID, noteID, opts, mode)
}

func (b *Bot) generateAndSendPlan(ctx context.Context, userID string, chatID int64, messageID int, noteID string, opts *planner.Options, mode app.Mode) {
	log.Printf("Generating plan for note %s (user %s)", noteID, userID)
	out, err := b.svc.GeneratePlanForNote(ctx, userID, noteID, opts, mode)
	if err != nil {
		log.Printf("Error generating plan: %v", err)
		b.edit(chatID, messageID, "❌ "+userMessage(err), nil)
		return
	}

	if out.Meta.Usage.PromptTokens > contextBloatTokens {
		b.sendAdminAlert(fmt.Sprintf("⚠️ *Context Bloat Alert*\nAgent: %s\nModel: %s\nPrompt Tokens: %d",
			out.Meta.AgentName, out.Meta.Usage.Model, out.Meta.Usage.PromptTokens))
	}

	parts := formatPlanMarkdown(out.Plan.Content)
	keyboard := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔄 Aktywniej", callbackData(actionRegen, noteID, planner.StyleAdventure)),
		tgbotapi.NewInlineKeyboardButtonData("🔄 Spokojniej", callbackData(actionRegen, noteID, planner.StyleLeisure)),
	))

	if len(parts) == 1 {
		b.edit(chatID, messageID, parts[0], &keyboard)
		return
	}
	b.edit(chatID, messageID, parts[0], nil)
	for i, part := range parts[1:] {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeMarkdown
		if i == len(parts)-2 {
			msg.ReplyMarkup = keyboard
		}
		if _, err := b.api.Send(msg); err != nil {
			log.Printf("Warning: failed to send plan part %d: %v", i+2, err)
		}
	}
}

// formatPlanMarkdown renders the itinerary as Telegram Markdown, split into
// messages at day boundaries.
func formatPlanMarkdown(content travelplan.Content) []string {
	var blocks []string
	for _, day := range content.Days {
		var sb strings.Builder
		fmt.Fprintf(&sb, "📅 *%s*: %s\n", escape(day.Header()), escape(day.Title))
		for _, slot := range day.Activities.Slots() {
			if len(slot.Activities) == 0 {
				continue
			}
			fmt.Fprintf(&sb, "\n_%s_\n", slot.Label)
			for _, a := range slot.Activities {
				fmt.Fprintf(&sb, "• *%s* (%s)\n", escape(a.Name), a.PriceCategory.Label())
				if a.Description != "" {
					fmt.Fprintf(&sb, "  %s\n", escape(a.Description))
				}
				if a.Logistics.EstimatedTime != "" {
					fmt.Fprintf(&sb, "  ⏱ %s\n", escape(a.Logistics.EstimatedTime))
				}
				if a.Logistics.Address != "" {
					fmt.Fprintf(&sb, "  🏠 %s\n", escape(a.Logistics.Address))
				}
				if a.Logistics.MapLink != "" {
					fmt.Fprintf(&sb, "  [📍 Mapa](%s)\n", a.Logistics.MapLink)
				}
			}
		}
		blocks = append(blocks, sb.String())
	}
	if content.Disclaimer != "" {
		blocks = append(blocks, fmt.Sprintf("ℹ️ _%s_", escape(content.Disclaimer)))
	}

	var (
		parts   []string
		current strings.Builder
	)
	current.WriteString("🗺 *Plan podróży*\n\n")
	for _, block := range blocks {
		for _, chunk := range splitBlock(block, maxMessageLen-1) {
			if current.Len() > 0 && current.Len()+len(chunk) >= maxMessageLen {
				parts = append(parts, strings.TrimSpace(current.String()))
				current.Reset()
			}
			current.WriteString(chunk)
			current.WriteString("\n")
		}
	}
	if current.Len() > 0 {
		parts = append(parts, strings.TrimSpace(current.String()))
	}
	return parts
}

// splitBlock cuts block into chunks of at most limit bytes at line breaks.
// A single line over the limit is cut at a rune boundary that does not
// leave a dangling escape character.
func splitBlock(block string, limit int) []string {
	if len(block) <= limit {
		return []string{block}
	}
	var (
		chunks  []string
		current strings.Builder
	)
	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}
	for _, line := range strings.SplitAfter(block, "\n") {
		for len(line) > limit {
			flush()
			cut := limit
			for cut > 0 && (!utf8.RuneStart(line[cut]) || line[cut-1] == '\\') {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}
		if current.Len()+len(line) > limit {
			flush()
		}
		current.WriteString(line)
	}
	flush()
	return chunks
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

// noteTitle is the first line of the text, shortened to maxTitleRunes.
func noteTitle(text string) string {
	title, _, _ := strings.Cut(text, "\n")
	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) <= maxTitleRunes {
		return title
	}
	runes := []rune(title)
	return strings.TrimSpace(string(runes[:maxTitleRunes])) + "…"
}

const (
	msgNoteTooShort   = "Notatka musi zawierać co najmniej 10 słów, aby wygenerować plan podróży."
	msgMalformedReply = "Otrzymano plan w nieprawidłowym formacie. Spróbuj ponownie."
	msgTimeout        = "Przekroczono limit czasu oczekiwania. Spróbuj ponownie."
	msgUnexpected     = "Wystąpił nieoczekiwany błąd. Spróbuj ponownie."
)

// userMessage maps an error to the text shown in the chat. Raw model output
// is never echoed back.
func userMessage(err error) string {
	var llmErr *llm.Error
	switch {
	case errors.Is(err, app.ErrGenerationTimeout):
		return msgTimeout
	case errors.Is(err, app.ErrNoteTooShort):
		return msgNoteTooShort
	case errors.Is(err, notes.ErrNotFound):
		return "Nie znaleziono notatki."
	case errors.Is(err, travelplan.ErrPlanNotFound):
		return "Ta notatka nie ma jeszcze planu."
	case errors.As(err, &llmErr):
		if llmErr.Kind == llm.KindInvalidJSONResponse || llmErr.Kind == llm.KindSchemaValidation {
			return msgMalformedReply
		}
		return llmErr.Message
	default:
		return msgUnexpected
	}
}

func (b *Bot) handleMetricsCommand(chatID int64) {
	usage, err := b.usage.GetDailyUsage(7)
	if err != nil {
		log.Printf("Error fetching metrics: %v", err)
		b.reply(chatID, "❌ Nie udało się pobrać statystyk.")
		return
	}
	b.reply(chatID, formatMetricsReport(usage, metrics.GetSysHealth(b.dataPath)))
}

func formatMetricsReport(usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		fmt.Fprintf(&sb, "• *%s*: %d tokens (%d execs, %d failed)\n",
			d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution, d.Failures)
	}

	sb.WriteString("\n🧠 *System Health*\n")
	fmt.Fprintf(&sb, "• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB)
	fmt.Fprintf(&sb, "• Goroutines: %d\n", health.Goroutines)
	fmt.Fprintf(&sb, "• Disk Data: %s\n", health.DataDiskSize)
	return sb.String()
}

func (b *Bot) sendAdminAlert(text string) {
	if b.cfg.AdminTelegramID == 0 {
		return
	}
	b.reply(b.cfg.AdminTelegramID, text)
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Warning: failed to send message to %d: %v", chatID, err)
	}
}

func (b *Bot) status(chatID int64, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	sent, err := b.api.Send(msg)
	if err != nil {
		log.Printf("Failed to send initial reply: %v", err)
	}
	return sent, err
}

func (b *Bot) edit(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	edit.ReplyMarkup = keyboard
	if _, err := b.api.Send(edit); err != nil {
		log.Printf("Warning: failed to edit message %d: %v", messageID, err)
	}
}
