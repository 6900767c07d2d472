// Package notifier forwards trade records and errors to Telegram.
// Everything here is best-effort: a failed notification is logged and
// swallowed, never propagated into the trading cycle.
package notifier

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/camuig/pulse-trader/internal/config"
	"github.com/camuig/pulse-trader/internal/logger"
	"github.com/camuig/pulse-trader/internal/storage"
)

type Notifier struct {
	bot         *tgbotapi.BotAPI
	adminChatID int64
	enabled     bool
	logger      *logger.Logger
}

func New(cfg *config.Config, log *logger.Logger) *Notifier {
	if !cfg.Telegram.Enabled {
		return &Notifier{enabled: false, logger: log}
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		log.Error("failed to create telegram bot", "error", err)
		return &Notifier{enabled: false, logger: log}
	}

	log.Info("telegram bot connected", "username", bot.Self.UserName)

	return &Notifier{
		bot:         bot,
		adminChatID: cfg.Telegram.AdminChatID,
		enabled:     true,
		logger:      log,
	}
}

// NotifyTrade sends the trade record to the account's chat, falling
// back to the admin chat when the account has none configured.
func (n *Notifier) NotifyTrade(acct *storage.Account, rec *storage.TradeRecord) {
	chatID := acct.ChatID
	if chatID == 0 {
		chatID = n.adminChatID
	}
	if chatID == 0 {
		return
	}

	var parts []string
	if rec.Simulated {
		parts = append(parts, "🔎 *DRY RUN* — simulated trade")
	}
	parts = append(parts, fmt.Sprintf("👤 %s (id: %s)", acct.Username, acct.ID))
	parts = append(parts, fmt.Sprintf("📌 %s | %s", rec.Market, rec.Symbol))

	action := string(rec.Side)
	if rec.Action != "" {
		action += " " + string(rec.Action)
	}
	parts = append(parts, fmt.Sprintf("🛠 %s", action))
	parts = append(parts, fmt.Sprintf("Qty: %g @ Price: %g", rec.Qty, rec.Price))
	if rec.Leverage > 0 {
		parts = append(parts, fmt.Sprintf("Leverage: %d", rec.Leverage))
	}
	if !rec.Simulated {
		parts = append(parts, fmt.Sprintf("Result: %d %s", rec.ResultCode, rec.ResultMsg))
	}
	parts = append(parts, fmt.Sprintf("⏱ %s", rec.Timestamp))

	n.send(chatID, strings.Join(parts, "\n"))
}

func (n *Notifier) NotifyError(scope string, err error) {
	if n.adminChatID == 0 {
		return
	}
	n.send(n.adminChatID, fmt.Sprintf("⚠️ *Error* [%s]\n%v", scope, err))
}

func (n *Notifier) NotifyStatus(message string) {
	if n.adminChatID == 0 {
		return
	}
	n.send(n.adminChatID, message)
}

func (n *Notifier) send(chatID int64, text string) {
	if !n.enabled {
		return
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Error("send telegram message", "chat_id", chatID, "error", err)
	}
}
