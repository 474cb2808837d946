// Package telegram adapts Telegram updates to session events and renders the
// results back as chat messages.
package telegram

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"strings"

	"notebot/internal/session"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Client is the subset of *tgbotapi.BotAPI the bot needs.
type Client interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Bot struct {
	client  Client
	svc     *session.Service
	log     *zap.Logger
	workers int
}

func NewBot(client Client, svc *session.Service, log *zap.Logger, workers int) *Bot {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Bot{client: client, svc: svc, log: log, workers: workers}
}

// queueSize is the per-worker backlog before Run stops reading updates.
const queueSize = 64

// Run handles updates until ctx is done or the channel closes, then waits
// for queued updates to finish. Updates from one user always land on the
// same worker, so they are handled in arrival order; different users are
// handled in parallel.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	handleCtx := context.WithoutCancel(ctx)
	queues := make([]chan tgbotapi.Update, b.workers)

	var g errgroup.Group
	for i := range queues {
		q := make(chan tgbotapi.Update, queueSize)
		queues[i] = q
		g.Go(func() error {
			for update := range q {
				b.HandleUpdate(handleCtx, update)
			}
			return nil
		})
	}
	defer func() {
		for _, q := range queues {
			close(q)
		}
		g.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			select {
			case queues[b.shard(update)] <- update:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// shard picks the worker for update by hashing its sender.
func (b *Bot) shard(update tgbotapi.Update) int {
	from := sender(update)
	if from == nil {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(userKey(from)))
	return int(h.Sum32() % uint32(b.workers))
}

func sender(update tgbotapi.Update) *tgbotapi.User {
	switch {
	case update.CallbackQuery != nil:
		return update.CallbackQuery.From
	case update.Message != nil:
		return update.Message.From
	}
	return nil
}

// HandleUpdate dispatches a single update.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil:
		msg := update.Message
		if msg.IsCommand() {
			b.handleCommand(ctx, msg)
			return
		}
		if msg.Text != "" {
			b.handleText(ctx, msg)
		}
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID := userKey(msg.From)
	switch msg.Command() {
	case "start":
		b.reply(msg.Chat.ID, HelpText)
	case "notes":
		items, err := b.svc.OnList(ctx, userID)
		if err != nil {
			b.reply(msg.Chat.ID, failureText)
			return
		}
		if len(items) == 0 {
			b.reply(msg.Chat.ID, emptyListText)
			return
		}
		b.reply(msg.Chat.ID, listText(items))
	case "delete":
		items, err := b.svc.OnDeleteMenu(ctx, userID)
		if err != nil {
			b.reply(msg.Chat.ID, failureText)
			return
		}
		if len(items) == 0 {
			b.reply(msg.Chat.ID, emptyMenuText)
			return
		}
		rows := make([][]tgbotapi.InlineKeyboardButton, len(items))
		for i, it := range items {
			rows[i] = tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(
				strconv.Itoa(it.ID)+". "+it.Preview,
				deletePrefix+strconv.Itoa(it.ID),
			))
		}
		out := tgbotapi.NewMessage(msg.Chat.ID, menuTitle)
		out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
		b.send(out)
	}
}

func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	conf, err := b.svc.OnMessage(ctx, userKey(msg.From), msg.Text)
	switch {
	case errors.Is(err, session.ErrQuotaExceeded):
		// The rejected note is discarded, so its message is removed from the chat.
		b.request(tgbotapi.NewDeleteMessage(msg.Chat.ID, msg.MessageID))
		b.reply(msg.Chat.ID, quotaText())
	case err != nil:
		b.reply(msg.Chat.ID, failureText)
	default:
		b.reply(msg.Chat.ID, savedText(conf))
	}
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	b.request(tgbotapi.NewCallback(q.ID, ""))

	id, ok := parseDeleteData(q.Data)
	if !ok || q.From == nil || q.Message == nil {
		b.log.Debug("ignoring callback", zap.String("data", q.Data))
		return
	}

	conf, err := b.svc.OnDeleteConfirm(ctx, userKey(q.From), id)
	text := deletedText(conf)
	switch {
	case errors.Is(err, session.ErrNotFound):
		text = notFoundText
	case err != nil:
		text = failureText
	}
	b.send(tgbotapi.NewEditMessageText(q.Message.Chat.ID, q.Message.MessageID, text))
}

func parseDeleteData(data string) (int, bool) {
	raw, ok := strings.CutPrefix(data, deletePrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

func userKey(u *tgbotapi.User) string {
	return strconv.FormatInt(u.ID, 10)
}

func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.client.Send(c); err != nil {
		b.log.Warn("telegram send failed", zap.Error(err))
	}
}

func (b *Bot) request(c tgbotapi.Chattable) {
	if _, err := b.client.Request(c); err != nil {
		b.log.Warn("telegram request failed", zap.Error(err))
	}
}
