// Package bot routes chat messages to the interpreter, the ledger and the
// report engine, independent of the chat transport.
package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"flowerbot/internal/core"
	"flowerbot/internal/interpreter"
	applog "flowerbot/internal/log"
)

const (
	DefaultChunkSize = 4000
	defaultPeriod    = "weekly"
	unknownSeller    = "Unknown"

	ErrorReply = "❌ Error recording transaction. Please check the logs."

	HelpText = "🌸 *Flower Bot Help* 🌸\n\n" +
		"*📝 Logging Transactions*\n" +
		"• `100, 500` → Sold 100g for 500\n" +
		"• `100, Alice, 500` → Sold 100g to Alice for 500\n" +
		"• `buy 100, 500` → Bought 100g for 500\n" +
		"• `buy 100, Supplier, 500` → Bought 100g from Supplier\n" +
		"• `Sold 3 grams to Priya for 450 rupees`\n" +
		"• `Bought 50 grams from Mill for 4000 rupees`\n\n" +
		"*📊 Analytics*\n" +
		"• `/report <period>` → Summary (daily/weekly/monthly)\n" +
		"• `/detailed <period>` → Full transaction list + stats\n" +
		"• `/sales <name>` → History for a specific person\n" +
		"• `/sales` → Your own history"

	StartText = "👋 *Welcome to the Flower Sales Bot!*\n\n" +
		"I help you track sales, purchases, and profits.\n" +
		"Every transaction is saved to the shared ledger.\n\n" +
		"Type `/help` to see all available commands and how to log data."
)

// Message is an incoming chat message stripped of transport details.
type Message struct {
	ChatID    int64
	Text      string
	FirstName string
}

// Sender delivers text to a chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Reporter renders reports as chat text.
type Reporter interface {
	Summary(ctx context.Context, period string) string
	Detailed(ctx context.Context, period string) string
	Person(ctx context.Context, name string) string
}

type Bot struct {
	mu        sync.Mutex
	interp    *interpreter.Interpreter
	recorder  *Recorder
	reports   Reporter
	sender    Sender
	chunkSize int
	logger    *applog.Logger
}

type Option func(*Bot)

func WithChunkSize(n int) Option {
	return func(b *Bot) {
		if n > 0 {
			b.chunkSize = n
		}
	}
}

func WithLogger(l *applog.Logger) Option {
	return func(b *Bot) { b.logger = l.WithComponent(applog.ComponentBot) }
}

func New(interp *interpreter.Interpreter, recorder *Recorder, reports Reporter, sender Sender, opts ...Option) *Bot {
	b := &Bot{
		interp:    interp,
		recorder:  recorder,
		reports:   reports,
		sender:    sender,
		chunkSize: DefaultChunkSize,
		logger:    applog.Discard(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Handle processes one message to completion. Messages are handled one at a
// time even when the transport delivers them concurrently. Text that is
// neither a command nor a transaction gets no reply.
func (b *Bot) Handle(ctx context.Context, m Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if strings.TrimSpace(m.Text) == "" {
		return
	}
	if strings.HasPrefix(m.Text, "/") {
		cmd, args := parseCommand(m.Text)
		b.command(ctx, m, cmd, args)
		return
	}
	b.logTransaction(ctx, m)
}

// logTransaction hands the text to the interpreter untouched; the grammars
// decide what leading or trailing whitespace means.
func (b *Bot) logTransaction(ctx context.Context, m Message) {
	intent, grammar, ok := b.interp.InterpretNamed(m.Text)
	if !ok {
		return
	}
	seller := sellerName(m)
	b.logger.DebugContext(ctx, "Message interpreted",
		applog.FieldOperation, applog.OpInterpret,
		applog.FieldGrammar, grammar, applog.FieldChatID, m.ChatID)

	if !b.recorder.Record(ctx, intent, seller) {
		b.reply(ctx, m.ChatID, ErrorReply)
		return
	}
	b.reply(ctx, m.ChatID, Confirmation(intent, seller))
}

// Confirmation is the reply to a logged transaction.
func Confirmation(intent core.Intent, seller string) string {
	verb := "sold to"
	if intent.Action == core.Buy {
		verb = "bought from"
	}
	counterparty := intent.Counterparty
	if strings.TrimSpace(counterparty) == "" {
		counterparty = core.UnknownCounterparty
	}
	return fmt.Sprintf("Logged: %sg %s %s for ₹%s by %s",
		intent.Amount, verb, counterparty, intent.Price, seller)
}

func (b *Bot) command(ctx context.Context, m Message, cmd string, args []string) {
	b.logger.InfoContext(ctx, "Command received",
		applog.FieldCommand, cmd, applog.FieldChatID, m.ChatID)

	switch cmd {
	case "start":
		b.reply(ctx, m.ChatID, StartText)
	case "help":
		b.reply(ctx, m.ChatID, HelpText)
	case "report":
		period, ok := periodArg(args)
		if !ok {
			b.reply(ctx, m.ChatID, "Usage: /report <daily|weekly|monthly>")
			return
		}
		b.reply(ctx, m.ChatID, "⏳ Generating report...")
		b.reply(ctx, m.ChatID, b.reports.Summary(ctx, period))
	case "detailed":
		period, ok := periodArg(args)
		if !ok {
			b.reply(ctx, m.ChatID, "Usage: /detailed <daily|weekly|monthly>")
			return
		}
		b.reply(ctx, m.ChatID, "⏳ Generating detailed report...")
		b.reply(ctx, m.ChatID, b.reports.Detailed(ctx, period))
	case "sales":
		name := strings.TrimSpace(m.FirstName)
		if len(args) > 0 {
			name = strings.Join(args, " ")
		}
		if name == "" {
			b.reply(ctx, m.ChatID, "Could not determine name. Usage: /sales <name>")
			return
		}
		b.reply(ctx, m.ChatID, fmt.Sprintf("⏳ Generating report for %s...", name))
		b.reply(ctx, m.ChatID, b.reports.Person(ctx, name))
	default:
		b.logger.DebugContext(ctx, "Unknown command ignored", applog.FieldCommand, cmd)
	}
}

// reply sends text in chunks; send failures are logged.
func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	for _, chunk := range Chunk(text, b.chunkSize) {
		if err := b.sender.Send(ctx, chatID, chunk); err != nil {
			b.logger.ErrorContext(ctx, "Failed to send reply",
				applog.FieldOperation, applog.OpReply,
				applog.FieldChatID, chatID, applog.FieldError, err)
			return
		}
	}
}

// parseCommand splits "/report@FlowerBot weekly" into "report" and ["weekly"].
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	cmd := strings.TrimPrefix(fields[0], "/")
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd), fields[1:]
}

func periodArg(args []string) (string, bool) {
	if len(args) == 0 {
		return defaultPeriod, true
	}
	p, err := core.ParsePeriod(strings.ToLower(args[0]))
	if err != nil {
		return "", false
	}
	return p.String(), true
}

func sellerName(m Message) string {
	if name := strings.TrimSpace(m.FirstName); name != "" {
		return name
	}
	return unknownSeller
}
