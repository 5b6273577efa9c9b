package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Veraticus/smarttransit/internal/api"
	"github.com/Veraticus/smarttransit/internal/common"
	"github.com/Veraticus/smarttransit/internal/model"
)

// Kind selects the relay endpoint of a dispatch.
type Kind string

// Dispatch kinds.
const (
	KindTest  Kind = "test"
	KindStats Kind = "stats"
	KindAlert Kind = "alert"
)

// ParseKind validates a kind given on the command line.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindTest, KindStats, KindAlert:
		return k, nil
	default:
		return "", fmt.Errorf("unknown notification kind %q", s)
	}
}

// Tier records which delivery path produced a Result.
type Tier string

// Delivery tiers.
const (
	TierRelay  Tier = "relay"
	TierDirect Tier = "direct"
)

// ErrDirectDisabled is reported when the relay failed and no bot credentials
// are configured locally.
var ErrDirectDisabled = errors.New("direct Telegram delivery is not configured")

// Result messages.
const (
	msgSentViaRelay  = "Сообщение отправлено через сервер"
	msgSentDirect    = "Сообщение отправлено напрямую в Telegram"
	noteCheckSetup   = "Проверьте токен и chat_id, а также доступность api.telegram.org"
	noteRelayOnly    = "Прямая отправка в Telegram не настроена, доступен только сервер"
	msgBotAvailable  = "Бот %s (@%s) доступен"
	msgBotNotUsable  = "Telegram бот недоступен. Проверьте токен."
	msgUnknownFailed = "Неизвестная ошибка"
)

// Request is the body of a dispatch.
type Request struct {
	Statistics *model.Statistics `json:"statistics,omitempty"`
	Message    string            `json:"message,omitempty"`
}

// Text resolves the chat text of a request: formatted statistics when
// present, else the message, else the default test text.
func (r Request) Text(now time.Time) string {
	if r.Statistics != nil {
		return FormatStatistics(*r.Statistics, now)
	}
	if r.Message != "" {
		return r.Message
	}
	return DefaultTestMessage
}

// Result is the outcome of a dispatch.
type Result struct {
	TelegramResponse json.RawMessage `json:"telegram_response,omitempty"`
	Message          string          `json:"message,omitempty"`
	Error            string          `json:"error,omitempty"`
	Note             string          `json:"note,omitempty"`
	Tier             Tier            `json:"-"`
	Success          bool            `json:"success"`
}

// ErrorText returns a printable failure reason.
func (r Result) ErrorText() string {
	if r.Error != "" {
		return r.Error
	}
	return msgUnknownFailed
}

// BotCheck is the outcome of an identity pre-flight.
type BotCheck struct {
	Bot     *model.BotProfile
	Message string
	Error   string
	Success bool
}

// Dispatcher sends notifications through the relay, falling back to the
// Bot API when the relay is unreachable or answers with a non-2xx status.
type Dispatcher struct {
	relay *api.Client
	bot   *Bot
	now   func() time.Time
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithClock overrides the time source used in message templates.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// NewDispatcher creates a dispatcher. bot may be nil, which disables the
// direct tier.
func NewDispatcher(relay *api.Client, bot *Bot, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		relay: relay,
		bot:   bot,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DirectEnabled reports whether the Bot API tier is available.
func (d *Dispatcher) DirectEnabled() bool {
	return d.bot != nil
}

// Send dispatches req as kind. It never returns an error; failures are
// carried in the Result.
func (d *Dispatcher) Send(ctx context.Context, kind Kind, req Request) Result {
	endpoint := api.EndpointTelegram + "/" + string(kind)

	payload, err := d.relay.Call(ctx, http.MethodPost, endpoint, req)
	if err != nil {
		if d.bot == nil {
			slog.Error("Relay send failed", "kind", kind, "error", err)
			return relayFailure(err)
		}
		slog.Info("Relay unavailable, sending directly", "kind", kind, "error", err)
		return d.SendDirect(ctx, req)
	}

	result := relayResult(payload)
	slog.Debug("Relay answered", "kind", kind, "success", result.Success)
	return result
}

func relayResult(payload *api.Payload) Result {
	text := strings.TrimSpace(payload.Text())
	if text == "" {
		return Result{Success: true, Message: msgSentViaRelay, Tier: TierRelay}
	}

	var body struct {
		Success          *bool           `json:"success"`
		TelegramResponse json.RawMessage `json:"telegram_response"`
		Message          string          `json:"message"`
		Error            string          `json:"error"`
		Note             string          `json:"note"`
	}
	if err := json.Unmarshal([]byte(text), &body); err != nil {
		return Result{Success: true, Message: text, Tier: TierRelay}
	}

	result := Result{
		Success:          true,
		Message:          body.Message,
		Error:            body.Error,
		Note:             body.Note,
		TelegramResponse: body.TelegramResponse,
		Tier:             TierRelay,
	}
	if body.Success != nil {
		result.Success = *body.Success
	}
	return result
}

// relayFailure reports a failed relay call when there is no direct tier to
// fall back to. The relay's own error text wins over the HTTP status.
func relayFailure(err error) Result {
	result := Result{Error: err.Error(), Note: noteRelayOnly, Tier: TierRelay}

	var httpErr *common.HTTPError
	if errors.As(err, &httpErr) {
		var body struct {
			Error string `json:"error"`
		}
		if json.Unmarshal([]byte(httpErr.Body), &body) == nil && body.Error != "" {
			result.Error = body.Error
		}
	}
	return result
}

// SendDirect posts req straight to the Bot API.
func (d *Dispatcher) SendDirect(ctx context.Context, req Request) Result {
	if d.bot == nil {
		return Result{Error: ErrDirectDisabled.Error(), Note: noteCheckSetup, Tier: TierDirect}
	}

	raw, err := d.bot.SendMessage(ctx, req.Text(d.now()))
	if err != nil {
		slog.Error("Direct Telegram send failed", "error", err)
		return Result{Error: Describe(err), Note: noteCheckSetup, Tier: TierDirect}
	}
	return Result{
		Success:          true,
		Message:          msgSentDirect,
		TelegramResponse: raw,
		Tier:             TierDirect,
	}
}

// CheckBot verifies the bot identity.
func (d *Dispatcher) CheckBot(ctx context.Context) BotCheck {
	if d.bot == nil {
		return BotCheck{Error: ErrDirectDisabled.Error(), Message: msgBotNotUsable}
	}

	profile, err := d.bot.GetMe(ctx)
	if err != nil {
		slog.Warn("Bot identity check failed", "error", err)
		return BotCheck{Error: Describe(err), Message: msgBotNotUsable}
	}
	return BotCheck{
		Success: true,
		Bot:     &profile,
		Message: fmt.Sprintf(msgBotAvailable, profile.FirstName, profile.Username),
	}
}

// SendTest runs the identity pre-flight and then sends the test message
// directly. Without local credentials the test is delegated to the relay.
func (d *Dispatcher) SendTest(ctx context.Context) Result {
	if d.bot == nil {
		return d.Send(ctx, KindTest, Request{Message: DefaultTestMessage})
	}

	check := d.CheckBot(ctx)
	if !check.Success {
		return Result{Error: check.Error, Note: check.Message, Tier: TierDirect}
	}
	return d.SendDirect(ctx, Request{Message: FormatTestMessage(*check.Bot, d.now())})
}

// SendStatistics collects live statistics and dispatches them.
func (d *Dispatcher) SendStatistics(ctx context.Context) (model.Statistics, Result) {
	stats := CollectStatistics(ctx, d.relay, d.now())
	return stats, d.Send(ctx, KindStats, Request{Statistics: &stats})
}

// SendAlert dispatches a free-form alert.
func (d *Dispatcher) SendAlert(ctx context.Context, message string) Result {
	message = strings.TrimSpace(message)
	if message == "" {
		return Result{Error: "message is required"}
	}
	return d.Send(ctx, KindAlert, Request{Message: message})
}

// HealthCheck runs the identity check followed by a short delivery test,
// and reports whether both succeeded.
func (d *Dispatcher) HealthCheck(ctx context.Context) (BotCheck, Result) {
	check := d.CheckBot(ctx)
	if !check.Success {
		return check, Result{Error: check.Error}
	}
	return check, d.SendDirect(ctx, Request{Message: HealthCheckMessage})
}
