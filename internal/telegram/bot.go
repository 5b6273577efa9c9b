// Package telegram delivers operator notifications to a Telegram chat,
// either through the backend relay or directly through the Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Veraticus/smarttransit/internal/common"
	"github.com/Veraticus/smarttransit/internal/model"
)

// DefaultAPIURL is the public Bot API root.
const DefaultAPIURL = "https://api.telegram.org"

// Bot is a minimal Bot API client bound to one chat.
type Bot struct {
	httpClient *http.Client
	apiURL     string
	token      string
	chatID     string
}

// apiResponse is the envelope of every Bot API reply.
type apiResponse struct {
	Description string          `json:"description,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	OK          bool            `json:"ok"`
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// BotOption configures a Bot.
type BotOption func(*Bot)

// WithBotHTTPClient replaces the HTTP client used for the Bot API.
func WithBotHTTPClient(hc *http.Client) BotOption {
	return func(b *Bot) {
		b.httpClient = hc
	}
}

// NewBot creates a Bot. Both token and chatID are required.
func NewBot(apiURL, token, chatID string, opts ...BotOption) (*Bot, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: telegram.token", common.ErrMissingConfig)
	}
	if strings.TrimSpace(chatID) == "" {
		return nil, fmt.Errorf("%w: telegram.chat_id", common.ErrMissingConfig)
	}
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}

	b := &Bot{
		apiURL: strings.TrimRight(apiURL, "/"),
		token:  token,
		chatID: chatID,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// ChatID returns the configured destination chat.
func (b *Bot) ChatID() string {
	return b.chatID
}

// GetMe returns the bot identity.
func (b *Bot) GetMe(ctx context.Context) (model.BotProfile, error) {
	var profile model.BotProfile

	resp, raw, err := b.call(ctx, http.MethodGet, "getMe", nil)
	if err != nil {
		return profile, err
	}
	if !resp.OK {
		return profile, apiError(resp, raw)
	}
	if err := json.Unmarshal(resp.Result, &profile); err != nil {
		return profile, fmt.Errorf("%w: failed to decode bot profile: %w", common.ErrExternalAPI, err)
	}
	return profile, nil
}

// SendMessage posts an HTML-formatted message to the configured chat and
// returns the raw Bot API reply.
func (b *Bot) SendMessage(ctx context.Context, text string) (json.RawMessage, error) {
	body := sendMessageRequest{
		ChatID:    b.chatID,
		Text:      text,
		ParseMode: "HTML",
	}

	resp, raw, err := b.call(ctx, http.MethodPost, "sendMessage", body)
	if err != nil {
		return nil, err
	}
	if !resp.OK {
		return raw, apiError(resp, raw)
	}
	return raw, nil
}

// Probe checks the bot identity. It satisfies the status monitor's probe.
func (b *Bot) Probe(ctx context.Context) error {
	_, err := b.GetMe(ctx)
	return err
}

func (b *Bot) call(ctx context.Context, method, name string, body any) (apiResponse, json.RawMessage, error) {
	var resp apiResponse

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return resp, nil, fmt.Errorf("failed to encode %s request: %w", name, err)
		}
		reader = bytes.NewReader(data)
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", b.apiURL, b.token, name)
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return resp, nil, fmt.Errorf("failed to create %s request: %w", name, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := b.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return resp, nil, ctxErr
		}
		// The URL carries the token; keep it out of the error.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return resp, nil, fmt.Errorf("%w: %s: %w", common.ErrNetwork, name, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return resp, nil, fmt.Errorf("%w: failed to read %s response: %w", common.ErrNetwork, name, err)
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return resp, raw, fmt.Errorf("%w: %s returned HTTP %d with a non-JSON body", common.ErrExternalAPI, name, httpResp.StatusCode)
	}
	return resp, raw, nil
}

// APIError is a Bot API reply with ok=false. Description is the provider's
// own text and is what operators see.
type APIError struct {
	Description string
	Code        int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%v: %s", common.ErrExternalAPI, e.Description)
}

func (e *APIError) Unwrap() error {
	return common.ErrExternalAPI
}

func apiError(resp apiResponse, raw json.RawMessage) error {
	desc := resp.Description
	if desc == "" {
		desc = "Telegram API error: " + string(raw)
	}
	return &APIError{Description: desc, Code: resp.ErrorCode}
}

// Describe returns the operator-facing text of a delivery failure: the
// provider description for Bot API rejections, the error text otherwise.
func Describe(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Description
	}
	return err.Error()
}
