// Package delivery hands drawn gifts to players through the Bot API and sends
// plain broadcast messages over the same client.
package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/xtding233/giftdraw/internal/gacha"
)

const upgradeUnavailable = "STARGIFT_UPGRADE_UNAVAILABLE"

// Config holds client configuration.
type Config struct {
	BaseURL       string // default https://api.telegram.org
	Token         string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
}

// Client is a minimal Bot API client.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        logrus.FieldLogger
}

// Outcome reports how a gift reached the player.
type Outcome struct {
	Delivered    bool   `json:"delivered"`
	Upgraded     bool   `json:"upgraded,omitempty"`
	FallbackLink string `json:"fallback_link,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// New creates a client. A zero rate means no limit.
func New(cfg Config, log logrus.FieldLogger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.telegram.org"
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		baseURL:    base,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
		log:        log,
	}
}

// FallbackLink is the claim link offered when direct delivery fails.
func FallbackLink(giftID string) string {
	return "tg://gift?slug=" + giftID
}

// Deliver sends item to playerID. If the gift cannot be upgraded it retries
// once paying for the upgrade; any other failure yields the fallback link.
func (c *Client) Deliver(ctx context.Context, playerID string, item gacha.ItemSpec) Outcome {
	log := c.log.WithFields(logrus.Fields{"player_id": playerID, "item": item.Kind})
	if item.GiftID == "" {
		return Outcome{Reason: "item has no gift id"}
	}

	params := url.Values{}
	params.Set("user_id", playerID)
	params.Set("gift_id", item.GiftID)

	res, err := c.call(ctx, "sendGift", params)
	if err == nil && res.OK {
		return Outcome{Delivered: true}
	}
	if err == nil && strings.Contains(res.Description, upgradeUnavailable) {
		params.Set("pay_for_upgrade", "true")
		res, err = c.call(ctx, "sendGift", params)
		if err == nil && res.OK {
			return Outcome{Delivered: true, Upgraded: true}
		}
	}

	reason := res.Description
	if err != nil {
		reason = err.Error()
	}
	log.WithField("reason", reason).Warn("gift delivery failed, offering claim link")
	return Outcome{FallbackLink: FallbackLink(item.GiftID), Reason: reason}
}

// SendMessage posts a text message to chatID.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	params := url.Values{}
	params.Set("chat_id", chatID)
	params.Set("text", text)
	res, err := c.call(ctx, "sendMessage", params)
	if err != nil {
		return err
	}
	if !res.OK {
		return fmt.Errorf("sendMessage: %s", res.Description)
	}
	return nil
}

func (c *Client) call(ctx context.Context, method string, params url.Values) (apiResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return apiResponse{}, fmt.Errorf("rate limit: %w", err)
	}
	endpoint := fmt.Sprintf("%s/bot%s/%s?%s", c.baseURL, c.token, method, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return apiResponse{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apiResponse{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apiResponse{}, fmt.Errorf("read response: %w", err)
	}
	// error replies carry ok=false and a description alongside a 4xx status
	var out apiResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return apiResponse{}, fmt.Errorf("unmarshal response (%s): %w", resp.Status, err)
	}
	return out, nil
}
