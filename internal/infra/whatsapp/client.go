// Package whatsapp talks to the WhatsApp Cloud API: outbound text messages,
// inbound webhook payloads and their signatures.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/reformante/cotizador-whatsapp-go/internal/chat/port"
	"github.com/reformante/cotizador-whatsapp-go/internal/domain"
	"github.com/reformante/cotizador-whatsapp-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("infra/whatsapp")

// DefaultAPIURL is the Graph API base, version included.
const DefaultAPIURL = "https://graph.facebook.com/v19.0"

type textMessage struct {
	MessagingProduct string   `json:"messaging_product"`
	RecipientType    string   `json:"recipient_type"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

// Client sends text replies through the Cloud API.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	phoneNumberID string
	accessToken   string
	cb            *gobreaker.CircuitBreaker
	cfg           resilience.Config
}

var _ port.ReplySender = (*Client)(nil)

// NewClient creates a Cloud API client. An empty baseURL uses DefaultAPIURL.
func NewClient(httpClient *http.Client, baseURL, phoneNumberID, accessToken string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient:    httpClient,
		baseURL:       strings.TrimRight(baseURL, "/"),
		phoneNumberID: phoneNumberID,
		accessToken:   accessToken,
		cb:            cb,
		cfg:           cfg,
	}
}

// SendText posts a text message to the customer. 5xx and network failures
// are retried; 4xx are not.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	ctx, span := tracer.Start(ctx, "Client.SendText")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", to))

	payload, err := json.Marshal(textMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             textBody{Body: body},
	})
	if err != nil {
		return fmt.Errorf("marshal whatsapp message: %w", err)
	}

	_, err = c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			return c.post(ctx, payload)
		})
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return &domain.ErrCircuitOpen{Service: "whatsapp"}
		}
		return &domain.ErrExternalService{Service: "whatsapp", Err: err}
	}
	return nil
}

// State reports the breaker state for health checks.
func (c *Client) State() string {
	return c.cb.State().String()
}

func (c *Client) post(ctx context.Context, payload []byte) error {
	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return resilience.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	statusErr := fmt.Errorf("whatsapp API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return resilience.Permanent(statusErr)
	}
	return statusErr
}

// LogSender only logs replies. Used when no Cloud API credentials are set.
type LogSender struct {
	logger *zap.Logger
}

var _ port.ReplySender = (*LogSender)(nil)

// NewLogSender creates a sender that never leaves the process.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// SendText logs the reply.
func (s *LogSender) SendText(_ context.Context, to, body string) error {
	s.logger.Info("whatsapp reply (not sent, sender disabled)",
		zap.String("to", to),
		zap.String("body", body),
	)
	return nil
}
