package handler_test

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	chatdomain "github.com/reformante/cotizador-whatsapp-go/internal/chat/domain"
	chatinfra "github.com/reformante/cotizador-whatsapp-go/internal/chat/infra"
	"github.com/reformante/cotizador-whatsapp-go/internal/chat/intent"
	"github.com/reformante/cotizador-whatsapp-go/internal/chat/port"
	chatsvc "github.com/reformante/cotizador-whatsapp-go/internal/chat/service"
	"github.com/reformante/cotizador-whatsapp-go/internal/domain"
	"github.com/reformante/cotizador-whatsapp-go/internal/handler"
	"github.com/reformante/cotizador-whatsapp-go/internal/infra/observability"
	"github.com/reformante/cotizador-whatsapp-go/internal/infra/whatsapp"
	"github.com/reformante/cotizador-whatsapp-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Mocks
// ============================================================

type mockGateway struct {
	err error
}

func (m *mockGateway) Complete(context.Context, []chatdomain.Turn) (*port.Completion, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &port.Completion{Text: "respuesta del asesor"}, nil
}

type sentMessage struct {
	To, Body string
}

type mockSender struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (m *mockSender) SendText(_ context.Context, to, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{To: to, Body: body})
	return nil
}

func (m *mockSender) to(customer string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.sent {
		if s.To == customer {
			out = append(out, s.Body)
		}
	}
	return out
}

type testEnv struct {
	router http.Handler
	sender *mockSender
	admin  *service.AdminAuth
}

func newEnv(t *testing.T, gw *mockGateway, cfg handler.Config, adminSecret string) *testEnv {
	t.Helper()

	catalog, err := service.NewCatalog([]domain.Product{
		{Name: "Cemento Argos", BasePrice: 30000},
		{Name: "Varilla corrugada", BasePrice: 21000},
	}, domain.DefaultTaxRate, nil)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	intents, err := intent.Default()
	if err != nil {
		t.Fatalf("intents: %v", err)
	}

	metrics := observability.NewMetrics()
	store := chatinfra.NewMemorySessionStore(time.Hour, metrics, zap.NewNop())
	t.Cleanup(store.Close)

	svc := chatsvc.NewChatService(catalog, intents, store, gw,
		chatsvc.DefaultReplies(domain.BankAccount{Bank: "Bancolombia", Number: "31000008050"}),
		chatsvc.DefaultConfig(), metrics, zap.NewNop())

	sender := &mockSender{}
	admin := service.NewAdminAuth(adminSecret)
	probes := []handler.HealthProbe{{Name: "openai", State: func() string { return "closed" }}}

	return &testEnv{
		router: handler.NewRouter(svc, catalog, sender, admin, probes, cfg, metrics, zap.NewNop()),
		sender: sender,
		admin:  admin,
	}
}

func (e *testEnv) do(method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func webhookBody(messages ...string) []byte {
	return []byte(`{"object":"whatsapp_business_account","entry":[{"changes":[{"field":"messages","value":{"messages":[` +
		strings.Join(messages, ",") + `]}}]}]}`)
}

func textMsg(from, body string) string {
	b, _ := json.Marshal(map[string]any{"from": from, "type": "text", "text": map[string]string{"body": body}})
	return string(b)
}

// ============================================================
// Operational endpoints
// ============================================================

func TestOperationalEndpoints(t *testing.T) {
	env := newEnv(t, &mockGateway{}, handler.Config{}, "")

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/v1/metrics/bot"} {
		if rec := env.do(http.MethodGet, path, nil, nil); rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestCatalog(t *testing.T) {
	env := newEnv(t, &mockGateway{}, handler.Config{}, "")

	rec := env.do(http.MethodGet, "/v1/catalog", nil, nil)
	var items []domain.CatalogItemView
	if err := json.NewDecoder(rec.Body).Decode(&items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 2 || items[0].PriceWithTax != 35700 {
		t.Errorf("unexpected catalog: %+v", items)
	}
}

// ============================================================
// Webhook
// ============================================================

func TestWebhookVerify(t *testing.T) {
	env := newEnv(t, &mockGateway{}, handler.Config{VerifyToken: "tok"}, "")

	rec := env.do(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=tok&hub.challenge=4242", nil, nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "4242" {
		t.Errorf("expected challenge echo, got %d %q", rec.Code, rec.Body.String())
	}

	rec = env.do(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=nope&hub.challenge=4242", nil, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestWebhookReceive(t *testing.T) {
	env := newEnv(t, &mockGateway{}, handler.Config{}, "")

	body := webhookBody(
		textMsg("573001", "varilla corrugada"),
		textMsg("573002", "hola"),
		textMsg("573001", "como pago?"),
		`{"from":"573002","type":"audio","audio":{"id":"m"}}`,
	)
	rec := env.do(http.MethodPost, "/webhook", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	first := env.sender.to("573001")
	if len(first) != 2 || !strings.Contains(first[0], "Cotización actual") || !strings.Contains(first[1], "31000008050") {
		t.Errorf("customer 1 replies out of order or missing: %q", first)
	}
	second := env.sender.to("573002")
	if len(second) != 2 || second[0] != "respuesta del asesor" {
		t.Errorf("unexpected replies for customer 2: %q", second)
	}
}

func TestWebhookMalformedIsAcknowledged(t *testing.T) {
	env := newEnv(t, &mockGateway{}, handler.Config{}, "")

	for _, body := range []string{`not json`, `{}`, `{"entry":[{"changes":[{"value":{"statuses":[{}]}}]}]}`} {
		rec := env.do(http.MethodPost, "/webhook", []byte(body), nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%q: expected 200, got %d", body, rec.Code)
		}
	}
	if len(env.sender.sent) != 0 {
		t.Error("nothing should be sent for ignored payloads")
	}
}

func TestWebhookAIFailureIs500(t *testing.T) {
	env := newEnv(t, &mockGateway{err: errors.New("boom")}, handler.Config{}, "")

	rec := env.do(http.MethodPost, "/webhook", webhookBody(textMsg("573001", "hola")), nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if len(env.sender.sent) != 0 {
		t.Error("no reply should be sent for a failed turn")
	}
}

func TestWebhookSignature(t *testing.T) {
	env := newEnv(t, &mockGateway{}, handler.Config{AppSecret: "app-secret"}, "")
	body := webhookBody(textMsg("573001", "hola"))

	if rec := env.do(http.MethodPost, "/webhook", body, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("unsigned body: expected 401, got %d", rec.Code)
	}

	sig := "sha256=" + hex.EncodeToString(whatsapp.Sign("app-secret", body))
	rec := env.do(http.MethodPost, "/webhook", body, map[string]string{whatsapp.SignatureHeader: sig})
	if rec.Code != http.StatusOK {
		t.Errorf("signed body: expected 200, got %d", rec.Code)
	}
}

// ============================================================
// Simulator
// ============================================================

func TestChatSimulator(t *testing.T) {
	env := newEnv(t, &mockGateway{}, handler.Config{}, "")

	rec := env.do(http.MethodPost, "/v1/chat/c1", []byte(`{"query":"varilla corrugada"}`), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp chatdomain.ChatResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Route != chatdomain.RouteQuotation || !strings.Contains(resp.Answer, "$24,990") || resp.ID == "" {
		t.Errorf("unexpected response: %+v", resp)
	}

	rec = env.do(http.MethodPost, "/v1/chat/c1", []byte(`{"attachment":"image"}`), nil)
	if rec.Code != http.StatusOK {
		t.Errorf("image attachment: expected 200, got %d", rec.Code)
	}

	for _, body := range []string{`{}`, `{"attachment":"video"}`, `nope`} {
		if rec := env.do(http.MethodPost, "/v1/chat/c1", []byte(body), nil); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, rec.Code)
		}
	}
	if len(env.sender.sent) != 0 {
		t.Error("the simulator must not send WhatsApp messages")
	}
}

// ============================================================
// Admin sessions
// ============================================================

func TestSessionsDisabledWithoutSecret(t *testing.T) {
	env := newEnv(t, &mockGateway{}, handler.Config{}, "")

	if rec := env.do(http.MethodGet, "/v1/sessions/c1", nil, nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestSessions(t *testing.T) {
	env := newEnv(t, &mockGateway{}, handler.Config{}, "admin-secret")
	env.do(http.MethodPost, "/v1/chat/c1", []byte(`{"query":"varilla corrugada"}`), nil)

	if rec := env.do(http.MethodGet, "/v1/sessions/c1", nil, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: expected 401, got %d", rec.Code)
	}

	token, err := env.admin.Issue("ops", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	auth := map[string]string{"Authorization": "Bearer " + token}

	rec := env.do(http.MethodGet, "/v1/sessions/c1", nil, auth)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var snap chatdomain.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Total != 24990 || snap.State != chatdomain.StateInicio {
		t.Errorf("unexpected snapshot: %+v", snap)
	}

	if rec := env.do(http.MethodGet, "/v1/sessions/unknown", nil, auth); rec.Code != http.StatusNotFound {
		t.Errorf("unknown customer: expected 404, got %d", rec.Code)
	}
}

func TestSessionReset(t *testing.T) {
	env := newEnv(t, &mockGateway{}, handler.Config{}, "admin-secret")
	env.do(http.MethodPost, "/v1/chat/c1", []byte(`{"query":"varilla corrugada"}`), nil)

	if rec := env.do(http.MethodDelete, "/v1/sessions/c1", nil, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: expected 401, got %d", rec.Code)
	}

	token, err := env.admin.Issue("ops", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	auth := map[string]string{"Authorization": "Bearer " + token}

	if rec := env.do(http.MethodDelete, "/v1/sessions/c1", nil, auth); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec := env.do(http.MethodGet, "/v1/sessions/c1", nil, auth); rec.Code != http.StatusNotFound {
		t.Errorf("reset session: expected 404, got %d", rec.Code)
	}
	if rec := env.do(http.MethodDelete, "/v1/sessions/c1", nil, auth); rec.Code != http.StatusNotFound {
		t.Errorf("second reset: expected 404, got %d", rec.Code)
	}
}
