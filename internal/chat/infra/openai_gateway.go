package infra

import (
	"context"
	"errors"
	"net/http"

	"github.com/reformante/cotizador-whatsapp-go/internal/chat/domain"
	"github.com/reformante/cotizador-whatsapp-go/internal/chat/port"
	maindomain "github.com/reformante/cotizador-whatsapp-go/internal/domain"
	"github.com/reformante/cotizador-whatsapp-go/internal/infra/resilience"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// tracer es el tracer OpenTelemetry para chat/infra.
var tracer = otel.Tracer("chat/infra")

// DefaultSystemPrompt es la instrucción de sistema del asesor.
const DefaultSystemPrompt = "Eres el asesor comercial de Reformante, una ferretería en Colombia. " +
	"Responde en español, de forma breve y amable. Ayuda con dudas sobre materiales de construcción, " +
	"cotizaciones, pagos y entregas. Si no sabes un precio, invita al cliente a escribir el nombre exacto del producto."

// ============================================================
// OpenAIGateway: CompletionGateway sobre la API de chat de OpenAI
// ============================================================
//
// Cualquier endpoint compatible sirve (BaseURL configurable).
// Protección:
//   - bulkhead: máximo N llamadas simultáneas al modelo
//   - circuit breaker: tras fallas seguidas, se corta sin esperar
//
// Mapeo de errores:
//
//	deadline del contexto      → ErrTimeout
//	breaker abierto            → ErrCircuitOpen
//	cualquier otra falla       → ErrExternalService
type OpenAIGateway struct {
	client       *openai.Client
	model        string
	temperature  float32
	systemPrompt string
	cb           *gobreaker.CircuitBreaker
	bulkhead     *resilience.Bulkhead
}

// GatewayConfig agrupa los parámetros del modelo.
type GatewayConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	Temperature  float32
	SystemPrompt string
}

var _ port.CompletionGateway = (*OpenAIGateway)(nil)

// NewOpenAIGateway crea el gateway. httpClient puede ser nil.
func NewOpenAIGateway(cfg GatewayConfig, httpClient *http.Client, cb *gobreaker.CircuitBreaker, bulkhead *resilience.Bulkhead) *OpenAIGateway {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if httpClient != nil {
		clientCfg.HTTPClient = httpClient
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}

	return &OpenAIGateway{
		client:       openai.NewClientWithConfig(clientCfg),
		model:        model,
		temperature:  cfg.Temperature,
		systemPrompt: prompt,
		cb:           cb,
		bulkhead:     bulkhead,
	}
}

// Complete manda el prompt de sistema más la ventana de historial y
// devuelve el texto de la primera opción.
func (g *OpenAIGateway) Complete(ctx context.Context, history []domain.Turn) (*port.Completion, error) {
	ctx, span := tracer.Start(ctx, "OpenAIGateway.Complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", g.model),
		attribute.Int("llm.history_turns", len(history)),
	)

	if err := g.bulkhead.Acquire(ctx); err != nil {
		return nil, g.mapError(ctx, err)
	}
	defer g.bulkhead.Release()

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: g.systemPrompt,
	})
	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == domain.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}

	result, err := g.cb.Execute(func() (any, error) {
		resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       g.model,
			Messages:    messages,
			Temperature: g.temperature,
		})
		if err != nil {
			return nil, err
		}
		return &resp, nil
	})
	if err != nil {
		return nil, g.mapError(ctx, err)
	}

	resp := result.(*openai.ChatCompletionResponse)
	if len(resp.Choices) == 0 {
		return nil, &maindomain.ErrExternalService{Service: "openai", Err: errors.New("empty choices")}
	}

	span.SetAttributes(
		attribute.Int("llm.prompt_tokens", resp.Usage.PromptTokens),
		attribute.Int("llm.completion_tokens", resp.Usage.CompletionTokens),
	)

	return &port.Completion{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// State expone el estado del breaker para /healthz.
func (g *OpenAIGateway) State() string {
	return g.cb.State().String()
}

func (g *OpenAIGateway) mapError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return &maindomain.ErrCircuitOpen{Service: "openai"}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &maindomain.ErrTimeout{Operation: "openai.chat_completion"}
	default:
		return &maindomain.ErrExternalService{Service: "openai", Err: err}
	}
}
