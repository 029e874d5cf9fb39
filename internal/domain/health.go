package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual collaborator.
type ServiceHealth struct {
	Name   string `json:"name"`
	Status string `json:"status"` // up, disabled, open
	Detail string `json:"detail,omitempty"`
}

// BotMetrics is returned by GET /v1/metrics/bot.
type BotMetrics struct {
	MessagesTotal    int64            `json:"messagesTotal"`
	Routes           map[string]int64 `json:"routes"`
	RepliesSent      int64            `json:"repliesSent"`
	RepliesFailed    int64            `json:"repliesFailed"`
	AIErrors         int64            `json:"aiErrors"`
	PromptTokens     int64            `json:"promptTokens"`
	CompletionTokens int64            `json:"completionTokens"`
	ActiveSessions   int              `json:"activeSessions"`
}

// CatalogItemView is one row of GET /v1/catalog.
type CatalogItemView struct {
	Name         string  `json:"nombre"`
	BasePrice    float64 `json:"precio_base"`
	PriceWithTax int64   `json:"precio_con_iva"`
}
