package infra

import (
	"time"

	"github.com/reformante/cotizador-whatsapp-go/internal/chat/domain"
	"github.com/reformante/cotizador-whatsapp-go/internal/chat/port"
	"github.com/reformante/cotizador-whatsapp-go/internal/infra/cache"
	"github.com/reformante/cotizador-whatsapp-go/internal/infra/observability"

	"go.uber.org/zap"
)

// MemorySessionStore guarda las sesiones en memoria con un TTL de
// inactividad. Se pierden al reiniciar el proceso.
type MemorySessionStore struct {
	sessions *cache.InMemory[*domain.Session]
}

var _ port.SessionStore = (*MemorySessionStore)(nil)

// NewMemorySessionStore crea el store. metrics y logger pueden ser nil.
func NewMemorySessionStore(ttl time.Duration, metrics *observability.Metrics, logger *zap.Logger) *MemorySessionStore {
	onEvict := func(customerID string, _ *domain.Session) {
		if metrics != nil {
			metrics.IncrSessionEvicted()
		}
		if logger != nil {
			logger.Debug("session evicted", zap.String("customer_id", customerID))
		}
	}

	return &MemorySessionStore{
		sessions: cache.New[*domain.Session](ttl, cache.WithEvictHook(onEvict)),
	}
}

// GetOrCreate devuelve la sesión del cliente o una nueva en estado inicio.
func (s *MemorySessionStore) GetOrCreate(customerID string) *domain.Session {
	session, _ := s.sessions.GetOrCreate(customerID, func() *domain.Session {
		return domain.NewSession(customerID)
	})
	return session
}

// Get busca una sesión existente.
func (s *MemorySessionStore) Get(customerID string) (*domain.Session, bool) {
	return s.sessions.Get(customerID)
}

// Touch renueva el TTL de la sesión.
func (s *MemorySessionStore) Touch(session *domain.Session) {
	s.sessions.Touch(session.CustomerID)
}

// Delete descarta la sesión; el próximo mensaje empieza en inicio.
func (s *MemorySessionStore) Delete(customerID string) bool {
	return s.sessions.Delete(customerID)
}

// Len es el número de sesiones vivas.
func (s *MemorySessionStore) Len() int {
	return s.sessions.Len()
}

// Close detiene la limpieza en segundo plano.
func (s *MemorySessionStore) Close() {
	s.sessions.Close()
}
