package infra

import (
	"testing"
	"time"

	"github.com/reformante/cotizador-whatsapp-go/internal/chat/domain"
)

func TestMemorySessionStore_GetOrCreate(t *testing.T) {
	store := NewMemorySessionStore(time.Minute, nil, nil)
	defer store.Close()

	s1 := store.GetOrCreate("573001112233")
	if s1.State != domain.StateInicio {
		t.Errorf("new session should start in inicio, got %s", s1.State)
	}
	s1.LastMessage = "hola"

	s2 := store.GetOrCreate("573001112233")
	if s1 != s2 {
		t.Fatal("expected the same session for the same customer")
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 session, got %d", store.Len())
	}

	if _, ok := store.Get("otro"); ok {
		t.Error("unknown customer should miss")
	}
}

func TestMemorySessionStore_Expires(t *testing.T) {
	store := NewMemorySessionStore(30*time.Millisecond, nil, nil)
	defer store.Close()

	first := store.GetOrCreate("c1")
	first.State = domain.StatePedidoConfirmado
	time.Sleep(60 * time.Millisecond)

	fresh := store.GetOrCreate("c1")
	if fresh == first {
		t.Fatal("expired session should be replaced")
	}
	if fresh.State != domain.StateInicio {
		t.Errorf("expected fresh session in inicio, got %s", fresh.State)
	}
}

func TestMemorySessionStore_Delete(t *testing.T) {
	store := NewMemorySessionStore(time.Minute, nil, nil)
	defer store.Close()

	old := store.GetOrCreate("c1")
	old.State = domain.StateEsperandoComprobante

	if !store.Delete("c1") {
		t.Fatal("expected Delete to remove the session")
	}
	if store.Delete("c1") {
		t.Error("second Delete should report nothing removed")
	}
	if fresh := store.GetOrCreate("c1"); fresh == old || fresh.State != domain.StateInicio {
		t.Errorf("expected a fresh session after delete, got %+v", fresh.State)
	}
}
