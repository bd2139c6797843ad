package events

import (
	"sync"
	"testing"
)

func TestBus_DeliversToAllListeners(t *testing.T) {
	bus := New()

	var mu sync.Mutex
	var got []Kind

	bus.Subscribe(func(kind Kind, payload any) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, kind)
	})
	bus.Subscribe(func(kind Kind, payload any) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, kind)
	})

	bus.Emit(InstanceLog, InstanceLogPayload{InstanceID: "abc", Message: "hello"})

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(got))
	}
}

func TestBus_PanickingListenerDoesNotStopOthers(t *testing.T) {
	bus := New()

	called := false
	bus.Subscribe(func(kind Kind, payload any) {
		panic("boom")
	})
	bus.Subscribe(func(kind Kind, payload any) {
		called = true
	})

	bus.Emit(DownloadProgress, DownloadProgressPayload{Phase: "assets", Done: 1, Total: 2})

	if !called {
		t.Error("expected second listener to still be called after the first panicked")
	}
}
