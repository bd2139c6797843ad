// Package events is the fire-and-forget, ordered-per-instance event bus
// between the core components and whatever frontend is listening over the
// command surface (see internal/server). Delivery is at-least-once:
// handlers are called synchronously in no particular order, so a slow
// handler delays Emit, while a panicking handler never crashes the emitter.
package events

import (
	"sync"

	"github.com/quasar/launchercore/internal/mcversion"
)

type Kind string

const (
	InstanceStateChanged  Kind = "instance-state-changed"
	InstanceLog           Kind = "instance-log"
	ModpackLoaderDetected Kind = "modpack-loader-detected"
	LoaderInstalled       Kind = "loader-installed"
	DownloadProgress      Kind = "download-progress"
)

// InstanceLogPayload is the payload for InstanceLog.
type InstanceLogPayload struct {
	InstanceID string `json:"instance_id"`
	Message    string `json:"message"`
}

// LoaderInstalledPayload is the payload for LoaderInstalled.
type LoaderInstalledPayload struct {
	InstanceID string `json:"instance_id"`
	ProjectID  string `json:"project_id"`
	VersionID  string `json:"version_id"`
}

// ModpackLoaderDetectedPayload is the payload for ModpackLoaderDetected,
// emitted once a modpack's index names the loader it requires, before that
// loader is actually installed.
type ModpackLoaderDetectedPayload struct {
	InstanceID    string               `json:"instance_id"`
	Loader        mcversion.LoaderType `json:"loader"`
	LoaderVersion string               `json:"loader_version"`
}

// DownloadProgressPayload is the payload for DownloadProgress.
type DownloadProgressPayload struct {
	Phase string `json:"phase"`
	Done  int64  `json:"done"`
	Total int64  `json:"total"`
}

// Handler receives an emitted event's kind and payload.
type Handler func(kind Kind, payload any)

// Bus is a thread-safe multi-listener event emitter. Events for a single
// instance are always emitted from the same goroutine that drives that
// instance's lifecycle, which is what gives ordered-per-instance delivery;
// the bus itself only needs to guarantee listeners see every Emit call.
type Bus struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[uint64]Handler
}

func New() *Bus {
	return &Bus{listeners: make(map[uint64]Handler)}
}

// Subscribe registers a handler that receives every event emitted after
// this call. The returned func removes the handler; a long-lived caller
// (e.g. one websocket connection per Subscribe) must call it on
// disconnect or the bus leaks a listener per connection.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

// Emit calls every registered handler synchronously. A handler that
// panics is recovered so one bad listener (e.g. a disconnected websocket
// writer) cannot take down the component that emitted the event.
func (b *Bus) Emit(kind Kind, payload any) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.listeners))
	for _, h := range b.listeners {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() { recover() }()
			h(kind, payload)
		}()
	}
}
