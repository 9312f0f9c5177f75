// Package relay owns the session-to-room registry and the per-connection
// message dispatch. Transformed frames leave the module as events on the
// application event bus; the broadcast module turns them into socket writes.
package relay

import (
	"context"
	"log/slog"

	"github.com/go-monolith/mono"
	"github.com/google/uuid"

	"github.com/example/quickchat/domain/chat"
	"github.com/example/quickchat/events"
)

// Module implements the relay module.
type Module struct {
	registry *Registry
	images   ImagePutter
	eventBus mono.EventBus
	logger   *slog.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module              = (*Module)(nil)
	_ mono.EventBusAwareModule = (*Module)(nil)
	_ mono.EventEmitterModule  = (*Module)(nil)
	_ Broadcaster              = (*Module)(nil)
)

// NewModule creates the relay module around a shared registry and image
// store.
func NewModule(registry *Registry, images ImagePutter) *Module {
	return &Module{
		registry: registry,
		images:   images,
		logger:   slog.Default(),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "relay"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.MessageRelayedV1.ToBase(),
		events.OccupancyChangedV1.ToBase(),
	}
}

// Start initializes the relay module.
func (m *Module) Start(ctx context.Context) error {
	m.logger.Info("relay module started")
	return nil
}

// Stop shuts down the relay module.
func (m *Module) Stop(ctx context.Context) error {
	m.logger.Info("relay module stopped")
	return nil
}

// Registry exposes the room registry to collaborators that only read
// membership (the hub, the health surface).
func (m *Module) Registry() *Registry {
	return m.registry
}

// NewSession creates the dispatch state machine for one new connection. The
// session id is generated here and identifies the connection everywhere.
func (m *Module) NewSession() *Session {
	return &Session{
		id:       uuid.New().String(),
		state:    StateConnected,
		registry: m.registry,
		images:   m.images,
		out:      m,
		logger:   m.logger,
	}
}

// Relay publishes a room-scoped frame. Publish failures are logged and
// dropped; broadcast is best effort.
func (m *Module) Relay(roomCode string, frame chat.Message) {
	event := events.MessageRelayedEvent{RoomCode: roomCode, Frame: frame}
	if err := events.MessageRelayedV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Error("failed to publish MessageRelayed event",
			"room", roomCode, "error", err)
	}
}

// OccupancyChanged publishes a room's new occupancy.
func (m *Module) OccupancyChanged(roomCode string, occupancy int) {
	event := events.OccupancyChangedEvent{
		RoomCode:  roomCode,
		Occupancy: occupancy,
		Timestamp: chat.NowMillis(),
	}
	if err := events.OccupancyChangedV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Error("failed to publish OccupancyChanged event",
			"room", roomCode, "error", err)
	}
}
