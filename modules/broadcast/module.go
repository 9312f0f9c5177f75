// Package broadcast delivers relayed frames to the WebSocket connections of
// a room. It consumes the relay module's events and owns the hub.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/quickchat/domain/chat"
	"github.com/example/quickchat/events"
)

// Module is an EventConsumerModule that pushes chat events to clients.
type Module struct {
	hub *Hub
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the broadcast module. Membership comes from the relay
// registry so room scope has a single source of truth.
func NewModule(membership Membership) *Module {
	return &Module{
		hub: NewHub(membership),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "broadcast"
}

// GetHub returns the hub for the API module to register connections with.
func (m *Module) GetHub() *Hub {
	return m.hub
}

// Start initializes the module.
func (m *Module) Start(_ context.Context) error {
	log.Println("[broadcast] module started")
	return nil
}

// Stop releases all connected clients.
func (m *Module) Stop(_ context.Context) error {
	count := m.hub.ClientCount()
	m.hub.CloseAll()
	log.Printf("[broadcast] module stopped - %d clients were connected", count)
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
		},
	}
}

// RegisterEventConsumers registers event handlers.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageRelayedV1, m.handleMessageRelayed, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageRelayed consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.OccupancyChangedV1, m.handleOccupancyChanged, m,
	); err != nil {
		return fmt.Errorf("failed to register OccupancyChanged consumer: %w", err)
	}

	log.Println("[broadcast] registered event consumers: MessageRelayed, OccupancyChanged")
	return nil
}

func (m *Module) handleMessageRelayed(_ context.Context, event events.MessageRelayedEvent, _ *mono.Msg) error {
	data, err := json.Marshal(event.Frame)
	if err != nil {
		log.Printf("[broadcast] failed to marshal relayed frame: %v", err)
		return nil // nothing to retry
	}
	m.hub.BroadcastToRoom(event.RoomCode, data)
	return nil
}

func (m *Module) handleOccupancyChanged(_ context.Context, event events.OccupancyChangedEvent, _ *mono.Msg) error {
	frame := chat.Message{
		Type:      chat.TypeOnlineCount,
		ChatCode:  event.RoomCode,
		Content:   strconv.Itoa(event.Occupancy),
		Timestamp: event.Timestamp,
	}
	data, err := json.Marshal(frame)
	if err != nil {
		log.Printf("[broadcast] failed to marshal occupancy frame: %v", err)
		return nil
	}
	m.hub.BroadcastToRoom(event.RoomCode, data)
	return nil
}
