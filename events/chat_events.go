package events

import (
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/quickchat/domain/chat"
)

// MessageRelayedEvent is emitted when a session has transformed an inbound
// frame and scoped it to its current room.
type MessageRelayedEvent struct {
	RoomCode string       `json:"room_code"`
	Frame    chat.Message `json:"frame"`
}

// OccupancyChangedEvent is emitted whenever a room's occupancy changes
// (join, switch, disconnect).
type OccupancyChangedEvent struct {
	RoomCode  string `json:"room_code"`
	Occupancy int    `json:"occupancy"`
	Timestamp int64  `json:"timestamp"`
}

// Event definitions for the relay domain.
var (
	MessageRelayedV1 = helper.EventDefinition[MessageRelayedEvent](
		"relay",
		"MessageRelayed",
		"v1",
	)

	OccupancyChangedV1 = helper.EventDefinition[OccupancyChangedEvent](
		"relay",
		"OccupancyChanged",
		"v1",
	)
)
