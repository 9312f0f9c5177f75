package relay

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/example/quickchat/domain/chat"
	"github.com/example/quickchat/encryption"
)

// State is the lifecycle of one connected client.
type State int

const (
	StateConnected State = iota // registered, no room
	StateInRoom                 // mapped to a room
	StateClosed                 // terminal, all resources released
)

// ImagePutter stores inbound image payloads and returns their opaque id.
type ImagePutter interface {
	Put(data []byte, ext string) (string, error)
}

// Broadcaster delivers frames to every session in a room. Delivery is best
// effort; implementations must not fail the caller.
type Broadcaster interface {
	Relay(roomCode string, frame chat.Message)
	OccupancyChanged(roomCode string, occupancy int)
}

// Session drives one client's message dispatch. It is owned by the
// connection's read loop: HandleFrame and Close are never called
// concurrently, so state needs no lock.
type Session struct {
	id       string
	state    State
	registry *Registry
	images   ImagePutter
	out      Broadcaster
	logger   *slog.Logger
}

// ID returns the process-unique session id.
func (s *Session) ID() string {
	return s.id
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// HandleFrame classifies one inbound frame and dispatches it. Malformed
// frames are dropped with a warning; the connection stays open.
func (s *Session) HandleFrame(raw []byte) {
	if s.state == StateClosed {
		return
	}

	var msg chat.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.logger.Warn("dropping malformed frame", "session", s.id, "error", err)
		return
	}

	switch {
	case msg.IsJoin():
		s.handleJoin(msg)
	case msg.Type == chat.TypeImage && strings.HasPrefix(msg.Content, "data:image"):
		s.handleImage(msg)
	default:
		s.handleChat(msg)
	}
}

// handleJoin moves the session into the requested room and announces the new
// occupancy. A switch also announces the vacated room's count.
func (s *Session) handleJoin(msg chat.Message) {
	if msg.ChatCode == "" {
		s.logger.Warn("dropping join without room code", "session", s.id)
		return
	}

	occupancy, left := s.registry.Join(s.id, msg.ChatCode)
	s.state = StateInRoom
	if left != nil {
		s.logger.Info("session switched room",
			"session", s.id, "from", left.Room, "to", msg.ChatCode)
		s.out.OccupancyChanged(left.Room, left.Occupancy)
	}

	echo := msg
	echo.Timestamp = chat.NowMillis()
	s.out.Relay(msg.ChatCode, echo)
	s.out.OccupancyChanged(msg.ChatCode, occupancy)
}

// handleImage decodes the data-URI payload, caches it, and relays a frame
// whose content is the cache locator instead of the raw payload.
func (s *Session) handleImage(msg chat.Message) {
	room, ok := s.registry.Room(s.id)
	if !ok {
		s.logger.Warn("dropping image frame from roomless session", "session", s.id)
		return
	}

	_, payload, found := strings.Cut(msg.Content, ",")
	if !found {
		s.logger.Warn("dropping image frame without payload", "session", s.id)
		return
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		s.logger.Warn("dropping image frame with bad payload",
			"session", s.id, "error", err)
		return
	}

	id, err := s.images.Put(data, imageExt(msg.Content))
	if err != nil {
		s.logger.Error("failed to cache image", "session", s.id, "error", err)
		return
	}

	msg.Content = "/api/images/" + id
	msg.ImageFlag = true
	msg.ChatCode = room
	msg.Timestamp = chat.NowMillis()
	s.out.Relay(room, msg)
}

// handleChat encrypts the content and relays it to the sender's current
// room. The room named in the frame is ignored; the registry decides scope.
func (s *Session) handleChat(msg chat.Message) {
	room, ok := s.registry.Room(s.id)
	if !ok {
		s.logger.Warn("dropping frame from roomless session",
			"session", s.id, "type", msg.Type)
		return
	}

	msg.Content = encryption.Encrypt(msg.Content)
	msg.Encrypted = true
	msg.ChatCode = room
	msg.Timestamp = chat.NowMillis()
	s.out.Relay(room, msg)
}

// Close releases the session. If it was in a room, the room is vacated and
// its remaining occupancy announced. Safe to call more than once; error and
// normal teardown funnel through here.
func (s *Session) Close() {
	if s.state == StateClosed {
		return
	}
	s.state = StateClosed

	if left, ok := s.registry.Leave(s.id); ok {
		s.logger.Info("session left room",
			"session", s.id, "room", left.Room, "occupancy", left.Occupancy)
		s.out.OccupancyChanged(left.Room, left.Occupancy)
	}
}

// imageExt maps the data-URI format segment ("data:image/png;base64,...") to
// a file extension, defaulting to .png.
func imageExt(content string) string {
	rest, found := strings.CutPrefix(content, "data:image/")
	if !found {
		return ".png"
	}
	format, _, found := strings.Cut(rest, ";")
	if !found || format == "" {
		return ".png"
	}
	for _, r := range format {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ".png"
		}
	}
	return "." + format
}
