package chat

import "time"

// Message kinds carried in the "type" field of a frame. Inbound image frames
// use the lowercase "image" type with a data-URI content.
const (
	TypeChat        = "CHAT"
	TypeJoin        = "JOIN"
	TypeLeave       = "LEAVE"
	TypeCreate      = "CREATE"
	TypeOnlineCount = "ONLINE_COUNT"
	TypeImage       = "image"
)

// Message is a chat frame, inbound or outbound. Timestamps are epoch millis.
type Message struct {
	Type      string `json:"type"`
	ChatCode  string `json:"chatCode"`
	Sender    string `json:"sender,omitempty"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Encrypted bool   `json:"encrypted,omitempty"`
	ImageFlag bool   `json:"imageFlag,omitempty"`
}

// IsJoin reports whether the frame requests a room join. CREATE and JOIN
// share the same transition; a CREATE for an occupied room is just a join.
func (m Message) IsJoin() bool {
	return m.Type == TypeJoin || m.Type == TypeCreate
}

// NowMillis returns the current time as epoch milliseconds.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
