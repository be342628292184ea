package models

// EventInsert is the only live-feed event type: a message was stored.
const EventInsert = "INSERT"

// MessageEvent is pushed to live-feed subscribers.
type MessageEvent struct {
	Type    string  `json:"type"`
	Message Message `json:"message"`
}

// Recipients returns the users that should receive the event.
func (e MessageEvent) Recipients() []string {
	if e.Message.SenderID == e.Message.ReceiverID {
		return []string{e.Message.SenderID}
	}
	return []string{e.Message.SenderID, e.Message.ReceiverID}
}
