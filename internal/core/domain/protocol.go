package domain

// Topics address zero or more live connections at publish time. Every
// connection is implicitly subscribed to its private topic and to the
// shared presence topic.
const (
	TopicPresence   = "presence"
	topicUserPrefix = "user/"
)

// UserTopic returns the private topic for a user.
func UserTopic(userID string) string {
	return topicUserPrefix + userID
}

// IsUserTopic reports whether topic is a private per-user topic and, if
// so, returns the addressed user id.
func IsUserTopic(topic string) (string, bool) {
	if len(topic) > len(topicUserPrefix) && topic[:len(topicUserPrefix)] == topicUserPrefix {
		return topic[len(topicUserPrefix):], true
	}
	return "", false
}

type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "ONLINE"
	StatusOffline PresenceStatus = "OFFLINE"
)

// PresenceEvent is relayed on the presence topic. Ephemeral, never stored.
type PresenceEvent struct {
	UserID   string         `json:"userId"`
	Nickname string         `json:"nickname"`
	Status   PresenceStatus `json:"status"`
}

// Stream event names for the SSE channel.
const (
	StreamEventConnect = "connect"
	StreamEventAdd     = "add"
	StreamEventFinish  = "finish"
	StreamEventError   = "error"
)

// FanoutJob is the queued unit of push delivery: one persisted push plus
// the resolved recipient set.
type FanoutJob struct {
	Push       Push     `json:"push"`
	Recipients []string `json:"recipients"`
}
