package domain

// Snapshot is the durable artifact produced by one eviction cycle.
// Field names are the wire contract: conforming implementations must
// reproduce them.
type Snapshot struct {
	SaveTime           string            `json:"save_time"`
	ServerStartTime    string            `json:"server_start_time"`
	TotalMessages      int               `json:"total_messages"`
	MessageCount       uint64            `json:"message_count"`
	CurrentOnlineUsers int               `json:"current_online_users"`
	OnlineUsers        []OnlineUser      `json:"online_users"`
	Messages           []ArchivedMessage `json:"messages"`
	SessionInfo        []SessionInfo     `json:"session_info"`
}

type OnlineUser struct {
	Username   string `json:"username"`
	Descriptor string `json:"descriptor"`
}

type ArchivedMessage struct {
	Type     Kind   `json:"type"`
	Time     string `json:"time"`
	Username string `json:"username,omitempty"`
	Message  string `json:"message"`
	Sequence uint64 `json:"sequence"`
}

type SessionInfo struct {
	SessionID  string `json:"session_id"`
	Username   string `json:"username"`
	LastActive string `json:"last_active"`
}
