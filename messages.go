package client

import (
	"emberhollow/client/internal/hooks"
	"emberhollow/client/internal/session"
)

// sessionMessage pushes the current session snapshot to subscribers.
type sessionMessage struct {
	Type       string           `json:"type"`
	Session    *session.Session `json:"session"`
	ServerTime int64            `json:"serverTime"`
}

// eventMessage pushes one game event to subscribers.
type eventMessage struct {
	Type       string          `json:"type"`
	Event      hooks.GameEvent `json:"event"`
	ServerTime int64           `json:"serverTime"`
}

// helloMessage greets a fresh subscriber with its id and the snapshot.
type helloMessage struct {
	Type         string           `json:"type"`
	SubscriberID string           `json:"subscriberId"`
	Session      *session.Session `json:"session"`
	ServerTime   int64            `json:"serverTime"`
}
