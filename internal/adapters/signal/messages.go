package signal

import "github.com/dkeye/Lobby/internal/domain"

// Client to server.
const (
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypePlayers     = "players"
	TypeSnapshot    = "snapshot"
	TypePing        = "ping"
)

// Server to client; TypeSnapshot is used both ways.
const (
	TypeRosterEvent  = "roster_event"
	TypeJoined       = "joined"
	TypeLeft         = "left"
	TypeSubscribed   = "subscribed"
	TypeUnsubscribed = "unsubscribed"
	TypePong         = "pong"
	TypeError        = "error"
)

type envelope struct {
	Type string `json:"type"`
}

type sessionMsg struct {
	Type        string             `json:"type"`
	SessionCode domain.SessionCode `json:"sessionCode"`
}

// playersMsg announces a join (Joined true) or leave intent.
type playersMsg struct {
	Type        string             `json:"type"`
	Joined      bool               `json:"joined"`
	SessionCode domain.SessionCode `json:"sessionCode"`
	DeviceName  string             `json:"deviceName"`
}

type rosterEventMsg struct {
	Type  string             `json:"type"`
	Event domain.RosterEvent `json:"event"`
}

type snapshotMsg struct {
	Type    string             `json:"type"`
	Session domain.SessionView `json:"session"`
	Version uint64             `json:"version"`
}

type joinedMsg struct {
	Type        string             `json:"type"`
	SessionCode domain.SessionCode `json:"sessionCode"`
	Member      domain.Member      `json:"member"`
	Version     uint64             `json:"version"`
}

type leftMsg struct {
	Type        string             `json:"type"`
	SessionCode domain.SessionCode `json:"sessionCode"`
	Version     uint64             `json:"version"`
}

// Reasons carried by unsubscribedMsg. After "dropped" the client has missed
// events and should subscribe again to resync from a fresh snapshot.
const (
	ReasonRequested = "requested"
	ReasonDropped   = "dropped"
	ReasonClosed    = "closed"
)

type unsubscribedMsg struct {
	Type        string             `json:"type"`
	SessionCode domain.SessionCode `json:"sessionCode"`
	Reason      string             `json:"reason"`
}

type errorMsg struct {
	Type    string `json:"type"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
