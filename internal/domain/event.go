package domain

type EventKind string

const (
	EventJoined        EventKind = "Joined"
	EventLeft          EventKind = "Left"
	EventGameStarted   EventKind = "GameStarted"
	EventResultUpdated EventKind = "ResultUpdated"
	EventClosed        EventKind = "Closed"
)

// RosterEvent is one committed change of a session. SnapshotVersion is the
// session version right after the change.
type RosterEvent struct {
	SessionCode     SessionCode `json:"sessionCode"`
	MemberID        MemberID    `json:"memberId,omitempty"`
	DisplayName     string      `json:"displayName,omitempty"`
	Kind            EventKind   `json:"kind"`
	SnapshotVersion uint64      `json:"snapshotVersion"`
	// Score and DonePlaying are set on ResultUpdated.
	Score       int  `json:"score,omitempty"`
	DonePlaying bool `json:"donePlaying,omitempty"`
	// HostMemberID is set when the change moved the host seat.
	HostMemberID MemberID `json:"hostMemberId,omitempty"`
}
