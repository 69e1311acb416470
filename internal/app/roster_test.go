package app

import (
	"testing"

	"github.com/dkeye/Lobby/internal/domain"
	"github.com/stretchr/testify/require"
)

func snapshot() domain.Session {
	return domain.Session{
		Code:         "ABC234",
		HostMemberID: "alice",
		State:        domain.StateOpen,
		Members:      []domain.Member{{ID: "alice", DisplayName: "Alice"}},
		Version:      3,
	}
}

func joined(id string, v uint64) domain.RosterEvent {
	return domain.RosterEvent{SessionCode: "ABC234", Kind: domain.EventJoined, MemberID: domain.MemberID(id), DisplayName: id, SnapshotVersion: v}
}

func Test_RosterView_Discards_Events_Covered_By_Snapshot(t *testing.T) {
	// Arrange
	v := NewRosterView()
	v.Reset(snapshot())

	// Act
	applied, resync := v.Apply(joined("old", 3))

	// Assert
	require.False(t, applied)
	require.False(t, resync)
	require.Equal(t, []string{"Alice"}, v.Session().DisplayNames())
}

func Test_RosterView_Replays_Events_Held_Before_Snapshot(t *testing.T) {
	// Arrange
	v := NewRosterView()
	v.Apply(joined("bob", 4))
	v.Apply(joined("stale", 2))
	v.Apply(joined("carl", 5))

	// Act
	resync := v.Reset(snapshot())

	// Assert
	require.False(t, resync)
	got := v.Session()
	require.Equal(t, []string{"Alice", "bob", "carl"}, got.DisplayNames())
	require.Equal(t, uint64(5), got.Version)
}

func Test_RosterView_Gap_Requests_Resync(t *testing.T) {
	v := NewRosterView()
	v.Reset(snapshot())

	applied, resync := v.Apply(joined("bob", 5))
	held, _ := v.Apply(joined("carl", 6))

	require.False(t, applied)
	require.True(t, resync)
	require.False(t, held, "events wait for the next snapshot after a gap")
}

func Test_RosterView_Tracks_Host_Handover_And_State(t *testing.T) {
	v := NewRosterView()
	v.Reset(snapshot())

	v.Apply(joined("bob", 4))
	v.Apply(domain.RosterEvent{Kind: domain.EventLeft, MemberID: "alice", HostMemberID: "bob", SnapshotVersion: 5})
	v.Apply(domain.RosterEvent{Kind: domain.EventGameStarted, MemberID: "bob", SnapshotVersion: 6})
	v.Apply(domain.RosterEvent{Kind: domain.EventResultUpdated, MemberID: "bob", Score: 7, DonePlaying: true, SnapshotVersion: 7})

	got := v.Session()
	require.Equal(t, domain.MemberID("bob"), got.HostMemberID)
	require.Equal(t, domain.StateInProgress, got.State)
	require.Equal(t, []domain.Member{{ID: "bob", DisplayName: "bob", Score: 7, DonePlaying: true}}, got.Members)
}
