package runtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_TypingTracker_Start_Notifies_Only_On_Edge(t *testing.T) {
	req := require.New(t)
	tracker := NewTypingTracker(10 * time.Second)

	// First start is the idle->typing edge
	req.True(tracker.Start("alice", "room-1"))

	// Repeats refresh the timestamp silently
	req.False(tracker.Start("alice", "room-1"))
	req.False(tracker.Start("alice", "room-1"))

	// A different conversation is its own edge
	req.True(tracker.Start("alice", "room-2"))
}

func Test_TypingTracker_Stop_Fires_Exactly_Once(t *testing.T) {
	req := require.New(t)
	tracker := NewTypingTracker(10 * time.Second)
	tracker.Start("alice", "room-1")

	req.True(tracker.Stop("alice", "room-1"))
	req.False(tracker.Stop("alice", "room-1"))
}

func Test_TypingTracker_Expire_Removes_Stale_Entries_Once(t *testing.T) {
	req := require.New(t)
	tracker := NewTypingTracker(10 * time.Second)
	tracker.Start("alice", "room-1")
	tracker.Start("bob", "room-1")

	// Both entries are fresh, so an immediate sweep removes nothing
	now := time.Now().UTC()
	req.Empty(tracker.Expire(now))

	// Past the timeout both entries go stale and expire together
	expired := tracker.Expire(now.Add(11 * time.Second))
	req.Len(expired, 2)

	// A second sweep finds nothing: expiry fires exactly once per entry
	req.Empty(tracker.Expire(now.Add(20 * time.Second)))
}

func Test_TypingTracker_Explicit_Stop_Beats_The_Sweep(t *testing.T) {
	req := require.New(t)
	tracker := NewTypingTracker(10 * time.Second)
	tracker.Start("alice", "room-1")

	// When the user sends a message and typing stops explicitly
	req.True(tracker.Stop("alice", "room-1"))

	// Then the sweep has nothing left to expire
	req.Empty(tracker.Expire(time.Now().UTC().Add(time.Minute)))
}

func Test_TypingTracker_StopAll_On_Disconnect(t *testing.T) {
	req := require.New(t)
	tracker := NewTypingTracker(10 * time.Second)
	tracker.Start("alice", "room-1")
	tracker.Start("alice", "room-2")
	tracker.Start("bob", "room-1")

	removed := tracker.StopAll("alice")
	req.Len(removed, 2)

	// Bob is untouched
	req.False(tracker.Start("bob", "room-1"))
}
