package feed_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datahaven/aclfs/pkg/feed"
	feedbadger "github.com/datahaven/aclfs/pkg/feed/badger"
	feedmemory "github.com/datahaven/aclfs/pkg/feed/memory"
)

func grantEvent(path string) feed.Event {
	return feed.Event{
		Type:      feed.EventGrant,
		Directory: "alice@example.com",
		Path:      path,
		Principal: "bob@example.com",
		Level:     "write",
		Time:      time.Now(),
	}
}

func TestHub_PublishAssignsMonotonicSeq(t *testing.T) {
	hub := feed.NewHub(feedmemory.New(0), nil)
	defer hub.Close()

	var last uint64
	for i := 0; i < 5; i++ {
		seq, err := hub.Publish(grantEvent("alice@example.com/a.txt"))
		require.NoError(t, err)
		assert.Greater(t, seq, last)
		last = seq
	}
	assert.EqualValues(t, 5, last)
}

func TestHub_SubscribeDelivers(t *testing.T) {
	hub := feed.NewHub(feedmemory.New(0), nil)
	defer hub.Close()

	id, ch := hub.Subscribe(4)
	defer hub.Unsubscribe(id)

	seq, err := hub.Publish(grantEvent("alice@example.com/a.txt"))
	require.NoError(t, err)

	select {
	case ev := <-ch:
		assert.Equal(t, seq, ev.Seq)
		assert.Equal(t, feed.EventGrant, ev.Type)
		assert.Equal(t, "bob@example.com", ev.Principal)
	case <-time.After(time.Second):
		t.Fatal("expected event delivery")
	}
}

func TestHub_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	hub := feed.NewHub(feedmemory.New(0), nil)
	defer hub.Close()

	// Buffer of one, never drained: further publishes must not block.
	id, _ := hub.Subscribe(1)
	defer hub.Unsubscribe(id)

	for i := 0; i < 10; i++ {
		_, err := hub.Publish(grantEvent("alice@example.com/a.txt"))
		require.NoError(t, err)
	}

	// Dropped events remain replayable from the journal.
	events, err := hub.ReplaySince(0)
	require.NoError(t, err)
	assert.Len(t, events, 10)
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := feed.NewHub(feedmemory.New(0), nil)
	defer hub.Close()

	id, ch := hub.Subscribe(1)
	hub.Unsubscribe(id)

	_, ok := <-ch
	assert.False(t, ok, "channel must be closed after unsubscribe")
}

func TestMemoryJournal_ReplaySince(t *testing.T) {
	j := feedmemory.New(0)

	for i := 0; i < 4; i++ {
		_, err := j.Append(grantEvent("alice@example.com/a.txt"))
		require.NoError(t, err)
	}

	events, err := j.ReplaySince(2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.EqualValues(t, 3, events[0].Seq)
	assert.EqualValues(t, 4, events[1].Seq)
}

func TestMemoryJournal_TrimKeepsSeqMonotonic(t *testing.T) {
	j := feedmemory.New(2)

	for i := 0; i < 5; i++ {
		_, err := j.Append(grantEvent("alice@example.com/a.txt"))
		require.NoError(t, err)
	}

	events, err := j.ReplaySince(0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.EqualValues(t, 4, events[0].Seq)
	assert.EqualValues(t, 5, events[1].Seq)
}

func TestBadgerJournal_AppendAndReplay(t *testing.T) {
	j, err := feedbadger.Open(feedbadger.Config{InMemory: true})
	require.NoError(t, err)
	defer j.Close()

	for i := 0; i < 3; i++ {
		seq, err := j.Append(grantEvent("alice@example.com/a.txt"))
		require.NoError(t, err)
		assert.EqualValues(t, i+1, seq)
	}

	events, err := j.ReplaySince(1)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.EqualValues(t, 2, events[0].Seq)
	assert.Equal(t, "bob@example.com", events[0].Principal)
}

func TestBadgerJournal_SeqResumesAfterReopen(t *testing.T) {
	dir := t.TempDir()

	j, err := feedbadger.Open(feedbadger.Config{Path: dir})
	require.NoError(t, err)
	_, err = j.Append(grantEvent("alice@example.com/a.txt"))
	require.NoError(t, err)
	_, err = j.Append(grantEvent("alice@example.com/b.txt"))
	require.NoError(t, err)
	require.NoError(t, j.Close())

	j, err = feedbadger.Open(feedbadger.Config{Path: dir})
	require.NoError(t, err)
	defer j.Close()

	seq, err := j.Append(grantEvent("alice@example.com/c.txt"))
	require.NoError(t, err)
	assert.EqualValues(t, 3, seq)
}
