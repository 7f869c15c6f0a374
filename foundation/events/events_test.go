package events_test

import (
	"testing"

	"github.com/Patrick841130/LKS-sub003/foundation/events"
	"github.com/stretchr/testify/require"
)

func Test_AcquireSendRelease(t *testing.T) {
	evts := events.NewBus()
	defer evts.Shutdown()

	ch := evts.Acquire("consumer-1")
	require.NotNil(t, ch)

	// Acquiring the same id again returns the same channel.
	require.True(t, ch == evts.Acquire("consumer-1"))

	evts.Send(events.New(events.KindBlockAdded, []byte(`{"number":1}`)))

	ev := <-ch
	require.Equal(t, events.KindBlockAdded, ev.Kind)
	require.Equal(t, []byte(`{"number":1}`), ev.Data)
	require.False(t, ev.TimeStamp.IsZero())

	require.NoError(t, evts.Release("consumer-1"))
	require.Error(t, evts.Release("consumer-1"))

	_, open := <-ch
	require.False(t, open)
}

func Test_SendNeverBlocks(t *testing.T) {
	evts := events.NewBus()
	defer evts.Shutdown()

	ch := evts.Acquire("slow-consumer")

	// Overfill the buffer. The extra sends must drop instead of blocking
	// the publisher.
	for i := 0; i < 150; i++ {
		evts.Send(events.New(events.KindMintCompleted, nil))
	}

	require.Equal(t, 100, len(ch))
}

func Test_ShutdownClosesConsumers(t *testing.T) {
	evts := events.NewBus()

	ch1 := evts.Acquire("a")
	ch2 := evts.Acquire("b")

	evts.Shutdown()

	_, open := <-ch1
	require.False(t, open)
	_, open = <-ch2
	require.False(t, open)
}
