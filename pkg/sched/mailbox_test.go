package sched

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestFabric wires a MessageFabric over a fresh Store and a running
// TimerWheel, so Receive's timeout path has a real wheel ticking under
// it, the same way Runtime.New/Start wires production fabrics.
func newTestFabric(t *testing.T) (*Store, *MessageFabric) {
	t.Helper()
	store := NewStore(0, 0b1111)
	wheel := NewTimerWheel(time.Millisecond, 512, 64)
	ctx, cancel := context.WithCancel(context.Background())
	wheel.Run(ctx)
	t.Cleanup(func() {
		cancel()
		wheel.Stop()
	})
	return store, NewMessageFabric(store, wheel)
}

func TestMessageFabricSendThenReceive(t *testing.T) {
	store, fabric := newTestFabric(t)

	receiver, err := store.Allocate(nil, PriorityNormal, 0, 0, 0)
	require.NoError(t, err)
	fabric.Register(receiver.PID)

	require.NoError(t, fabric.Send(42, receiver.PID, []byte("hi")))

	slot, err := fabric.Receive(context.Background(), receiver.PID, time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(42), slot.SenderPID)
	assert.Equal(t, "hi", string(slot.Payload))
}

// TestMessageFabricReceiveWakesOnSend: a goroutine blocked in
// Receive must
// return promptly once Send delivers, not only after its timeout.
func TestMessageFabricReceiveWakesOnSend(t *testing.T) {
	store, fabric := newTestFabric(t)

	receiver, err := store.Allocate(nil, PriorityNormal, 0, 0, 0)
	require.NoError(t, err)
	fabric.Register(receiver.PID)

	result := make(chan Mailslot, 1)
	go func() {
		slot, err := fabric.Receive(context.Background(), receiver.PID, 5*time.Second)
		require.NoError(t, err)
		result <- slot
	}()

	time.Sleep(20 * time.Millisecond) // let the goroutine reach Receive and block
	require.NoError(t, fabric.Send(7, receiver.PID, []byte("wake up")))

	select {
	case slot := <-result:
		assert.Equal(t, int64(7), slot.SenderPID)
	case <-time.After(time.Second):
		t.Fatal("Receive did not wake promptly after Send")
	}
}

func TestMessageFabricReceiveTimeout(t *testing.T) {
	store, fabric := newTestFabric(t)

	receiver, err := store.Allocate(nil, PriorityNormal, 0, 0, 0)
	require.NoError(t, err)
	fabric.Register(receiver.PID)

	_, err = fabric.Receive(context.Background(), receiver.PID, 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrReceiveTimeout)
}

func TestMessageFabricSendUnknownPIDFails(t *testing.T) {
	_, fabric := newTestFabric(t)

	err := fabric.Send(1, 999, []byte("x"))
	assert.ErrorIs(t, err, ErrNoSuchProcess)
}

// TestMessageFabricPerSenderFIFO: messages from the same sender
// arrive in send order.
func TestMessageFabricPerSenderFIFO(t *testing.T) {
	store, fabric := newTestFabric(t)

	receiver, err := store.Allocate(nil, PriorityNormal, 0, 0, 0)
	require.NoError(t, err)
	fabric.Register(receiver.PID)

	for i := 0; i < 5; i++ {
		require.NoError(t, fabric.Send(1, receiver.PID, []byte{byte(i)}))
	}

	for i := 0; i < 5; i++ {
		slot, err := fabric.Receive(context.Background(), receiver.PID, time.Second)
		require.NoError(t, err)
		assert.Equal(t, byte(i), slot.Payload[0])
	}
}
