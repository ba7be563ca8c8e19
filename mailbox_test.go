package termio

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailbox_PushRejectsWhenFull(t *testing.T) {
	m := NewMailbox(2)

	assert.True(t, m.Push(MessageSizeReport{}))
	assert.True(t, m.Push(MessageSizeReport{}))
	assert.False(t, m.Push(MessageSizeReport{}))
	assert.Equal(t, 2, m.Len())
}

func TestMailbox_ResizeNeverRejected(t *testing.T) {
	m := NewMailbox(1)
	require.True(t, m.Push(MessageSizeReport{}))

	// The queue is full, resizes still land.
	assert.True(t, m.Push(MessageResize{Rows: 24, Cols: 80}))
	assert.True(t, m.Push(MessageResize{Rows: 30, Cols: 100}))
	assert.Equal(t, 1, m.Len())
}

func TestMailbox_ResizeCoalescesToLatest(t *testing.T) {
	m := NewMailbox(4)

	m.Push(MessageResize{Rows: 24, Cols: 80})
	m.Push(MessageResize{Rows: 25, Cols: 81})
	m.Push(MessageResize{Rows: 50, Cols: 120, PxWidth: 960, PxHeight: 800})

	resize, ok := m.takeResize()
	require.True(t, ok)
	assert.Equal(t, MessageResize{Rows: 50, Cols: 120, PxWidth: 960, PxHeight: 800}, resize)

	// Consumed: nothing further pending.
	_, ok = m.takeResize()
	assert.False(t, ok)
}

func TestMailbox_SendBlocksUntilStop(t *testing.T) {
	m := NewMailbox(1)
	require.True(t, m.Push(MessageSizeReport{}))

	stop := make(chan struct{})
	done := make(chan bool)
	go func() {
		done <- m.Send(MessageSizeReport{}, stop)
	}()

	// The sender is parked on the full queue; stopping releases it.
	close(stop)
	assert.False(t, <-done)

	// With room available Send succeeds immediately. A nil stop
	// never aborts.
	<-m.ch
	assert.True(t, m.Send(MessageSizeReport{}, nil))
}

func TestWriteMessage_PicksVariantBySize(t *testing.T) {
	small := WriteMessage([]byte("ls -la\n"))
	msg, ok := small.(MessageWriteSmall)
	require.True(t, ok)
	assert.Equal(t, uint8(7), msg.Len)
	assert.Equal(t, []byte("ls -la\n"), msg.Data[:msg.Len])

	// The inline variant copies: mutating the source must not reach
	// the message.
	src := []byte("abc")
	inline := WriteMessage(src).(MessageWriteSmall)
	src[0] = 'z'
	assert.Equal(t, byte('a'), inline.Data[0])

	boundary := WriteMessage(bytes.Repeat([]byte{'x'}, MaxWriteSmall))
	_, ok = boundary.(MessageWriteSmall)
	assert.True(t, ok)

	big := WriteMessage(bytes.Repeat([]byte{'x'}, MaxWriteSmall+1))
	alloc, ok := big.(MessageWriteAlloc)
	require.True(t, ok)
	assert.Len(t, alloc.Data, MaxWriteSmall+1)
}
