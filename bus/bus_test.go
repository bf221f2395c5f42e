package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitReachesAllHandlers(t *testing.T) {
	b := New(nil)

	var got []string
	b.On("collections.changed", func(payload interface{}) {
		got = append(got, "first")
	})
	b.On("collections.changed", func(payload interface{}) {
		got = append(got, "second")
	})

	b.Emit("collections.changed", []string{"c1"})

	assert.Equal(t, []string{"first", "second"}, got)
}

func TestEmitPassesPayload(t *testing.T) {
	b := New(nil)

	var received []string
	b.On("libraries.changed", func(payload interface{}) {
		received = payload.([]string)
	})

	b.Emit("libraries.changed", []string{"l1", "l2"})
	assert.Equal(t, []string{"l1", "l2"}, received)
}

func TestEmitUnknownEventIsNoop(t *testing.T) {
	b := New(nil)
	assert.NotPanics(t, func() {
		b.Emit("never.registered", nil)
	})
}

func TestHandlerCount(t *testing.T) {
	b := New(nil)
	assert.Equal(t, 0, b.HandlerCount("x"))
	b.On("x", func(interface{}) {})
	assert.Equal(t, 1, b.HandlerCount("x"))
}
