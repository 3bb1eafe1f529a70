package events

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublishDelivers(t *testing.T) {
	bus := NewBus(testLogger())

	var got []string
	bus.Subscribe(MoodChanged, func(eventType string, payload map[string]any) {
		got = append(got, payload["reason"].(string))
	})

	bus.Publish(MoodChanged, map[string]any{"reason": "good news"})
	bus.Publish(MoodSet, map[string]any{"reason": "unrelated"})

	assert.Equal(t, []string{"good news"}, got, "only the subscribed type is delivered")
}

func TestPublishMultipleSubscribers(t *testing.T) {
	bus := NewBus(testLogger())

	calls := 0
	for i := 0; i < 3; i++ {
		bus.Subscribe(ImprintCreated, func(string, map[string]any) { calls++ })
	}
	bus.Publish(ImprintCreated, nil)
	assert.Equal(t, 3, calls)
}

func TestPanickingSubscriberIsolated(t *testing.T) {
	bus := NewBus(testLogger())

	delivered := false
	bus.Subscribe(MoodChanged, func(string, map[string]any) { panic("bad handler") })
	bus.Subscribe(MoodChanged, func(string, map[string]any) { delivered = true })

	assert.NotPanics(t, func() {
		bus.Publish(MoodChanged, nil)
	})
	assert.True(t, delivered, "later subscribers still run after a panic")
}

func TestNopDiscards(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop{}.Publish(TemperamentReset, map[string]any{"x": 1})
	})
}
