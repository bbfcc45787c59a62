package logstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterMatch(t *testing.T) {
	ev := Event{Method: "GET", Path: "/api/projects", Status: 404, Level: "warn", ProjectID: "p1"}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty filter matches all", Filter{}, true},
		{"method match", Filter{Method: "GET"}, true},
		{"method mismatch", Filter{Method: "POST"}, false},
		{"level match", Filter{Level: "warn"}, true},
		{"status match", Filter{Status: 404}, true},
		{"status mismatch", Filter{Status: 200}, false},
		{"project match", Filter{ProjectID: "p1"}, true},
		{"project mismatch", Filter{ProjectID: "p2"}, false},
		{"combined", Filter{Method: "GET", Status: 404, ProjectID: "p1"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.match(ev))
		})
	}
}

func TestHubPublishSubscribe(t *testing.T) {
	h := NewHub()
	ch, dispose := h.Subscribe(Filter{Level: "error"})
	defer dispose()

	h.Publish(Event{Level: "info", Path: "/a"})
	h.Publish(Event{Level: "error", Path: "/b"})

	ev := <-ch
	assert.Equal(t, "/b", ev.Path)

	select {
	case extra := <-ch:
		t.Fatalf("unexpected event: %+v", extra)
	default:
	}
}

func TestHubDispose(t *testing.T) {
	h := NewHub()
	ch, dispose := h.Subscribe(Filter{})
	require.Equal(t, 1, h.Subscribers())

	dispose()
	assert.Equal(t, 0, h.Subscribers())

	// канал закрыт
	_, ok := <-ch
	assert.False(t, ok)

	// повторный dispose безопасен
	dispose()
}

func TestHubSlowSubscriberDropsEvents(t *testing.T) {
	h := NewHub()
	ch, dispose := h.Subscribe(Filter{})
	defer dispose()

	// переполняем буфер: Publish не должен блокироваться
	for i := 0; i < 200; i++ {
		h.Publish(Event{Status: i})
	}

	n := 0
	for {
		select {
		case <-ch:
			n++
			continue
		default:
		}
		break
	}
	assert.Equal(t, 64, n)
}
