package logstream

import (
	"sync"
	"time"
)

// Event — то, что уходит подписчикам live-стрима. Один в один строка
// api_logs, только без внутреннего id.
type Event struct {
	Ts         time.Time `json:"ts"`
	RequestID  string    `json:"requestId"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Status     int       `json:"status"`
	DurationMs int64     `json:"durationMs"`
	Level      string    `json:"level"`
	ProjectID  string    `json:"projectId,omitempty"`
	Message    string    `json:"message,omitempty"`
}

// Filter — что хочет видеть подписчик; пустое значение = не фильтруем.
type Filter struct {
	ProjectID string
	Method    string
	Level     string
	Status    int
}

func (f Filter) match(ev Event) bool {
	if f.ProjectID != "" && f.ProjectID != ev.ProjectID {
		return false
	}
	if f.Method != "" && f.Method != ev.Method {
		return false
	}
	if f.Level != "" && f.Level != ev.Level {
		return false
	}
	if f.Status != 0 && f.Status != ev.Status {
		return false
	}
	return true
}

type subscriber struct {
	ch     chan Event
	filter Filter
}

// Hub раздаёт события подписчикам. Publish никогда не блокируется:
// медленный подписчик теряет события, producer не ждёт никого.
type Hub struct {
	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*subscriber]struct{})}
}

// Subscribe возвращает канал событий и disposer. Отписка обязательна,
// иначе подписчик висит в хабе навсегда.
func (h *Hub) Subscribe(f Filter) (<-chan Event, func()) {
	sub := &subscriber{
		ch:     make(chan Event, 64),
		filter: f,
	}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	dispose := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, sub)
			h.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, dispose
}

func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		if !sub.filter.match(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			// буфер полон — событие пропускаем, backpressure на эмиттер не даём
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
