package server

import (
	"bytes"
	"sync"
	"sync/atomic"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/airpoint/internal/session"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// subscriberBuffer is how many messages a slow client may fall behind
// before new ones are dropped for it.
const subscriberBuffer = 4

// Hub fans session output out to HTTP clients. Reports go to WebSocket
// subscribers as JSON and frames go to MJPEG subscribers as JPEG. Publish
// never blocks the session loop, and frames are only encoded while someone
// is watching.
type Hub struct {
	logger *zap.Logger

	mu      sync.RWMutex
	reports map[chan []byte]struct{}
	frames  map[chan []byte]struct{}
	closed  bool

	dropped atomic.Int64
}

var _ session.Observer = (*Hub)(nil)

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:  logger,
		reports: make(map[chan []byte]struct{}),
		frames:  make(map[chan []byte]struct{}),
	}
}

// Publish implements session.Observer.
func (h *Hub) Publish(rep session.Report, frame *gocv.Mat) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}

	if len(h.reports) > 0 {
		data, err := json.Marshal(rep)
		if err != nil {
			h.logger.Warn("Failed to encode report", zap.Error(err))
		} else {
			h.fanOut(h.reports, data)
		}
	}

	if len(h.frames) > 0 && frame != nil && !frame.Empty() {
		buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
		if err != nil {
			h.logger.Warn("Failed to encode frame", zap.Error(err))
			return
		}
		data := bytes.Clone(buf.GetBytes())
		buf.Close()
		h.fanOut(h.frames, data)
	}
}

func (h *Hub) fanOut(subs map[chan []byte]struct{}, data []byte) {
	for ch := range subs {
		select {
		case ch <- data:
		default:
			h.dropped.Add(1)
		}
	}
}

// SubscribeReports registers a report subscriber. The channel is closed by
// the returned cancel func or by Close.
func (h *Hub) SubscribeReports() (<-chan []byte, func()) {
	return h.subscribe(h.reports)
}

// SubscribeFrames registers a JPEG frame subscriber.
func (h *Hub) SubscribeFrames() (<-chan []byte, func()) {
	return h.subscribe(h.frames)
}

func (h *Hub) subscribe(subs map[chan []byte]struct{}) (<-chan []byte, func()) {
	ch := make(chan []byte, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	subs[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}
		})
	}
}

// Clients returns the number of report and frame subscribers.
func (h *Hub) Clients() (reports, frames int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.reports), len(h.frames)
}

// Dropped counts messages skipped because a subscriber was full.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Close ends every subscription. Later subscriptions get a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, subs := range []map[chan []byte]struct{}{h.reports, h.frames} {
		for ch := range subs {
			delete(subs, ch)
			close(ch)
		}
	}
}
