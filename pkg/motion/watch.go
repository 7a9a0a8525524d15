package motion

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/reachy-groove/internal/log"
)

const (
	watchHandshakeTimeout = 10 * time.Second
	watchPingInterval     = 15 * time.Second
	watchReadTimeout      = 45 * time.Second
	watchReconnectDelay   = 5 * time.Second
)

// Watch keeps a websocket open to the daemon to notice outages and
// recoveries faster than the breaker's reset timeout. On reconnect it
// fires the OnUp callback so the breaker can close immediately.
type Watch struct {
	url  string
	onUp func()

	mu          sync.RWMutex
	connected   bool
	lastContact time.Time

	started  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// NewWatch creates a watch for the daemon at baseURL. The websocket URL
// is derived from the HTTP base, e.g. http://host:8000 -> ws://host:8000/ws.
func NewWatch(baseURL string, onUp func()) *Watch {
	wsURL := strings.Replace(baseURL, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)
	return &Watch{
		url:    strings.TrimRight(wsURL, "/") + "/ws",
		onUp:   onUp,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start runs the watch loop until ctx is canceled or Stop is called.
// Only the first call launches the loop.
func (w *Watch) Start(ctx context.Context) {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.run(ctx)
}

// Stop shuts the watch down, waiting for the loop to exit if it ever
// started. Safe to call without Start and to call more than once.
func (w *Watch) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
	if w.started.Load() {
		<-w.done
	}
}

// Connected reports whether the daemon link is currently up.
func (w *Watch) Connected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

// LastContact returns when the daemon last answered.
func (w *Watch) LastContact() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastContact
}

func (w *Watch) run(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		default:
		}

		if err := w.session(ctx); err != nil {
			log.Debug("daemon watch disconnected", "error", err)
		}

		w.setConnected(false)

		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-time.After(watchReconnectDelay):
		}
	}
}

// session dials the daemon and pumps pings until the link drops.
func (w *Watch) session(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: watchHandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	log.Info("daemon watch connected", "url", w.url)
	w.setConnected(true)
	if w.onUp != nil {
		w.onUp()
	}

	conn.SetReadDeadline(time.Now().Add(watchReadTimeout))
	conn.SetPongHandler(func(string) error {
		w.touch()
		return conn.SetReadDeadline(time.Now().Add(watchReadTimeout))
	})

	// Reader runs aside so pings and shutdown stay responsive.
	readErr := make(chan error, 1)
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				readErr <- err
				return
			}
			w.touch()
			conn.SetReadDeadline(time.Now().Add(watchReadTimeout))
		}
	}()

	ticker := time.NewTicker(watchPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case err := <-readErr:
			return err
		case <-ticker.C:
			deadline := time.Now().Add(watchHandshakeTimeout)
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, deadline); err != nil {
				return err
			}
		}
	}
}

func (w *Watch) setConnected(up bool) {
	w.mu.Lock()
	w.connected = up
	if up {
		w.lastContact = time.Now()
	}
	w.mu.Unlock()
}

func (w *Watch) touch() {
	w.mu.Lock()
	w.lastContact = time.Now()
	w.mu.Unlock()
}
