package devserver

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
)

const (
	heartbeatInterval = 30 * time.Second
	writeTimeout      = 10 * time.Second
)

// ReloadEvent is pushed to browsers after every build.
type ReloadEvent struct {
	BuildID string `json:"build_id"`
	Error   bool   `json:"error,omitempty"`
}

// ReloadHub fans build events out to browser clients over SSE and
// websockets.
type ReloadHub struct {
	mu       sync.RWMutex
	nextID   int
	clients  map[int]*reloadClient
	closed   bool
	last     *ReloadEvent
	recorder metrics.Recorder
	logger   *slog.Logger
}

type reloadClient struct {
	id   int
	ch   chan ReloadEvent
	done chan struct{}
}

// NewReloadHub returns an empty hub. recorder may be nil.
func NewReloadHub(recorder metrics.Recorder, logger *slog.Logger) *ReloadHub {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReloadHub{clients: map[int]*reloadClient{}, recorder: recorder, logger: logger}
}

// register adds a client and returns it with the most recent event, which
// the client script uses as its baseline.
func (h *ReloadHub) register() (*reloadClient, *ReloadEvent, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, nil, false
	}
	c := &reloadClient{id: h.nextID, ch: make(chan ReloadEvent, 8), done: make(chan struct{})}
	h.nextID++
	h.clients[c.id] = c
	h.recorder.SetReloadClients(len(h.clients))
	return c, h.last, true
}

func (h *ReloadHub) remove(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(c.done)
		h.recorder.SetReloadClients(len(h.clients))
	}
}

// Clients returns the number of connected clients.
func (h *ReloadHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends ev to every client. Clients whose buffers are full are
// dropped; their script reconnects.
func (h *ReloadHub) Broadcast(ev ReloadEvent) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.last = &ev
	snapshot := make([]*reloadClient, 0, len(h.clients))
	for _, c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.Unlock()

	dropped := 0
	for _, c := range snapshot {
		select {
		case c.ch <- ev:
		default:
			dropped++
			h.remove(c.id)
		}
	}
	h.logger.Debug("Live reload broadcast", logfields.BuildID(ev.BuildID), logfields.Count(len(snapshot)), slog.Int("dropped", dropped))
}

// Shutdown disconnects every client and refuses new ones.
func (h *ReloadHub) Shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = map[int]*reloadClient{}
	h.mu.Unlock()
	for _, c := range clients {
		close(c.done)
	}
	h.recorder.SetReloadClients(0)
}

// ServeHTTP is the SSE endpoint.
func (h *ReloadHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}
	client, last, ok := h.register()
	if !ok {
		http.Error(w, "live reload shutting down", http.StatusServiceUnavailable)
		return
	}
	defer h.remove(client.id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	bw := bufio.NewWriter(w)
	send := func(chunk string) bool {
		if _, err := bw.WriteString(chunk); err != nil {
			return false
		}
		if err := bw.Flush(); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}
	event := func(name string, ev ReloadEvent) bool {
		data, _ := json.Marshal(ev)
		chunk := "data: " + string(data) + "\n\n"
		if name != "" {
			chunk = "event: " + name + "\n" + chunk
		}
		return send(chunk)
	}

	if !send(": connected\n\n") {
		return
	}
	if last != nil && !event("baseline", *last) {
		return
	}

	hb := time.NewTicker(heartbeatInterval)
	defer hb.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-client.done:
			return
		case <-hb.C:
			if !send(": ping\n\n") {
				return
			}
		case ev := <-client.ch:
			if !event("", ev) {
				h.logger.Debug("Live reload write failed")
				return
			}
		}
	}
}

// ServeWebSocket is the websocket endpoint. It carries the same events as
// the SSE endpoint, one JSON text message each.
func (h *ReloadHub) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Debug("Websocket upgrade failed", logfields.Error(err))
		return
	}
	defer func() { _ = conn.CloseNow() }()

	client, last, ok := h.register()
	if !ok {
		_ = conn.Close(websocket.StatusGoingAway, "shutting down")
		return
	}
	defer h.remove(client.id)

	// Browsers never send anything; CloseRead handles control frames and
	// cancels ctx when the peer goes away.
	ctx := conn.CloseRead(r.Context())

	write := func(ev ReloadEvent) bool {
		data, _ := json.Marshal(ev)
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		defer cancel()
		return conn.Write(wctx, websocket.MessageText, data) == nil
	}
	if last != nil && !write(*last) {
		return
	}

	hb := time.NewTicker(heartbeatInterval)
	defer hb.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-client.done:
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-hb.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		case ev := <-client.ch:
			if !write(ev) {
				return
			}
		}
	}
}

// reloadScript connects to the SSE endpoint. The replayed "baseline" event
// names the build the page came from; any other build reloads the page.
// Pages served before the first build have no baseline and reload on it.
const reloadScript = `(() => {
  if (window.__SITEBUILDER_LR__) return;
  window.__SITEBUILDER_LR__ = true;
  let current = null;
  function connect() {
    const es = new EventSource('/__livereload');
    es.addEventListener('baseline', (e) => {
      try {
        const ev = JSON.parse(e.data);
        if (current === null) { current = ev.build_id; return; }
        if (ev.build_id !== current) location.reload();
      } catch (_) {}
    });
    es.onmessage = (e) => {
      try {
        const ev = JSON.parse(e.data);
        if (ev.build_id !== current) { console.log('[sitebuilder] rebuilt, reloading'); location.reload(); }
      } catch (_) {}
    };
    es.onerror = () => { es.close(); setTimeout(connect, 2000); };
  }
  connect();
})();`
