// Dicedraw draw sessions
//
// Each draw session lives at /path/:id and is driven over /path/:id/ws.
//
// Features:
// - One in-memory draw.Session per id, created on first connection
// - A single live connection per session; a newer one (for example a phone
//   that scanned the session QR code) takes over and the old one is told so
// - Each room runs one event loop: client requests, timers and connection
//   changes are handled strictly one at a time
// - The shake animation is paced by the server: dice faces flicker on a
//   ticker, and the draw itself happens once, when the shake ends
// - Winners are revealed after a short pause; single winners can be redrawn
// - Sessions auto-reaped after configurable idle timeout
// - Random 8-char ids via crypto/rand, with server-side collision check

package main

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	mathrand "math/rand/v2"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/dicedraw/draw"
)

const (
	diceFaces      = 6
	maxMessageSize = 1 << 20
	writeWait      = 10 * time.Second
)

var validRoomID = regexp.MustCompile(`^[A-Za-z0-9]{1,32}$`)

// Messages coming from clients
type ClientMessage struct {
	Type  string `json:"type"`            // "shuffle", "reshuffle", "redraw", "reset"
	Names string `json:"names,omitempty"` // shuffle
	Count string `json:"count,omitempty"` // shuffle / reshuffle
	Slot  *int   `json:"slot,omitempty"`  // redraw
}

// SessionInfoMessage is sent on connect so the page can restore itself.
type SessionInfoMessage struct {
	Type      string     `json:"type"` // "session_info"
	State     draw.State `json:"state"`
	Names     string     `json:"names"`
	Remaining int        `json:"remaining"`
	Winners   []string   `json:"winners"`
	Layout    Layout     `json:"layout"`
}

type ShakeMessage struct {
	Type       string `json:"type"` // "shake_start"
	Count      int    `json:"count"`
	DurationMS int64  `json:"duration_ms"`
}

type FacesMessage struct {
	Type  string   `json:"type"` // "faces"
	Faces []string `json:"faces"`
}

// PoolMessage carries the remaining pool after every mutation, as the text
// the name list input should show.
type PoolMessage struct {
	Type      string `json:"type"` // "pool"
	Names     string `json:"names"`
	Remaining int    `json:"remaining"`
}

type ResultsMessage struct {
	Type    string   `json:"type"` // "results"
	Winners []string `json:"winners"`
	Layout  Layout   `json:"layout"`
}

type SlotMessage struct {
	Type   string `json:"type"` // "replacing", "redrawn"
	Slot   int    `json:"slot"`
	Winner string `json:"winner,omitempty"`
}

// AlertMessage reports a rejected request to the user.
type AlertMessage struct {
	Type    string `json:"type"` // "alert"
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SimpleMessage is for bare notifications ("reset", "superseded").
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// alertFor maps a rejected request to the alert shown to the user. Errors
// without an alert (busy, out of order events) are dropped silently.
func alertFor(err error, reshuffle bool) (code, message string, ok bool) {
	var insufficient *draw.InsufficientError

	switch {
	case errors.Is(err, draw.ErrEmptyPool):
		return "empty_pool", "Selection pool is empty!", true
	case errors.Is(err, draw.ErrInvalidCount):
		return "invalid_count", "Please specify a valid winner count.", true
	case errors.As(err, &insufficient):
		if reshuffle {
			return "insufficient_pool", fmt.Sprintf("Not enough names left in the pool to pick %d more winners!", insufficient.Requested), true
		}
		return "insufficient_pool", fmt.Sprintf("Insufficient pool: Only %d entries available.", insufficient.Available), true
	case errors.Is(err, draw.ErrPoolExhausted):
		return "pool_exhausted", "No more names left in the pool!", true
	}

	return "", "", false
}

type Client struct {
	id   string
	conn *websocket.Conn
	send chan any
}

type clientRequest struct {
	client *Client
	msg    ClientMessage
}

type Room struct {
	id      string
	cfg     *Config
	session *draw.Session
	metrics *drawMetrics

	// client is only touched by the run loop.
	client *Client

	register chan *Client
	unreg    chan *Client
	requests chan clientRequest
	deferred chan func()
	done     chan struct{}

	closeOnce sync.Once

	mu         sync.RWMutex
	createdAt  time.Time
	lastActive time.Time
	attached   bool
}

func newRoom(cfg *Config, id string, src draw.Source, metrics *drawMetrics) *Room {
	now := time.Now()
	return &Room{
		id:         id,
		cfg:        cfg,
		session:    draw.NewSession(src),
		metrics:    metrics,
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		requests:   make(chan clientRequest),
		deferred:   make(chan func()),
		done:       make(chan struct{}),
		createdAt:  now,
		lastActive: now,
	}
}

func (h *Room) run() {
	defer func() {
		if h.client != nil {
			close(h.client.send)
			h.client = nil
		}
	}()

	for {
		select {
		case c := <-h.register:
			h.touch()
			h.attach(c)

		case c := <-h.unreg:
			h.touch()

			if h.client == c {
				close(c.send)
				h.setClient(nil)
				logf(h.cfg, "DRAWS: Client %s left %s", c.id, h.id)
			}

		case req := <-h.requests:
			h.touch()

			// Requests from a superseded connection are ignored.
			if req.client != h.client {
				continue
			}
			h.handle(req.msg)

		case fn := <-h.deferred:
			fn()

		case <-h.done:
			return
		}
	}
}

func (h *Room) touch() {
	h.mu.Lock()
	h.lastActive = time.Now()
	h.mu.Unlock()
}

// setClient is only called from the run loop.
func (h *Room) setClient(c *Client) {
	h.client = c

	h.mu.Lock()
	h.attached = c != nil
	h.lastActive = time.Now()
	h.mu.Unlock()
}

// idle reports whether the room has had no connection since before cutoff.
func (h *Room) idle(cutoff time.Time) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return !h.attached && h.lastActive.Before(cutoff)
}

func (h *Room) close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
}

// join hands c to the run loop. It fails once the room has been reaped.
func (h *Room) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// post queues fn to run on the event loop.
func (h *Room) post(fn func()) bool {
	select {
	case h.deferred <- fn:
		return true
	case <-h.done:
		return false
	}
}

// later queues fn on the event loop once d has passed.
func (h *Room) later(d time.Duration, fn func()) {
	time.AfterFunc(d, func() {
		h.post(fn)
	})
}

func (h *Room) attach(c *Client) {
	if old := h.client; old != nil {
		h.send(SimpleMessage{
			Type:    "superseded",
			Message: "This draw was opened somewhere else.",
		})
		if h.client == old {
			close(old.send)
		}
		logf(h.cfg, "DRAWS: Client %s superseded by %s in %s", old.id, c.id, h.id)
	}

	h.setClient(c)
	logf(h.cfg, "DRAWS: Client %s joined %s", c.id, h.id)

	winners := h.session.Winners()
	h.send(SessionInfoMessage{
		Type:      "session_info",
		State:     h.session.State(),
		Names:     h.session.PoolText(),
		Remaining: h.session.Remaining(),
		Winners:   winners,
		Layout:    layoutFor(len(winners)),
	})
}

// send drops the client if it cannot keep up.
func (h *Room) send(msg any) {
	c := h.client
	if c == nil {
		return
	}

	select {
	case c.send <- msg:
	default:
		close(c.send)
		h.setClient(nil)
	}
}

func (h *Room) sendPool() {
	h.send(PoolMessage{
		Type:      "pool",
		Names:     h.session.PoolText(),
		Remaining: h.session.Remaining(),
	})
}

func (h *Room) reject(err error, reshuffle bool) {
	code, message, ok := alertFor(err, reshuffle)
	if !ok {
		logf(h.cfg, "DRAWS: Ignored request in %s: %v", h.id, err)
		return
	}

	h.metrics.rejections.WithLabelValues(code).Inc()
	h.send(AlertMessage{
		Type:    "alert",
		Code:    code,
		Message: message,
	})
}

func (h *Room) handle(msg ClientMessage) {
	switch msg.Type {
	case "shuffle":
		count, err := h.session.Shuffle(msg.Names, msg.Count)
		if err != nil {
			h.reject(err, false)
			return
		}
		h.startShake(count)

	case "reshuffle":
		count, err := h.session.Reshuffle(msg.Count)
		if err != nil {
			h.reject(err, true)
			return
		}
		h.startShake(count)

	case "redraw":
		if msg.Slot == nil {
			return
		}
		h.redraw(*msg.Slot)

	case "reset":
		if err := h.session.Reset(); err != nil {
			logf(h.cfg, "DRAWS: Ignored reset in %s: %v", h.id, err)
			return
		}
		h.send(SimpleMessage{Type: "reset"})
	}
}

func (h *Room) startShake(count int) {
	h.send(ShakeMessage{
		Type:       "shake_start",
		Count:      count,
		DurationMS: h.cfg.shakeDuration.Milliseconds(),
	})

	go h.shake(h.session.Names())
}

// shake flickers the dice faces until the shake ends, then hands the draw
// to the event loop.
func (h *Room) shake(names []string) {
	ticker := time.NewTicker(h.cfg.flickerInterval)
	defer ticker.Stop()

	deadline := time.NewTimer(h.cfg.shakeDuration)
	defer deadline.Stop()

	for {
		select {
		case <-ticker.C:
			faces := rollFaces(names)
			if !h.post(func() {
				h.send(FacesMessage{Type: "faces", Faces: faces})
			}) {
				return
			}

		case <-deadline.C:
			h.post(h.resolve)
			return

		case <-h.done:
			return
		}
	}
}

// rollFaces is cosmetic and does not draw from the session's source.
func rollFaces(names []string) []string {
	faces := make([]string, diceFaces)
	if len(names) == 0 {
		return faces
	}

	for i := range faces {
		faces[i] = names[mathrand.IntN(len(names))]
	}

	return faces
}

func (h *Room) resolve() {
	winners, err := h.session.Resolve()
	if err != nil {
		errorf(h.cfg, "DRAWS: Draw failed in %s: %v", h.id, err)
		h.reject(err, false)
		return
	}

	h.metrics.draws.Inc()
	h.metrics.winners.Add(float64(len(winners)))
	logf(h.cfg, "DRAWS: Drew %d winner(s) in %s, %d left in pool", len(winners), h.id, h.session.Remaining())

	h.sendPool()

	h.later(h.cfg.revealDelay, func() {
		if h.session.State() != draw.ResultsShown {
			return
		}

		winners := h.session.Winners()
		h.send(ResultsMessage{
			Type:    "results",
			Winners: winners,
			Layout:  layoutFor(len(winners)),
		})
	})
}

func (h *Room) redraw(slot int) {
	if h.session.State() != draw.ResultsShown {
		return
	}
	if slot < 0 || slot >= len(h.session.Winners()) {
		return
	}
	if h.session.Remaining() == 0 {
		h.reject(draw.ErrPoolExhausted, false)
		return
	}

	h.send(SlotMessage{Type: "replacing", Slot: slot})

	h.later(h.cfg.redrawDelay, func() {
		winner, err := h.session.Redraw(slot)
		if err != nil {
			h.reject(err, false)
			return
		}

		h.metrics.redraws.Inc()
		h.metrics.winners.Inc()
		logf(h.cfg, "DRAWS: Redrew slot %d in %s, %d left in pool", slot, h.id, h.session.Remaining())

		h.sendPool()
		h.send(SlotMessage{Type: "redrawn", Slot: slot, Winner: winner})
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// RoomManager holds a set of rooms keyed by session id, so each $path/$id
// is its own isolated draw.
type RoomManager struct {
	mu          sync.Mutex
	cfg         *Config
	rooms       map[string]*Room
	idleTimeout time.Duration
	metrics     *drawMetrics

	// source supplies each new session's randomness; nil uses the global
	// generator.
	source func() draw.Source

	stop     chan struct{}
	stopOnce sync.Once
}

func newRoomManager(cfg *Config, metrics *drawMetrics) *RoomManager {
	rm := &RoomManager{
		cfg:         cfg,
		rooms:       make(map[string]*Room),
		idleTimeout: cfg.sessionTimeout,
		metrics:     metrics,
		stop:        make(chan struct{}),
	}
	if rm.idleTimeout > 0 {
		go rm.reaperLoop()
	}
	return rm
}

func (rm *RoomManager) getRoom(id string) *Room {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if room, ok := rm.rooms[id]; ok {
		return room
	}

	var src draw.Source
	if rm.source != nil {
		src = rm.source()
	}

	room := newRoom(rm.cfg, id, src, rm.metrics)
	rm.rooms[id] = room
	rm.metrics.rooms.Inc()
	go room.run()

	return room
}

// newRoomID generates a crypto-random session id and ensures it doesn't
// collide with existing sessions.
func (rm *RoomManager) newRoomID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 8)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		rm.mu.Lock()
		_, exists := rm.rooms[id]
		rm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reap closes every room left without a connection since before cutoff and
// reports how many were removed. Rooms with a live connection are kept.
func (rm *RoomManager) reap(cutoff time.Time) int {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	removed := 0
	for id, room := range rm.rooms {
		if room.idle(cutoff) {
			rm.remove(id, room)
			removed++
			logf(rm.cfg, "DRAWS: Reaped idle session %s", id)
		}
	}

	return removed
}

// remove must be called with rm.mu held.
func (rm *RoomManager) remove(id string, room *Room) {
	delete(rm.rooms, id)
	room.close()
	rm.metrics.rooms.Dec()
}

func (rm *RoomManager) reaperLoop() {
	ticker := time.NewTicker(rm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rm.reap(time.Now().Add(-rm.idleTimeout))
		case <-rm.stop:
			return
		}
	}
}

// Close stops the reaper and ends every session.
func (rm *RoomManager) Close() {
	rm.stopOnce.Do(func() {
		close(rm.stop)
	})

	rm.mu.Lock()
	defer rm.mu.Unlock()

	for id, room := range rm.rooms {
		rm.remove(id, room)
	}
}

func serveWS(cfg *Config, rm *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id := ps.ByName("id")
		if !validRoomID.MatchString(id) {
			http.Error(w, "invalid session id", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			errorf(cfg, "DRAWS: Upgrade failed for %s: %v", realIP(r), err)
			return
		}

		room := rm.getRoom(id)

		client := &Client{
			id:   uuid.NewString(),
			conn: conn,
			send: make(chan any, 64),
		}

		if !room.join(client) {
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(room)
	}
}

func (c *Client) readPump(h *Room) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			// malformed requests are dropped, the connection stays up
			continue
		}

		switch msg.Type {
		case "shuffle", "reshuffle", "redraw", "reset":
			select {
			case h.requests <- clientRequest{client: c, msg: msg}:
			case <-h.done:
				return
			}
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// qrHandler generates a PNG QR code for the session URL using go-qrcode.
func qrHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !validRoomID.MatchString(ps.ByName("id")) {
			http.Error(w, "invalid session id", http.StatusBadRequest)
			return
		}

		scheme := cfg.scheme()
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + strings.TrimSuffix(r.URL.Path, "/qr")

		const qrSize = 320
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		_, _ = w.Write(png)
	}
}

func serveDrawPage(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !validRoomID.MatchString(ps.ByName("id")) {
			http.NotFound(w, r)
			return
		}

		data, err := assets.ReadFile("assets/index.html")
		if err != nil {
			errs <- err
			http.Error(w, "page unavailable", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		securityHeaders(cfg, w)

		_, err = w.Write(data)
		if err != nil {
			errs <- err

			return
		}
	}
}

// redirectNewDraw handles GET /path by generating a new random session id
// (with server-side collision detection) and redirecting to /path/:id.
func redirectNewDraw(cfg *Config, base string, rm *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		id := rm.newRoomID()
		logf(cfg, "DRAWS: Created session %s/%s", base, id)
		http.Redirect(w, r, base+"/"+id, http.StatusTemporaryRedirect)
	}
}

// registerDraw sets up routes so that:
//   - $path          → redirects to a new random session (8-char id)
//   - $path/:id      → HTML client
//   - $path/:id/ws   → WebSocket for that session
//   - $path/:id/qr   → PNG QR code for that session URL
func registerDraw(cfg *Config, path string, mux *httprouter.Router, metrics *drawMetrics, errs chan<- error) *RoomManager {
	rm := newRoomManager(cfg, metrics)
	base := cfg.prefix + path

	mux.GET(base, redirectNewDraw(cfg, base, rm))
	mux.GET(base+"/:id", serveDrawPage(cfg, errs))
	mux.GET(base+"/:id/ws", serveWS(cfg, rm))
	mux.GET(base+"/:id/qr", qrHandler(cfg))

	return rm
}
