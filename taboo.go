// Taboo
//
// Two teams take turns. The leader of the team whose turn it is draws a
// card and describes its word to their teammates without saying the word
// or any of its taboo words. Teammates guess aloud; the leader scores the
// card when it is guessed or fails it when a taboo word slips out.
//
// Features:
// - WebSockets per room: /taboo/:gameid and /taboo/:gameid/ws
// - Each connection is a player with a fresh uuid; no cookies, no resuming
// - New players are seated on the smaller team
// - Every client gets its own game_state, and only the active leader's
//   includes the card
// - Turn timer measured on the server; expiry ends the turn exactly once
// - Announcements and chat relayed to the whole room, tinted by team colour
// - Per-connection message rate limiting
// - Rooms auto-reaped after configurable idle timeout
// - Random 8-char room IDs via crypto/rand, with server-side collision check
// - In-browser QR button to share the current room, backed by go-qrcode

package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"html"
	"maps"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Seednode/taboo/games/taboo"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
	"golang.org/x/time/rate"
)

const (
	maxMessageSize  = 4096
	maxUsernameLen  = 32
	maxChatLen      = 500
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	writeWait       = 10 * time.Second
	timeUpAnnounced = "Time is up!"
)

// Messages coming from clients
type ClientMessage struct {
	Type      string `json:"type"`                // "sync", "chooseLeader", "changeTeam", "endTurn", "nextCard", "failCard", "scoreCard", "startTimer", "clearTimer", "setUsername", "chat"
	Timestamp int64  `json:"timestamp,omitempty"` // startTimer, ms since epoch, display only
	Username  string `json:"username,omitempty"`  // setUsername
	Message   string `json:"message,omitempty"`   // chat
}

// SessionInfoMessage is sent immediately on connect so the client knows
// which player id is its own.
type SessionInfoMessage struct {
	Type     string `json:"type"` // "session_info"
	PlayerID string `json:"player_id"`
}

// GameStateMessage carries the game as this client is allowed to see it.
type GameStateMessage struct {
	Type  string         `json:"type"` // "game_state"
	State taboo.Snapshot `json:"state"`
}

// UsernamesMessage maps player ids to display names.
type UsernamesMessage struct {
	Type      string            `json:"type"` // "usernames"
	Usernames map[string]string `json:"usernames"`
}

// ChatMessage is a chat line or a room-wide announcement.
type ChatMessage struct {
	Type    string `json:"type"` // "chat_message"
	Message string `json:"message"`
	Color   string `json:"color,omitempty"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
	limiter  *rate.Limiter
}

type actionRequest struct {
	client *Client
	msg    ClientMessage
}

type Hub struct {
	id        string
	cfg       *Config
	clients   map[*Client]bool
	game      *taboo.Game
	usernames map[string]string

	register chan *Client
	unreg    chan *Client
	actions  chan actionRequest
	expired  chan uint64
	done     chan struct{}
	stop     sync.Once

	mu sync.RWMutex

	createdAt  time.Time
	lastActive time.Time

	turnTimer *time.Timer
	timerGen  uint64 // bumped on every arm/disarm so stale fires are dropped
}

func newHub(cfg *Config, gameID string, cards []taboo.Card) (*Hub, error) {
	deck, err := taboo.NewDeck(cards, nil)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &Hub{
		id:         gameID,
		cfg:        cfg,
		clients:    make(map[*Client]bool),
		game:       taboo.NewGame(deck, cfg.turnLength, taboo.WithLogger(roomLogger(cfg, gameID))),
		usernames:  make(map[string]string),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		actions:    make(chan actionRequest),
		expired:    make(chan uint64),
		done:       make(chan struct{}),
		createdAt:  now,
		lastActive: now,
	}, nil
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			return

		case c := <-h.register:
			h.handleRegister(c)

		case c := <-h.unreg:
			h.handleUnregister(c)

		case req := <-h.actions:
			h.handleAction(req)

		case gen := <-h.expired:
			h.handleExpiry(gen)
		}
	}
}

// post hands v to the hub loop unless the hub has been shut down.
func post[T any](h *Hub, ch chan T, v T) bool {
	select {
	case ch <- v:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) handleRegister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()
	h.clients[c] = true

	team := h.game.AddPlayer(c.playerID)
	logf(h.cfg, "GAMES: Player %s joined %s on team %s", c.playerID, h.id, team)

	h.sendLocked(c, SessionInfoMessage{
		Type:     "session_info",
		PlayerID: c.playerID,
	})
	h.sendLocked(c, h.usernamesMessageLocked())

	h.broadcastGameStateLocked()
}

// handleUnregister removes the player but keeps the room and its game alive
// for whoever is still connected.
func (h *Hub) handleUnregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}

	h.game.RemovePlayer(c.playerID)
	logf(h.cfg, "GAMES: Player %s left %s", c.playerID, h.id)

	if _, ok := h.usernames[c.playerID]; ok {
		delete(h.usernames, c.playerID)
		h.broadcastLocked(h.usernamesMessageLocked())
	}

	h.broadcastGameStateLocked()
}

func (h *Hub) handleAction(req actionRequest) {
	c := req.client
	msg := req.msg

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}

	h.lastActive = time.Now()

	// A turn that ran out before this message arrived ends first, so a late
	// score cannot land on the next team's turn.
	expired := h.expireLocked()

	id := c.playerID

	var (
		err      error
		announce string
	)

	switch msg.Type {
	case "chooseLeader":
		err = h.game.AssignLeader(id)
	case "changeTeam":
		err = h.game.ChangeTeam(id)
	case "endTurn":
		err = h.game.EndTurn(id)
		announce = "%s ended the turn"
	case "nextCard":
		err = h.game.NextCard(id)
		announce = "%s got a new card"
	case "failCard":
		err = h.game.FailCard(id)
		announce = "%s used a taboo word"
	case "scoreCard":
		err = h.game.ScoreCard(id)
		announce = "%s's team guessed a card"
	case "startTimer":
		err = h.game.StartTimer(id, msg.Timestamp)
		announce = "%s started the timer"
	case "clearTimer":
		err = h.game.ClearTimer(id)
		announce = "%s cleared the timer"
	default:
		switch msg.Type {
		case "sync":
			if !expired {
				h.sendStateLocked(c)
			}
		case "setUsername":
			h.setUsernameLocked(c, msg.Username)
		case "chat":
			h.chatLocked(c, msg.Message)
		}

		if expired {
			h.broadcastGameStateLocked()
		}
		return
	}

	// Rejected actions change nothing and are not announced; the game has
	// already logged why.
	if err != nil {
		if expired {
			h.broadcastGameStateLocked()
		}
		return
	}

	h.armTimerLocked()

	if announce != "" {
		h.announceLocked(fmt.Sprintf(announce, h.displayNameLocked(id)), h.game.TeamOf(id).Color())
	}

	h.broadcastGameStateLocked()
}

func (h *Hub) handleExpiry(gen uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if gen != h.timerGen {
		return
	}

	if !h.expireLocked() {
		h.armTimerLocked()
		return
	}

	h.broadcastGameStateLocked()
}

// expireLocked ends the turn if its timer has run out and announces it.
func (h *Hub) expireLocked() bool {
	if !h.game.Tick() {
		return false
	}

	h.disarmTimerLocked()
	logf(h.cfg, "GAMES: Turn timer expired in %s, team %s is up", h.id, h.game.ActiveTeam())
	h.announceLocked(timeUpAnnounced, "")

	return true
}

// armTimerLocked schedules one expiry check for the running turn timer, if
// there is one, replacing any earlier schedule.
func (h *Hub) armTimerLocked() {
	h.disarmTimerLocked()

	remaining, ok := h.game.TimeRemaining()
	if !ok {
		return
	}

	gen := h.timerGen
	h.turnTimer = time.AfterFunc(remaining, func() {
		select {
		case h.expired <- gen:
		case <-h.done:
		}
	})
}

func (h *Hub) disarmTimerLocked() {
	h.timerGen++

	if h.turnTimer != nil {
		h.turnTimer.Stop()
		h.turnTimer = nil
	}
}

func (h *Hub) setUsernameLocked(c *Client, name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	if utf8.RuneCountInString(name) > maxUsernameLen {
		name = string([]rune(name)[:maxUsernameLen])
	}

	h.usernames[c.playerID] = name
	logf(h.cfg, "GAMES: Player %s is now %q in %s", c.playerID, name, h.id)

	h.broadcastLocked(h.usernamesMessageLocked())
}

func (h *Hub) chatLocked(c *Client, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if utf8.RuneCountInString(text) > maxChatLen {
		text = string([]rune(text)[:maxChatLen])
	}

	h.announceLocked(h.displayNameLocked(c.playerID)+":\n "+text, h.game.TeamOf(c.playerID).Color())
}

// displayNameLocked falls back to the player id when no username was set.
func (h *Hub) displayNameLocked(playerID string) string {
	if name, ok := h.usernames[playerID]; ok {
		return name
	}
	return playerID
}

func (h *Hub) usernamesMessageLocked() UsernamesMessage {
	return UsernamesMessage{
		Type:      "usernames",
		Usernames: maps.Clone(h.usernames),
	}
}

func (h *Hub) announceLocked(text, color string) {
	h.broadcastLocked(ChatMessage{
		Type:    "chat_message",
		Message: text,
		Color:   color,
	})
}

func (h *Hub) sendStateLocked(c *Client) {
	h.sendLocked(c, GameStateMessage{
		Type:  "game_state",
		State: taboo.Project(h.game, c.playerID),
	})
}

// broadcastGameStateLocked sends every client its own projection of the
// game, after applying any expired turn timer.
func (h *Hub) broadcastGameStateLocked() {
	h.expireLocked()

	for client := range h.clients {
		h.sendStateLocked(client)
	}
}

func (h *Hub) broadcastLocked(msg any) {
	for client := range h.clients {
		h.sendLocked(client, msg)
	}
}

// sendLocked drops clients whose send buffer is full.
func (h *Hub) sendLocked(c *Client, msg any) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

// closeAll disconnects all clients of this hub and stops its loop (used by reaper).
func (h *Hub) closeAll() {
	h.stop.Do(func() { close(h.done) })

	h.mu.Lock()
	defer h.mu.Unlock()

	h.disarmTimerLocked()

	for c := range h.clients {
		close(c.send)
		if c.conn != nil {
			_ = c.conn.Close()
		}
		delete(h.clients, c)
	}
}

// touch keeps a room with quiet but connected players from being reaped.
func (h *Hub) touch() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()
}

// connected is the number of clients currently attached to the hub.
func (h *Hub) connected() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// GameManager holds a set of hubs keyed by room ID, so each $path/$gameid
// is its own isolated room.
type GameManager struct {
	mu          sync.Mutex
	cfg         *Config
	cards       []taboo.Card
	hubs        map[string]*Hub
	idleTimeout time.Duration
}

func newGameManager(ctx context.Context, cfg *Config, cards []taboo.Card) *GameManager {
	gm := &GameManager{
		cfg:         cfg,
		cards:       cards,
		hubs:        make(map[string]*Hub),
		idleTimeout: cfg.sessionTimeout,
	}
	if gm.idleTimeout > 0 {
		go gm.reaperLoop(ctx)
	}
	return gm
}

// getHub returns the room's hub, creating it and its game on first use.
func (gm *GameManager) getHub(gameID string) (*Hub, error) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if hub, ok := gm.hubs[gameID]; ok {
		return hub, nil
	}

	hub, err := newHub(gm.cfg, gameID, gm.cards)
	if err != nil {
		return nil, err
	}
	gm.hubs[gameID] = hub
	go hub.run()

	logf(gm.cfg, "GAMES: Opened room %s", gameID)

	return hub, nil
}

// lookup returns an existing hub without creating one.
func (gm *GameManager) lookup(gameID string) (*Hub, bool) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	hub, ok := gm.hubs[gameID]
	return hub, ok
}

// newGameID generates a crypto-random room ID and ensures it doesn't
// collide with existing rooms.
func (gm *GameManager) newGameID() string {
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

		if _, exists := gm.lookup(id); !exists {
			return id
		}
	}
}

// reap removes hubs that have been idle since before cutoff.
func (gm *GameManager) reap(cutoff time.Time) int {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	reaped := 0
	for id, hub := range gm.hubs {
		hub.mu.RLock()
		last := hub.lastActive
		age := time.Since(hub.createdAt)
		hub.mu.RUnlock()

		if last.Before(cutoff) {
			delete(gm.hubs, id)
			go hub.closeAll()
			reaped++

			logf(gm.cfg, "GAMES: Reaped idle room %s after %s", id, age.Round(time.Second))
		}
	}

	return reaped
}

// reaperLoop periodically removes hubs that have been idle longer than idleTimeout.
func (gm *GameManager) reaperLoop(ctx context.Context) {
	ticker := time.NewTicker(gm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			gm.reap(now.Add(-gm.idleTimeout))
		}
	}
}

// WebSocket handler that picks the hub based on :gameid
func serveWSForManager(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if gameID == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		hub, err := gm.getHub(gameID)
		if err != nil {
			http.Error(w, "unable to open game", http.StatusInternalServerError)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "ERROR: Websocket upgrade for %s failed: %v", realIP(r), err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 16),
			playerID: uuid.NewString(),
			limiter:  rate.NewLimiter(rate.Limit(cfg.rateLimit), cfg.rateBurst),
		}

		if !post(hub, hub.register, client) {
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(cfg, hub)
	}
}

func (c *Client) readPump(cfg *Config, h *Hub) {
	defer func() {
		post(h, h.unreg, c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		h.touch()
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		if !c.limiter.Allow() {
			logf(cfg, "GAMES: Dropped %q from %s in %s (rate limited)", msg.Type, c.playerID, h.id)
			continue
		}

		if !post(h, h.actions, actionRequest{client: c, msg: msg}) {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// QR handler: generates a PNG QR code for the current room URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	gameID := ps.ByName("gameid")
	if gameID == "" {
		http.Error(w, "missing game id", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../:gameid/qr; strip trailing "/qr" to get the room URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// getIndexHandler serves a placeholder page for the room; the game itself
// is played by a client speaking to the websocket endpoint.
func getIndexHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		body := fmt.Sprintf("Room %s: connect a client to %s/ws",
			html.EscapeString(ps.ByName("gameid")),
			html.EscapeString(strings.TrimSuffix(r.URL.Path, "/")),
		)

		_, _ = w.Write([]byte(newPage("Taboo", body)))
	}
}

// redirectNewGame handles GET /path by generating a new random room ID
// (with server-side collision detection) and redirecting to /path/:gameid.
func redirectNewGame(cfg *Config, path string, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gameID := gm.newGameID()
		logf(cfg, "GAMES: Created game %s/%s", path, gameID)
		http.Redirect(w, r, cfg.prefix+path+"/"+gameID, http.StatusTemporaryRedirect)
	}
}

// registerTabooGame sets up routes so that:
//   - $path                  → redirects to new random room (8-char ID)
//   - $path/:gameid          → placeholder page
//   - $path/:gameid/ws       → WebSocket for that room
//   - $path/:gameid/qr       → PNG QR code for that room URL
func registerTabooGame(ctx context.Context, cfg *Config, path string, mux *httprouter.Router, cards []taboo.Card) *GameManager {
	gm := newGameManager(ctx, cfg, cards)

	mux.GET(cfg.prefix+path, redirectNewGame(cfg, path, gm))

	mux.GET(cfg.prefix+path+"/:gameid", getIndexHandler(cfg))

	mux.GET(cfg.prefix+path+"/:gameid/ws", serveWSForManager(cfg, gm))

	mux.GET(cfg.prefix+path+"/:gameid/qr", qrHandler)

	return gm
}
