package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"tickertalk/internal/models"
	"tickertalk/internal/utils"

	"github.com/gorilla/websocket"
)

const (
	EventUpdateGraph = "updateGraph"
	EventLiveComment = "liveComment"

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 2048
	sendBuffer     = 16
)

// LiveEvent is the envelope for every websocket message in both directions.
type LiveEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type inboundEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// LivePostView is the public shape of a live post.
type LivePostView struct {
	ID             uint      `json:"id"`
	Content        string    `json:"content"`
	Username       string    `json:"username"`
	ProfilePicture string    `json:"profile_picture"`
	Date           time.Time `json:"date"`
}

func NewLivePostView(lp *models.LivePost) LivePostView {
	return LivePostView{
		ID:             lp.ID,
		Content:        lp.Content,
		Username:       lp.User.Username,
		ProfilePicture: lp.User.ProfilePicture,
		Date:           lp.Date,
	}
}

// LivePostWriter persists live comments.
type LivePostWriter interface {
	CreateLivePost(userID uint, content string) (*models.LivePost, error)
}

type liveClient struct {
	conn   *websocket.Conn
	send   chan []byte
	userID uint
}

// Hub fans events out to every connected websocket and owns the market ticker.
type Hub struct {
	ctx      context.Context
	source   QuoteSource
	symbol   string
	interval time.Duration
	posts    LivePostWriter

	mu      sync.RWMutex
	clients map[*liveClient]struct{}
	latest  *Chart

	tickerOnce sync.Once
}

// NewHub builds a hub whose ticker, once started, runs until ctx is done.
func NewHub(ctx context.Context, source QuoteSource, symbol string, interval time.Duration, posts LivePostWriter) *Hub {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Hub{
		ctx:      ctx,
		source:   source,
		symbol:   symbol,
		interval: interval,
		posts:    posts,
		clients:  make(map[*liveClient]struct{}),
	}
}

// ClientCount is the number of connected sockets.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// LatestChart returns the last chart the ticker fetched, or nil.
func (h *Hub) LatestChart() *Chart {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// CurrentChart returns the latest chart, fetching it once when nothing has
// been cached yet. It also starts the ticker so the cache stays warm.
func (h *Hub) CurrentChart(ctx context.Context) *Chart {
	h.EnsureTicker(h.ctx)
	if chart := h.LatestChart(); chart != nil || h.source == nil {
		return chart
	}

	fetchCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	chart, err := h.source.Chart(fetchCtx, h.symbol)
	if err != nil {
		utils.Sugar.Warnw("initial market fetch failed", "symbol", h.symbol, "error", err)
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.latest == nil {
		h.latest = chart
	}
	return h.latest
}

// EnsureTicker starts the market broadcaster the first time it is called. Later calls do nothing.
func (h *Hub) EnsureTicker(ctx context.Context) {
	h.tickerOnce.Do(func() {
		if h.source == nil {
			return
		}
		go h.runTicker(ctx)
	})
}

func (h *Hub) runTicker(ctx context.Context) {
	utils.Sugar.Infow("market ticker started", "symbol", h.symbol, "interval", h.interval)
	t := time.NewTicker(h.interval)
	defer t.Stop()

	h.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			utils.Sugar.Info("market ticker stopped")
			return
		case <-t.C:
			h.tick(ctx)
		}
	}
}

func (h *Hub) tick(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, h.interval)
	defer cancel()

	chart, err := h.source.Chart(fetchCtx, h.symbol)
	if err != nil {
		utils.Sugar.Warnw("market fetch failed", "symbol", h.symbol, "error", err)
		return
	}
	h.mu.Lock()
	h.latest = chart
	h.mu.Unlock()
	h.Broadcast(LiveEvent{Event: EventUpdateGraph, Data: chart})
}

// Broadcast sends ev to every client. Clients whose buffer is full are dropped.
func (h *Hub) Broadcast(ev LiveEvent) {
	msg, err := json.Marshal(ev)
	if err != nil {
		utils.Sugar.Errorw("marshal live event", "event", ev.Event, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.removeLocked(c)
		}
	}
}

func (h *Hub) register(c *liveClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *liveClient) {
	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

func (h *Hub) removeLocked(c *liveClient) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Serve runs a websocket connection until it closes. userID is 0 for anonymous viewers.
func (h *Hub) Serve(conn *websocket.Conn, userID uint) {
	c := &liveClient{conn: conn, send: make(chan []byte, sendBuffer), userID: userID}
	if chart := h.LatestChart(); chart != nil {
		if msg, err := json.Marshal(LiveEvent{Event: EventUpdateGraph, Data: chart}); err == nil {
			c.send <- msg
		}
	}
	h.register(c)
	h.EnsureTicker(h.ctx)

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) readPump(c *liveClient) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				utils.Sugar.Debugw("websocket closed", "error", err)
			}
			return
		}
		h.handleInbound(c, data)
	}
}

func (h *Hub) writePump(c *liveClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

func (h *Hub) handleInbound(c *liveClient, data []byte) {
	var ev inboundEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return
	}
	switch ev.Event {
	case EventLiveComment:
		if c.userID == 0 || h.posts == nil {
			return
		}
		var body struct {
			Content string `json:"content"`
		}
		if err := json.Unmarshal(ev.Data, &body); err != nil {
			return
		}
		lp, err := h.posts.CreateLivePost(c.userID, body.Content)
		if err != nil {
			if !errors.Is(err, ErrEmptyContent) {
				utils.Sugar.Errorw("save live comment", "user_id", c.userID, "error", err)
			}
			return
		}
		h.Broadcast(LiveEvent{Event: EventLiveComment, Data: NewLivePostView(lp)})
	}
}
