package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"tickertalk/internal/db"
	"tickertalk/internal/middleware"
	"tickertalk/internal/services"
	"tickertalk/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const recentLivePosts = 50

type LiveHandler struct {
	hub      *services.Hub
	feed     *services.FeedService
	symbol   string
	origins  originPolicy
	upgrader websocket.Upgrader
}

func NewLiveHandler(hub *services.Hub, feed *services.FeedService, symbol string, allowedOrigins []string) *LiveHandler {
	h := &LiveHandler{hub: hub, feed: feed, symbol: symbol, origins: newOriginPolicy(allowedOrigins)}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.origins.allowed,
	}
	return h
}

// originPolicy trusts same-host requests and explicitly listed origins.
// "*" lets any origin watch the live channel but never act as the session user.
type originPolicy struct {
	listed   map[string]bool
	wildcard bool
}

func newOriginPolicy(allowed []string) originPolicy {
	p := originPolicy{listed: make(map[string]bool, len(allowed))}
	for _, o := range allowed {
		if o == "*" {
			p.wildcard = true
			continue
		}
		p.listed[strings.TrimRight(o, "/")] = true
	}
	return p
}

func (p originPolicy) trusted(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || p.listed[origin] {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && strings.EqualFold(u.Host, r.Host)
}

func (p originPolicy) allowed(r *http.Request) bool {
	return p.wildcard || p.trusted(r)
}

// Index renders the dashboard with the last known chart and recent live comments.
func (h *LiveHandler) Index(c *gin.Context) {
	views := []services.LivePostView{}
	if posts, err := h.feed.RecentLivePosts(recentLivePosts); err == nil {
		for i := range posts {
			views = append(views, services.NewLivePostView(&posts[i]))
		}
	} else {
		utils.Sugar.Warnw("load live posts", "error", err)
	}
	Render(c, http.StatusOK, "home.html", gin.H{
		"Symbol":    h.symbol,
		"Chart":     h.hub.CurrentChart(c.Request.Context()),
		"LivePosts": views,
	})
}

// Socket upgrades to the live channel. Anonymous viewers get updates but cannot comment.
func (h *LiveHandler) Socket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.Sugar.Debugw("websocket upgrade failed", "error", err)
		return
	}
	var userID uint
	if u := middleware.CurrentUser(c); u != nil && h.origins.trusted(c.Request) {
		userID = u.ID
	}
	h.hub.Serve(conn, userID)
}

func (h *LiveHandler) Comments(c *gin.Context) {
	posts, err := h.feed.RecentLivePosts(recentLivePosts)
	if err != nil {
		utils.Sugar.Errorw("list live posts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load comments"})
		return
	}
	views := make([]services.LivePostView, 0, len(posts))
	for i := range posts {
		views = append(views, services.NewLivePostView(&posts[i]))
	}
	c.JSON(http.StatusOK, gin.H{"comments": views})
}

func Health(c *gin.Context) {
	status := "ok"
	code := http.StatusOK
	if sqlDB, err := db.DB.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status})
}
