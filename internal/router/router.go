package router

import (
	"strings"
	"time"

	"tickertalk/internal/config"
	"tickertalk/internal/handlers"
	"tickertalk/internal/middleware"
	"tickertalk/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const SessionName = "tickertalk_session"

// Deps are the long-lived objects the routes need.
type Deps struct {
	Sessions     sessions.Store
	Accounts     *services.AccountService
	Verification *services.VerificationService
	Resets       *services.PasswordResetService
	Feed         *services.FeedService
	Hub          *services.Hub
	Images       *services.ImageStore
}

func RegisterRoutes(r *gin.Engine, cfg config.AppConfig, d Deps) {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	corsCfg.AllowOrigins = corsOrigins(cfg)
	if len(corsCfg.AllowOrigins) == 0 {
		// A wildcard never gets credentials.
		corsCfg.AllowOrigins = nil
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	}
	r.Use(cors.New(corsCfg))
	r.Use(sessions.Sessions(SessionName, d.Sessions))
	r.Use(middleware.LoadUser())

	// Handlers
	authHandler := handlers.NewAuthHandler(d.Accounts, d.Verification, d.Images)
	resetHandler := handlers.NewResetHandler(d.Resets)
	postHandler := handlers.NewPostHandler(d.Feed, d.Images)
	userHandler := handlers.NewUserHandler(d.Accounts, d.Feed, d.Images)
	liveHandler := handlers.NewLiveHandler(d.Hub, d.Feed, cfg.MarketSymbol, cfg.AllowedOrigins)

	limiter := middleware.RateLimit(middleware.NewIPRateLimiter(cfg.RateLimitPerMinute))

	// Public Routes
	r.GET("/", liveHandler.Index)
	r.GET("/posts", postHandler.List)
	r.GET("/posts/:id", postHandler.Detail)
	r.GET("/comment", liveHandler.Comments)
	r.GET("/ws", liveHandler.Socket)
	r.GET("/health", handlers.Health)

	r.GET("/login", authHandler.ShowLogin)
	r.POST("/login", limiter, authHandler.Login)
	r.GET("/register", authHandler.ShowRegister)
	r.POST("/register", limiter, authHandler.Register)
	r.GET("/verify", authHandler.ShowVerify)
	r.POST("/verify", limiter, authHandler.Verify)
	r.GET("/reset_password", resetHandler.ShowRequest)
	r.POST("/reset_password", limiter, resetHandler.Request)
	r.GET("/reset_password/:token", resetHandler.ShowReset)
	r.POST("/reset_password/:token", limiter, resetHandler.Reset)

	// Protected Routes
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.GET("/logout", authHandler.Logout)
		authorized.GET("/upload", postHandler.ShowCreate)
		authorized.POST("/upload", postHandler.Create)
		authorized.POST("/posts/like", postHandler.Like)
		authorized.POST("/posts/:id/comment", postHandler.Comment)
		authorized.GET("/profile/:id", userHandler.Profile)
		authorized.POST("/users/:id", userHandler.Update)
	}
}

// corsOrigins returns the explicit origins, or nil when "*" is configured.
// An empty list falls back to the site URL.
func corsOrigins(cfg config.AppConfig) []string {
	origins := make([]string, 0, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			return nil
		}
		origins = append(origins, strings.TrimRight(o, "/"))
	}
	if len(origins) == 0 && cfg.SiteURL != "" {
		origins = append(origins, cfg.SiteURL)
	}
	return origins
}
