package main

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"tickertalk/internal/config"
	"tickertalk/internal/db"
	"tickertalk/internal/middleware"
	"tickertalk/internal/models"
	"tickertalk/internal/router"
	"tickertalk/internal/services"
	"tickertalk/internal/utils"

	"github.com/gin-contrib/multitemplate"
	gormsessions "github.com/gin-contrib/sessions/gorm"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()

	if err := utils.InitLogger(utils.LogOptions{
		Level:      cfg.LogLevel,
		Path:       cfg.LogPath,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
		Compress:   cfg.LogCompress,
	}); err != nil {
		panic(err)
	}
	defer utils.Logger.Sync()
	if os.Getenv("APP_SECRET_KEY") == "" {
		utils.Sugar.Warn("APP_SECRET_KEY is not set; reset tokens are signed with SESSION_SECRET")
	}

	// Initialize Database
	db.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pending, closePending := newPendingStore(ctx, cfg)
	defer closePending()

	mailer := services.NewMailService(cfg)
	accounts := services.NewAccountService(db.DB, cfg.ReverifyAfter)
	feed := services.NewFeedService(db.DB)
	deps := router.Deps{
		Sessions:     gormsessions.NewStore(db.DB, true, []byte(cfg.SessionSecret)),
		Accounts:     accounts,
		Verification: services.NewVerificationService(pending, mailer, cfg.VerifyCodeTTL),
		Resets: services.NewPasswordResetService(
			services.NewResetTokens(cfg.AppSecretKey, cfg.ResetTokenTTL), accounts, mailer, cfg.SiteURL),
		Feed:   feed,
		Hub:    services.NewHub(ctx, services.NewYahooQuoteSource(cfg.MarketBaseURL), cfg.MarketSymbol, cfg.MarketInterval, feed),
		Images: services.NewImageStore(cfg.UploadDir),
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		utils.Sugar.Fatalf("create upload dir: %v", err)
	}

	gin.SetMode(ginMode(cfg.GinMode))
	r := gin.New()
	r.Use(middleware.Recovery(utils.Logger), middleware.RequestLogger(utils.Logger))
	r.HTMLRender = loadTemplates(cfg.TemplatesDir)
	r.Static("/static", "./web/static")
	r.Static("/uploads", cfg.UploadDir)

	router.RegisterRoutes(r, cfg, deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		utils.Sugar.Infof("TickerTalk server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Sugar.Fatalf("server stopped with error: %v", err)
		}
	}()

	<-ctx.Done()
	utils.Sugar.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Sugar.Errorw("graceful shutdown failed", "error", err)
	}
}

// newPendingStore uses Redis when configured and reachable, otherwise an in-process LRU.
func newPendingStore(ctx context.Context, cfg config.AppConfig) (services.PendingStore, func()) {
	if cfg.RedisEnabled() {
		rc := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		err := rc.Ping(pingCtx).Err()
		if err == nil {
			utils.Sugar.Infow("pending verifications stored in redis", "host", cfg.RedisHost)
			return services.NewRedisPendingStore(rc), func() { rc.Close() }
		}
		utils.Sugar.Warnw("redis unreachable, using in-memory pending store", "error", err)
		rc.Close()
	}
	return services.NewMemoryPendingStore(10000, cfg.VerifyCodeTTL), func() {}
}

func ginMode(mode string) string {
	switch strings.ToLower(mode) {
	case "debug":
		return gin.DebugMode
	case "test":
		return gin.TestMode
	default:
		return gin.ReleaseMode
	}
}

func loadTemplates(templatesDir string) multitemplate.Renderer {
	r := multitemplate.NewRenderer()

	layouts, err := filepath.Glob(templatesDir + "/layouts/*.html")
	if err != nil {
		panic(err)
	}

	assemble := func(view string) []string {
		files := make([]string, 0, len(layouts)+1)
		files = append(files, layouts...)
		files = append(files, view)
		return files
	}

	funcMap := template.FuncMap{
		"timeAgo": func(t time.Time) string {
			return utils.TimeAgo(t, time.Now())
		},
		"markdown": utils.RenderMarkdown,
		"upload": func(name string) string {
			if name == "" || name == models.DefaultPicture {
				return "/static/img/default.svg"
			}
			return "/uploads/" + name
		},
	}

	views := []string{
		"home.html",
		"error.html",
		"auth/login.html",
		"auth/register.html",
		"auth/verify.html",
		"auth/reset_request.html",
		"auth/reset_password.html",
		"post/list.html",
		"post/detail.html",
		"post/create.html",
		"user/profile.html",
	}
	for _, v := range views {
		r.AddFromFilesFuncs(v, funcMap, assemble(templatesDir+"/views/"+v)...)
	}
	return r
}
