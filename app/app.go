package app

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"equipment_lending/db"
	"equipment_lending/jobs"
	"equipment_lending/lending"
	"equipment_lending/memstore"
	"equipment_lending/metrics"
	"equipment_lending/session"
)

// 简化别名，便于 handlers 调用
type Ctx = gin.Context
type H = gin.H

// UserDirectory is the identity side the HTTP layer needs beyond lending.Tx.
type UserDirectory interface {
	TouchUserSeen(ctx context.Context, userID string) error
	PromoteAdmin(ctx context.Context, username string) (bool, error)
	CountAdmins(ctx context.Context) (int64, error)
}

// App 聚合各依赖
type App struct {
	Router    *gin.Engine
	DB        *gorm.DB // memory 模式下为 nil
	RDB       *redis.Client
	Config    Config
	Logger    *slog.Logger
	Service   *lending.Service
	Users     UserDirectory
	Sessions  *session.AppSessionStore
	Metrics   *metrics.Lending
	Registry  *prometheus.Registry
	Refresher *jobs.AvailabilityRefresher
}

// Config 从环境变量读取
type Config struct {
	Port           string
	DB             db.Config
	RedisAddr      string
	RedisPwd       string
	WebOrigin      string
	AdminUsernames []string
	StoreBackend   string // postgres | memory
	LockBackend    string // row | redis | local
	LockWait       time.Duration
	LockTTL        time.Duration
	RefreshCron    string
	SessionTTL     time.Duration
	LogLevel       string
	LogFormat      string
	GinMode        string
}

func (c Config) IsAdminUsername(username string) bool {
	for _, a := range c.AdminUsernames {
		if strings.EqualFold(a, username) {
			return true
		}
	}
	return false
}

func MustNew() *App {
	cfg := loadConfig()
	logger := NewLogger(cfg.LogLevel, cfg.LogFormat)
	fatal := func(msg string, err error) {
		logger.Error(msg, "error", err.Error())
		os.Exit(1)
	}

	// --- Redis ---
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: 0})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		fatal("redis unavailable", err)
	}

	// --- Metrics ---
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewLending(reg)

	// --- Store + lock ---
	a := &App{RDB: rdb, Config: cfg, Logger: logger, Metrics: m, Registry: reg}
	var store lending.Store
	switch cfg.StoreBackend {
	case "memory":
		mem := memstore.New(cfg.LockWait)
		store, a.Users = mem, mem
		logger.Warn("using in-memory store, data is lost on restart")
	default:
		conn, err := db.ConnectDB(cfg.DB)
		if err != nil {
			fatal("database unavailable", err)
		}
		logger.Info("database connected", "host", cfg.DB.Host, "port", cfg.DB.Port, "name", cfg.DB.Name)
		repo := db.NewRepo(conn)
		store, a.Users, a.DB = repo, repo, conn
	}

	guard, err := newGuard(cfg, store, rdb, m)
	if err != nil {
		fatal("lock backend", err)
	}

	svc, err := lending.New(store, guard, lending.WithLogger(logger), lending.WithMetrics(m))
	if err != nil {
		fatal("lending service", err)
	}
	a.Service = svc
	a.Sessions = session.NewAppSessionStore(rdb, cfg.SessionTTL)
	a.Refresher = jobs.NewAvailabilityRefresher(svc, logger, m)

	// --- Gin ---
	gin.SetMode(cfg.GinMode)
	r := gin.Default()
	useCORS(r, cfg.WebOrigin)
	a.Router = r

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer bootCancel()
	PromoteConfiguredAdmins(bootCtx, a.Users, cfg.AdminUsernames, logger)
	return a
}

func (a *App) Close() {
	if a.Refresher != nil {
		a.Refresher.Stop()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.RDB != nil {
		_ = a.RDB.Close()
	}
}

func loadConfig() Config {
	get := func(k, def string) string {
		v := os.Getenv(k)
		if v == "" {
			return def
		}
		return v
	}
	millis := func(k string, def time.Duration) time.Duration {
		if n, err := strconv.Atoi(os.Getenv(k)); err == nil && n >= 0 {
			return time.Duration(n) * time.Millisecond
		}
		return def
	}
	var admins []string
	for _, s := range strings.Split(os.Getenv("ADMIN_USERNAMES"), ",") {
		if t := strings.TrimSpace(s); t != "" {
			admins = append(admins, strings.ToLower(t))
		}
	}
	sessionTTL := 24 * time.Hour
	if n, err := strconv.Atoi(os.Getenv("SESSION_TTL_SECONDS")); err == nil && n > 0 {
		sessionTTL = time.Duration(n) * time.Second
	}

	return Config{
		Port: get("PORT", "3001"),
		DB: db.Config{
			Host:     get("DB_HOST", "127.0.0.1"),
			User:     get("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     get("DB_NAME", "lending"),
			Port:     get("DB_PORT", "5432"),
			SSLMode:  get("DB_SSLMODE", "disable"),
			Debug:    strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug"),
		},
		RedisAddr:      get("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPwd:       os.Getenv("REDIS_PASSWORD"),
		WebOrigin:      get("WEB_ORIGIN", "http://localhost:5173"),
		AdminUsernames: admins,
		StoreBackend:   strings.ToLower(get("STORE_BACKEND", "postgres")),
		LockBackend:    strings.ToLower(get("LOCK_BACKEND", "row")),
		LockWait:       millis("LOCK_WAIT_MS", 3*time.Second),
		LockTTL:        millis("LOCK_TTL_MS", 15*time.Second),
		RefreshCron:    get("AVAILABILITY_REFRESH_CRON", "@every 5m"),
		SessionTTL:     sessionTTL,
		LogLevel:       get("LOG_LEVEL", "info"),
		LogFormat:      get("LOG_FORMAT", "json"),
		GinMode:        get("GIN_MODE", gin.ReleaseMode),
	}
}
