package main

import (
	"context"
	_ "embed"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hanksha/camping-booking-backend/api"
	bk "github.com/hanksha/camping-booking-backend/booking"
	"github.com/hanksha/camping-booking-backend/config"
	"github.com/hanksha/camping-booking-backend/discord"
	"github.com/hanksha/camping-booking-backend/events"
	"github.com/hanksha/camping-booking-backend/notification"
	"github.com/hanksha/camping-booking-backend/snapshot"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gopkg.in/gomail.v2"
	"gopkg.in/natefinch/lumberjack.v2"
)

//go:embed database/setup.sql
var setupSQL string

func main() {
	cfg, err := config.Load("config.yaml")

	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(cfg.Log))
	logger := slog.Default().With("component", "main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped with error", "err", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level

	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stdout

	if cfg.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
	}

	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("connecting to PostgreSQL database")
	pool, err := pgxpool.New(ctx, cfg.Database.URL)

	if err != nil {
		return err
	}

	defer pool.Close()

	if _, err := pool.Exec(ctx, setupSQL); err != nil {
		return err
	}

	logger.Info("initialized database tables")

	discordClient := discord.NewClient(discord.Config{
		BotToken:     cfg.Discord.BotToken,
		ClientID:     cfg.Discord.ClientID,
		ClientSecret: cfg.Discord.ClientSecret,
		RedirectURI:  cfg.Discord.RedirectURI,
		ServerID:     cfg.Discord.ServerID,
	})

	// NOTIFICATIONS

	var redisClient *redis.Client
	var store notification.Store

	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return err
		}

		store = notification.NewRedisStore(redisClient, cfg.Redis.Prefix, cfg.Notification.InboxCapacity)
		logger.Info("using redis notification store", "addr", cfg.Redis.Addr)
	} else {
		store = notification.NewMemoryStore(cfg.Notification.InboxCapacity)
	}

	notificationRepo := notification.NewRepository(pool)
	channels := []notification.Channel{
		notification.NewInAppChannel(store),
		notification.NewPersistedChannel(notificationRepo),
	}

	if cfg.Discord.ChannelID != "" {
		channels = append(channels, notification.NewDiscordChannel(discordClient, cfg.Discord.ChannelID))
	}

	if cfg.SMTP.Host != "" {
		dialer := gomail.NewDialer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password)
		channels = append(channels, notification.NewEmailChannel(dialer, cfg.SMTP.From))
	}

	notifications := notification.NewRouter(store, channels, notification.Options{
		HistoryCapacity: cfg.Notification.HistoryCapacity,
		QueueSize:       cfg.Notification.QueueSize,
		Workers:         cfg.Notification.Workers,
	}, slog.Default())

	if err := notifications.Restore(ctx); err != nil {
		logger.Warn("starting with empty notification history", "err", err)
	}

	// BOOKINGS

	bookingRepo := bk.NewRepository(pool)
	catalog := bk.NewCachedCatalog(bk.NewResourceRepository(pool), cfg.Booking.CatalogCacheTTL)

	localSnapshots := snapshot.NewLocalSource(bookingRepo, cfg.Sync.PageSize)

	var dashboardSource snapshot.Source = localSnapshots

	if cfg.Sync.APIBaseURL != "" {
		httpSource, err := snapshot.NewHTTPSource(cfg.Sync.APIBaseURL, cfg.Sync.AccessToken)
		if err != nil {
			return err
		}
		dashboardSource = httpSource
		logger.Info("dashboard follows remote instance", "url", cfg.Sync.APIBaseURL)
	}

	coordinator := snapshot.NewCoordinator(dashboardSource, cfg.Sync.PollInterval, slog.Default())
	coordinator.OnRollback(func(r snapshot.Rollback) {
		logger.Warn("optimistic booking status rolled back",
			"bookingId", r.BookingID, "optimistic", r.Optimistic, "authoritative", r.Authoritative)
	})

	handlers := []events.Handler{notifications, coordinator}

	var producer *events.Producer
	var consumer *events.Consumer

	if len(cfg.Kafka.Brokers) > 0 {
		producer = events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.UserTopic, cfg.Kafka.AdminTopic, slog.Default())
		defer producer.Close()
		handlers = append(handlers, producer)

		consumer = events.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.AdminTopic, func(context.Context, events.Message) {
			coordinator.Trigger()
		}, slog.Default())
		defer consumer.Close()
	}

	service := bk.NewService(bookingRepo, catalog, events.NewDispatcher(slog.Default(), handlers...), slog.Default())

	// HTTP

	router := gin.Default()
	router.Use(cors.New(corsConfig(cfg.HTTP.CORSOrigins)))

	rateLimit, err := api.RateLimit(cfg.HTTP.RateLimit, redisClient, cfg.Redis.Prefix)
	if err != nil {
		return err
	}
	router.Use(rateLimit)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	adminRoleID := cfg.Discord.AdminRoleID
	auth := api.DiscordAuth(discordClient, adminRoleID)

	// DISCORD API

	api.NewDiscordHandler(discordClient, adminRoleID).Register(router.Group("/api/discord"))

	// BOOKING API

	bookingRouter := router.Group("/api/v1/bookings")
	bookingRouter.Use(auth)
	api.NewBookingHandler(service, coordinator).Register(bookingRouter)

	// DASHBOARD API

	dashboardRouter := router.Group("/api/v1/dashboard")
	dashboardRouter.Use(auth)
	api.NewDashboardHandler(coordinator, localSnapshots).Register(dashboardRouter)

	// NOTIFICATION API

	notificationHandler := api.NewNotificationHandler(notifications, notificationRepo)

	notificationRouter := router.Group("/api/v1/notifications")
	notificationRouter.Use(auth)
	notificationHandler.Register(notificationRouter)

	resourceRouter := router.Group("/api/v1/resources")
	resourceRouter.Use(auth)
	notificationHandler.RegisterResources(resourceRouter)

	server := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", "address", cfg.HTTP.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	notifications.Start(gctx)
	g.Go(func() error {
		notifications.Wait()
		return nil
	})

	g.Go(func() error {
		return coordinator.Run(gctx)
	})

	if consumer != nil {
		g.Go(func() error {
			return consumer.Run(gctx)
		})
	}

	g.Go(func() error {
		return completeElapsed(gctx, service, cfg.Booking.CompleteEvery, logger)
	})

	return g.Wait()
}

// completeElapsed moves approved bookings whose end date has passed to
// completed, once at start and then on every tick.
func completeElapsed(ctx context.Context, service *bk.Service, every time.Duration, logger *slog.Logger) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		count, err := service.CompleteElapsed(ctx, time.Now())

		if err != nil {
			logger.Warn("failed to complete elapsed bookings", "err", err)
		} else if count > 0 {
			logger.Info("completed elapsed bookings", "count", count)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "accesstoken")

	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}

	return cfg
}
