package main

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/config"
	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/domain/diagnosis"
	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/domain/patient"
	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/domain/printout"
	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/domain/reporting"
	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/domain/xray"
	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/platform/auth"
	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/platform/blobstore"
	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/platform/db"
	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/platform/events"
	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/platform/middleware"
	"github.com/Sanskrutib0369/Sandhigata-Vata/internal/platform/websocket"
)

type server struct {
	echo     *echo.Echo
	store    *patientStore
	patients *patient.Service
	hub      *websocket.Hub
	closers  []func()
}

func (s *server) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// newPublisher fans diagnosis events out to websocket clients and to Kafka
// when brokers are configured, or to the log otherwise.
func newPublisher(cfg *config.Config, hub *websocket.Hub, logger zerolog.Logger) (events.Publisher, func()) {
	if cfg.KafkaEnabled() {
		kafka := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		return events.Multi{hub, kafka}, func() {
			if err := kafka.Close(); err != nil {
				logger.Warn().Err(err).Msg("closing kafka writer")
			}
		}
	}
	return events.Multi{hub, events.LogPublisher{Logger: logger}}, func() {}
}

func newBlobStore(ctx context.Context, cfg *config.Config) (blobstore.Store, error) {
	if !cfg.MinIOEnabled() {
		return blobstore.NewMemoryStore(), nil
	}
	return blobstore.NewMinIOStore(ctx, blobstore.MinIOConfig{
		Endpoint:  cfg.MinIOEndpoint,
		AccessKey: cfg.MinIOAccessKey,
		SecretKey: cfg.MinIOSecretKey,
		Bucket:    cfg.MinIOBucket,
		UseSSL:    cfg.MinIOUseSSL,
	})
}

func authMiddleware(cfg *config.Config, logger zerolog.Logger) echo.MiddlewareFunc {
	if cfg.IsDev() && cfg.AuthSigningKey == "" {
		logger.Warn().Msg("development mode: DevAuthMiddleware is active, every request gets admin access")
		return auth.DevAuthMiddleware()
	}
	return auth.JWTMiddleware(auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		SigningKey: []byte(cfg.AuthSigningKey),
	})
}

func newServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*server, error) {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	srv := &server{store: st, closers: []func(){st.close}}

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		srv.Close()
		return nil, err
	}

	srv.hub = websocket.NewHub(logger)
	pub, closePub := newPublisher(cfg, srv.hub, logger)
	srv.closers = append(srv.closers, closePub)

	srv.patients = patient.NewService(st.repo, cfg.StorageBudgetBytes, diagnosis.NewNotifier(pub, logger))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	srv.echo = e

	e.Use(middleware.RequestID())
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:  []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
		ExposeHeaders: []string{echo.HeaderContentDisposition, middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout, "/ws"))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(st.backend, st.ping, st.pool))

	authMW := authMiddleware(cfg, logger)

	websocket.NewHandler(srv.hub, cfg.CORSOrigins).RegisterRoutes(e.Group("", authMW))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1 := e.Group("/api/v1", authMW, middleware.RateLimit(rateLimitCfg))

	patient.NewHandler(srv.patients).RegisterRoutes(apiV1)
	diagnosis.NewHandler(srv.patients).RegisterRoutes(apiV1)
	xray.NewHandler(srv.patients, blobs, logger).RegisterRoutes(apiV1)
	printout.NewHandler(srv.patients, blobs, logger).RegisterRoutes(apiV1)
	reporting.NewHandler(st.repo).RegisterRoutes(apiV1)

	return srv, nil
}
