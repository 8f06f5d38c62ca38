package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/getscimly/scimly"
	"github.com/getscimly/scimly/api"
	"github.com/getscimly/scimly/config"
	"github.com/getscimly/scimly/engine"
	"github.com/getscimly/scimly/logger"
	"github.com/getscimly/scimly/persistence"
	"github.com/getscimly/scimly/tenant"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger.InitLogger(cfg.LogLevel)
	defer logger.Log.Sync()

	logger.Log.Info("Starting Scimly Directory Service",
		zap.Int("port", cfg.Port),
		zap.String("db", cfg.DBType),
	)

	repo, err := persistence.NewStore(cfg.DBType, cfg.DSN, cfg.SkipAutoMigrate)
	if err != nil {
		logger.Log.Fatal("failed to initialize repository", zap.Error(err))
	}

	tenants := tenant.NewLoader()
	if cfg.TenantsPath != "" {
		tenants, err = tenant.LoadFile(cfg.TenantsPath)
		if err != nil {
			logger.Log.Fatal("failed to load tenant documents",
				zap.String("path", cfg.TenantsPath),
				zap.Error(err))
		}
	}

	engines := scimly.NewEngines(repo, tenants, engine.Options{
		DefaultPageSize: cfg.DefaultPageSize,
		MaxPageSize:     cfg.MaxPageSize,
	})
	gate := scimly.NewGate(cfg)
	auth := api.NewAuthenticator(cfg.APIKeys, cfg.JWTSecret)

	h := api.NewHandler(engines, gate, tenants, auth)

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	h.RegisterRoutes(e.Group(""))

	logger.Log.Info("Server is starting", zap.Int("port", cfg.Port))
	if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
		logger.Log.Fatal("server failed to start", zap.Error(err))
	}
}
