package main

import (
	"github.com/arnavshah/timesheet-grid-go/pkg/config"
	"github.com/arnavshah/timesheet-grid-go/pkg/handlers"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("could not load config")
	}
	log, err := cfg.Logger()
	if err != nil {
		logrus.WithError(err).Fatal("could not build logger")
	}

	if cfg.GinMode == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	h, err := handlers.NewSeeded(cfg.JWTSecret, cfg.AdminPass, log)
	if err != nil {
		log.WithError(err).Fatal("could not seed store")
	}
	log.WithField("store", h.Store.String()).Info("stub store ready")

	log.Infof("Server starting on port %s", cfg.Port)
	if err := h.Router().Run(":" + cfg.Port); err != nil {
		log.WithError(err).Fatal("could not run server")
	}
}
