package handler

import (
	"net/http"

	"github.com/arnavshah/timesheet-grid-go/pkg/config"
	"github.com/arnavshah/timesheet-grid-go/pkg/handlers"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var r *gin.Engine

func init() {
	// Load .env if it exists (for local testing with vercel dev)
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("could not load config")
	}
	log, err := cfg.Logger()
	if err != nil {
		logrus.WithError(err).Fatal("could not build logger")
	}

	gin.SetMode(gin.ReleaseMode)
	h, err := handlers.NewSeeded(cfg.JWTSecret, cfg.AdminPass, log)
	if err != nil {
		log.WithError(err).Fatal("could not seed store")
	}
	r = h.Router()
}

// Handler is the entry point for Vercel Go Runtime
func Handler(w http.ResponseWriter, req *http.Request) {
	r.ServeHTTP(w, req)
}
