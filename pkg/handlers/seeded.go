package handlers

import (
	"github.com/arnavshah/timesheet-grid-go/pkg/auth"
	"github.com/arnavshah/timesheet-grid-go/pkg/store"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DevSecret signs tokens when no JWT_SECRET is configured
const DevSecret = "timesheet-dev-secret"

// NewSeeded builds a handler over a demo store whose accounts share password
func NewSeeded(secret, password string, log logrus.FieldLogger) (*Handler, error) {
	if secret == "" {
		if log != nil {
			log.Warn("JWT_SECRET not set, using the development secret")
		}
		secret = DevSecret
	}
	hash, err := auth.HashPassword(password, 0)
	if err != nil {
		return nil, errors.Wrap(err, "hash seed password")
	}
	s := store.New()
	store.Seed(s, hash)
	return &Handler{Store: s, Issuer: auth.NewIssuer(secret), Log: log}, nil
}
