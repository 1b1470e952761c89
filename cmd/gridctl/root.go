package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/arnavshah/timesheet-grid-go/pkg/api"
	"github.com/arnavshah/timesheet-grid-go/pkg/config"
	"github.com/arnavshah/timesheet-grid-go/pkg/session"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	APIURL   string
	Username string
	Password string
	Token    string
	LogLevel string
}

// env supplies the configuration; tests replace it
var env = config.Load

func newRootCmd() *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:           "gridctl",
		Short:         "Edit a department's monthly attendance grid",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.APIURL, "api-url", "", "API base URL (overrides TIMESHEET_API_URL)")
	cmd.PersistentFlags().StringVar(&opts.Username, "username", "", "login name (overrides TIMESHEET_USERNAME)")
	cmd.PersistentFlags().StringVar(&opts.Password, "password", "", "login password (overrides TIMESHEET_PASSWORD)")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", "", "pre-issued bearer token (overrides TIMESHEET_TOKEN)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	cmd.AddCommand(newScriptCmd(&opts))
	cmd.AddCommand(newExportCmd(&opts))
	cmd.AddCommand(newDepartmentsCmd(&opts))
	return cmd
}

// setup resolves the configuration and builds the client and logger
func setup(opts *rootOptions) (*config.Config, *api.Client, *logrus.Logger, error) {
	cfg, err := env()
	if err != nil {
		return nil, nil, nil, err
	}
	if opts.APIURL != "" {
		cfg.APIURL = opts.APIURL
	}
	if opts.Username != "" {
		cfg.Username = opts.Username
	}
	if opts.Password != "" {
		cfg.Password = opts.Password
	}
	if opts.Token != "" {
		cfg.Token = opts.Token
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	log, err := cfg.Logger()
	if err != nil {
		return nil, nil, nil, err
	}

	clientOpts := []api.Option{
		api.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		api.WithLogger(log),
	}
	if cfg.Token != "" {
		clientOpts = append(clientOpts, api.WithToken(cfg.Token))
	}
	if cfg.Username != "" {
		clientOpts = append(clientOpts, api.WithCredentials(cfg.Username, cfg.Password))
	}
	return cfg, api.New(cfg.APIURL, clientOpts...), log, nil
}

func newSession(opts *rootOptions) (*config.Config, *session.Session, *api.Client, error) {
	cfg, client, log, err := setup(opts)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, session.New(client, session.WithLogger(log)), client, nil
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
