package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"medequip/internal/client/api"
	"medequip/internal/client/config"
	"medequip/internal/client/credstore"
	"medequip/internal/client/dashboard"
	"medequip/internal/client/notify"
	"medequip/internal/shared/logs"
)

// cliEnv is what every command needs: settings, a logger and a dashboard
// bound to the on-disk credential slot.
type cliEnv struct {
	cfg    config.Config
	logger *slog.Logger
	store  *credstore.FileStore
	dash   *dashboard.Dashboard
	out    io.Writer
	format string
}

func newEnv(cmd *cobra.Command, flags *globalFlags) (*cliEnv, error) {
	format, err := parseFormat(flags.output)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(flags.config, flags.config != "")
	if err != nil {
		return nil, err
	}
	if flags.server != "" {
		cfg.Server.URL = strings.TrimRight(flags.server, "/")
	}
	logger, err := logs.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	store, err := credstore.NewFileStore(cfg.Storage.Dir)
	if err != nil {
		return nil, errors.Wrap(err, "open credential store")
	}

	errOut := cmd.ErrOrStderr()
	messages := notify.New(cfg.Messages.TTL, notify.WithObserver(func(m notify.Message, visible bool) {
		if visible {
			fmt.Fprintf(errOut, "[%s] %s\n", m.Kind, m.Text)
		}
	}))
	client := api.New(cfg.Server.URL, cfg.Server.Timeout)
	return &cliEnv{
		cfg:    cfg,
		logger: logger,
		store:  store,
		dash:   dashboard.New(store, client, messages, logger),
		out:    cmd.OutOrStdout(),
		format: format,
	}, nil
}

// workspace resumes the stored session. It is the entry point of every
// command that reads or writes resources.
func (e *cliEnv) workspace(cmd *cobra.Command) (*dashboard.Workspace, error) {
	ws, err := e.dash.Start(cmd.Context())
	if errors.Is(err, dashboard.ErrLoginRequired) {
		return nil, errors.New("not logged in, run 'medequip login'")
	}
	return ws, err
}
