// Command fieldfinder is the terminal client for the FieldFinder API.
//
// Configuration comes from the environment (or a .env file):
//
//	FIELDFINDER_API_URL     server base URL, default http://localhost:8080
//	FIELDFINDER_TOKEN_FILE  where the login is kept, default in the user config dir
//	LOG_LEVEL               debug | info | warn | error (with --verbose)
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sakif/fieldfinder/internal/appstate"
	"github.com/sakif/fieldfinder/internal/client"
	"github.com/sakif/fieldfinder/internal/config"
	"github.com/sakif/fieldfinder/internal/session"
	"github.com/sakif/fieldfinder/internal/tokenstore"
)

// app is everything a command needs, built once before it runs.
type app struct {
	logger  *slog.Logger
	api     *client.Client
	session *session.Session
	store   *appstate.Store

	out    io.Writer
	errOut io.Writer
	alerts int
}

func (a *app) Alert(message string) {
	a.alerts++
	fmt.Fprintln(a.errOut, "!", message)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{out: os.Stdout, errOut: os.Stderr}
	root := newRootCmd(a)

	if err := root.ExecuteContext(ctx); err != nil {
		// Store actions have already told the user what went wrong.
		if a.alerts == 0 {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "fieldfinder",
		Short:         "Find soccer fields and read what players say about the grass",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(verbose)
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log requests to stderr")

	root.AddCommand(
		newSignupCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newStatusCmd(a),
		newFieldsCmd(a),
		newSearchCmd(a),
		newFieldCmd(a),
		newReviewsCmd(a),
		newCommentsCmd(a),
		newAdminCmd(a),
	)
	return root
}

func (a *app) setup(verbose bool) error {
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}

	level := slog.LevelError
	if verbose {
		level = cfg.LogLevel
	}
	a.logger = slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: level}))

	tokens := tokenstore.NewFile(cfg.TokenFile)
	a.api = client.New(cfg.APIURL, tokens, a.logger)

	a.session = session.New(a.api, tokens, a.logger)
	if err := a.session.Restore(); err != nil {
		a.logger.Warn("could not restore login", slog.String("error", err.Error()))
	}

	a.store = appstate.New(a.api, a, a.logger, appstate.WithGate(a.session))
	return nil
}
