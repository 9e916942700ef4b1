package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JamesPrial/mindful-journal/internal/app"
)

const banner = `
           _         _  __       _
 _ __ ___ (_)_ __   __| |/ _|_   _| |
| '_ ' _ \| | '_ \ / _' | |_| | | | |
| | | | | | | | | | (_| |  _| |_| | |
|_| |_| |_|_|_| |_|\__,_|_|  \__,_|_|
`

type serveOptions struct {
	addr      string
	staticDir string
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and front end",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, cleanup, err := root.open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if opts.addr != "" {
				a.Config.Server.Addr = opts.addr
			}
			return runServe(cmd.Context(), a, opts.staticDir, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address (overrides config)")
	cmd.Flags().StringVar(&opts.staticDir, "static", "", "Directory holding the built front end")
	return cmd
}

// runServe serves until ctx is canceled, then shuts down within the
// configured timeout.
func runServe(ctx context.Context, a *app.App, staticDir string, out io.Writer) error {
	ln, err := net.Listen("tcp", a.Config.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Config.Server.Addr, err)
	}

	srv := &http.Server{
		Handler:           a.HTTPServer(staticDir).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	printBanner(out, a, ln.Addr().String(), staticDir)
	a.Logger.Info("starting server",
		zap.String("address", ln.Addr().String()),
		zap.String("data_dir", a.Root.Path()),
		zap.String("backend", a.Config.Storage.Backend),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	a.Logger.Info("server stopped")
	return nil
}

func printBanner(w io.Writer, a *app.App, addr, staticDir string) {
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	gray := color.New(color.FgHiBlack)

	cyan.Fprint(w, banner)
	fmt.Fprintln(w)

	line := func(label, value string) {
		green.Fprint(w, "    ▶ ")
		fmt.Fprintf(w, "%-10s %s\n", label, value)
	}
	line("Data:", a.Root.Path())
	line("Storage:", a.Config.Storage.Backend)
	line("HTTP:", "http://"+addr)
	if a.Metrics != nil {
		line("Metrics:", "http://"+addr+a.Config.Metrics.Path)
	}
	if staticDir == "" {
		staticDir = a.Config.Server.StaticDir
	}
	if staticDir != "" {
		line("Static:", staticDir)
	} else {
		gray.Fprintln(w, "    (no front end directory; API only)")
	}
	fmt.Fprintln(w)
}
