package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"hdrconv/internal/daemon"
	"hdrconv/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string
	var noBrowser bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the browser front end",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if value := strings.TrimSpace(bind); value != "" {
				cfg.Server.Bind = value
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			d, err := daemon.New(cfg, logger)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := d.Start(runCtx); err != nil {
				return err
			}
			defer d.Stop()

			out := cmd.OutOrStdout()
			status := d.Status()
			fmt.Fprintf(out, "hdrconv is running at %s\n", status.URL)
			for _, dep := range status.Dependencies {
				if !dep.Available {
					fmt.Fprintln(out, renderStatusLine(dep.Name, statusWarn, dep.Detail, shouldColorize(out)))
				}
			}
			logger.Debug("serve lock held", logging.String("lock_file", status.LockFilePath))
			fmt.Fprintln(out, "Press Ctrl+C to stop.")

			if cfg.Server.OpenBrowser && !noBrowser {
				if err := openInDesktop(status.URL); err != nil {
					logger.Warn("open browser failed", logging.Error(err))
				}
			}

			<-runCtx.Done()
			fmt.Fprintln(out, "Shutting down...")
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Override server.bind (host:port)")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Do not open a browser window")
	return cmd
}
