package commands

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"streamline/internal/api"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var openBrowser bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the flow metrics over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&openBrowser, "open", false, "open the cycle time endpoint of the configured team in a browser")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	rt, err := openDeps()
	if err != nil {
		return err
	}
	defer rt.Close()

	app := api.NewApp("streamline", cfg.App.RequestTimeout, api.RouteConfig{
		Health:  api.NewHealthHandler("streamline", Version, rt.store),
		Metrics: api.NewMetricsHandler(rt.metrics),
	})
	app.Hooks().OnListen(func(data fiber.ListenData) error {
		log.Info().Str("addr", cfg.App.HTTPAddr).Msg("HTTP server listening")
		if openBrowser {
			target := fmt.Sprintf("http://%s/v1/metrics/cycle-time?team=%s", cfg.App.HTTPAddr, url.QueryEscape(cfg.Jira.Team))
			if err := browser.OpenURL(target); err != nil {
				log.Warn().Err(err).Str("url", target).Msg("Failed to open browser")
			}
		}
		return nil
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(cfg.App.HTTPAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down HTTP server")
	return app.ShutdownWithTimeout(10 * time.Second)
}
