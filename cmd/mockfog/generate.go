package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mockfogload/internal/config"
	"mockfogload/internal/generator"
	"mockfogload/internal/logging"
	"mockfogload/internal/server"
	"mockfogload/internal/tui"
)

var (
	genAddr string
	genTUI  bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run the generator runtime of a node",
	Long: "generate starts the node-local generator runtime: it accepts generator events on " +
		"POST /config and streams synthetic data to the configured endpoints.",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := settingsFromFlags(cmd)
		if err != nil {
			return err
		}
		addr := genAddr
		if !cmd.Flags().Changed("addr") {
			addr = fmt.Sprintf(":%d", settings.GeneratorPort)
		}
		host, _ := os.Hostname()
		log := slog.Default().With("node", host)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, log)

		reg := generator.NewRegistry(generator.Options{
			Logger: log,
			Client: &http.Client{Timeout: 5 * time.Second},
			Fatal: func(err error) {
				log.Error("generator runtime aborted", "err", err)
				exit(1)
			},
		})
		defer reg.Close()

		srv := server.NewServer(reg, log)
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error { return srv.Start(ctx, addr) })
		if genTUI {
			if !tui.IsTerminal() {
				log.Warn("stdout is not a terminal, status view disabled")
			} else {
				g.Go(func() error {
					err := tui.Run(ctx, "mockfog generator "+host+" "+addr, reg.Snapshot)
					stop()
					return err
				})
			}
		}
		err = g.Wait()
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		log.Info("generator runtime stopped")
		return err
	},
}

func init() {
	f := generateCmd.Flags()
	f.StringVar(&genAddr, "addr", "", "Listen address (defaults to :<generator-port>)")
	f.Int("generator-port", config.DefaultGeneratorPort, "Port of the generator runtime")
	f.BoolVar(&genTUI, "tui", false, "Show a live status table of the generators")
}
