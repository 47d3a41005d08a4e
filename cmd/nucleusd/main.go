package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"nucleusd/internal/core"
	"nucleusd/internal/httpapi"
	"nucleusd/pkg/version"

	// Builtin plugins register themselves at init.
	_ "nucleusd/internal/plugin/plugins/pulse"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configFile  string
		watchConfig bool
		addr        string
	)

	root := &cobra.Command{
		Use:           "nucleusd",
		Short:         "Modular application host: managers, event bus, task pool, plugins",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	run := &cobra.Command{
		Use:   "run",
		Short: "Run the host until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHost(configFile, watchConfig, addr)
		},
	}
	run.Flags().StringVarP(&configFile, "config", "c", os.Getenv("NUCLEUS_CONFIG"),
		"Config file (YAML, JSON, or TOML; defaults NUCLEUS_CONFIG)")
	run.Flags().BoolVar(&watchConfig, "watch-config", false,
		"Reload the config file on change")
	run.Flags().StringVar(&addr, "addr", "",
		"Ops HTTP listen address; overrides http.addr")
	root.AddCommand(run)

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	})

	return root
}

func runHost(configFile string, watchConfig bool, addr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := core.New(core.Options{
		ConfigFile:  configFile,
		ConfigWatch: watchConfig,
	})
	if err := app.Initialize(ctx); err != nil {
		return err
	}

	log := app.Logger("main")
	s := app.Config().Settings().HTTP
	if addr != "" {
		s.Addr = addr
		s.Enabled = true
	}
	if s.Enabled {
		httpapi.SetLogger(app.Logger("httpapi"))
		srv := &http.Server{
			Addr:    s.Addr,
			Handler: httpapi.NewMux(app, app.Monitor().Gatherer()),
		}
		go func() {
			log.Info().Str("addr", s.Addr).Msg("ops surface listening")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("ops surface failed")
			}
		}()
		go func() {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				log.Warn().Err(err).Msg("ops surface shutdown")
			}
		}()
	}

	return app.Run(ctx)
}
