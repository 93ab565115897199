// rustpoold is the pool daemon's entry point: it loads and validates
// configuration, wires up logging, opens the Persistence Gateway and
// Chain Oracle, and runs the Protocol Engine for as long as cfg.NodeRole
// requires. Grounded on original_source/src/main.rs's
// init_config -> init_logging -> run_pool sequence.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	flags "github.com/jessevdk/go-flags"

	"github.com/AndesWebDesign/rustpool/poolcfg"
	"github.com/AndesWebDesign/rustpool/poolchain"
	"github.com/AndesWebDesign/rustpool/poolhash"
	"github.com/AndesWebDesign/rustpool/pooldb"
	"github.com/AndesWebDesign/rustpool/poolmetrics"
	"github.com/AndesWebDesign/rustpool/poolproto"
)

// cliOptions is the single command-line surface this daemon exposes: a
// config file path and an optional log file, rather than a
// flag-per-setting CLI — every other setting belongs in the config
// file or environment.
type cliOptions struct {
	ConfigFile string `short:"c" long:"config_file" description:"Path to configuration file (JSON, YAML, or TOML); defaults and environment only if omitted"`
	LogFile    string `short:"L" long:"logfile" description:"Path to a log file; stdout only if omitted"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var opts cliOptions
	if _, err := flags.Parse(&opts); err != nil {
		if flags.WroteHelp(err) {
			return nil
		}
		return fmt.Errorf("parse flags: %w", err)
	}

	if opts.LogFile != "" {
		if err := initLogRotator(opts.LogFile); err != nil {
			return fmt.Errorf("init log rotator: %w", err)
		}
	}

	cfg, err := poolcfg.Init(opts.ConfigFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	initLogging(cfg)
	runtime.GOMAXPROCS(cfg.Threads)
	rpcdLog.Infof("rustpool starting, node role %s", cfg.NodeRole)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupt
		rpcdLog.Info("received shutdown signal")
		cancel()
	}()

	dataSourceName := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s connect_timeout=%d sslmode=disable",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseName, cfg.DatabaseUser,
		cfg.DatabasePassword, cfg.DatabaseConnectTimeoutSeconds,
	)
	db, err := pooldb.Open(ctx, dataSourceName)
	if err != nil {
		return fmt.Errorf("open persistence gateway: %w", err)
	}
	defer db.Close()

	chain := poolchain.NewClient(
		poolchain.Endpoint{URL: cfg.DaemonRPCURL, Username: cfg.DaemonRPCUser, Password: cfg.DaemonRPCPassword},
		poolchain.Endpoint{URL: cfg.WalletRPCURL, Username: cfg.WalletRPCUser, Password: cfg.WalletRPCPassword},
		time.Duration(cfg.RPCTimeoutSeconds)*time.Second,
	)

	seeds := poolhash.NewSeedCache(poolhash.RandomXFlags{
		FullMemory: cfg.RXUseFullMemory,
		LargePages: cfg.RXUseLargePages,
		SecureFlag: cfg.RXSetSecureFlag,
	})
	defer seeds.Close()

	metrics, registry := poolmetrics.New()
	metricsAddr := fmt.Sprintf("%s:%d", cfg.MetricsListenHost, cfg.MetricsListenPort)
	metricsSrv := &http.Server{Addr: metricsAddr, Handler: poolmetrics.Handler(registry)}
	go func() {
		rpcdLog.Infof("metrics listening on %s", metricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			rpcdLog.Errorf("metrics server stopped: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		metricsSrv.Shutdown(shutdownCtx)
	}()

	engine := poolproto.New(cfg, db, chain, seeds, metrics)
	if err := engine.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("protocol engine stopped: %w", err)
	}

	rpcdLog.Info("rustpool shut down cleanly")
	return nil
}
