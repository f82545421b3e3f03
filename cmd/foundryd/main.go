package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"curvefoundry/cmd/internal/passphrase"
	"curvefoundry/config"
	"curvefoundry/core"
	"curvefoundry/core/genesis"
	"curvefoundry/crypto"
	"curvefoundry/observability/logging"
	"curvefoundry/observability/metrics"
	"curvefoundry/storage"
)

const (
	operatorPassEnv = "FOUNDRY_OPERATOR_PASS"
	defaultConfig   = "./config.toml"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "init":
		err = runInit(os.Args[2:])
	case "apply":
		err = runApply(os.Args[2:])
	case "inspect":
		err = runInspect(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: foundryd <command> [flags]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  init     apply genesis to a fresh data directory")
	fmt.Fprintln(os.Stderr, "  apply    apply a YAML transaction script")
	fmt.Fprintln(os.Stderr, "  inspect  print a state record as JSON")
	fmt.Fprintln(os.Stderr, "  serve    expose node metrics over HTTP")
}

// daemon bundles what every command needs: configuration, logger and an
// open node.
type daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *storage.LevelDB
	node   *core.Node
	pass   *passphrase.Source
}

func openDaemon(configPath string) (*daemon, error) {
	pass := passphrase.NewSource(operatorPassEnv, "operator keystore")
	cfg, err := config.Load(configPath, config.WithKeystorePassphraseSource(pass.Get))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := logging.New(cfg.LoggerOptions("foundryd"))

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}
	db, err := storage.NewLevelDB(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	rt := &daemon{cfg: cfg, logger: logger, db: db, pass: pass}

	spec, err := rt.genesisSpec()
	if err != nil {
		db.Close()
		return nil, err
	}
	node, err := core.NewNode(db, spec, core.WithLogger(logger), core.WithMetrics(metrics.Foundry()))
	if err != nil {
		db.Close()
		return nil, err
	}
	rt.node = node
	return rt, nil
}

// genesisSpec is only consulted for an empty database. Without a genesis
// file the development genesis is owned by the operator key.
func (rt *daemon) genesisSpec() (*genesis.GenesisSpec, error) {
	chain, err := core.OpenBlockchain(rt.db)
	if err != nil {
		return nil, err
	}
	if chain.Head() != nil {
		return nil, nil
	}
	if rt.cfg.GenesisFile != "" {
		return genesis.LoadGenesisSpec(rt.cfg.GenesisFile)
	}
	pass, err := rt.pass.Get()
	if err != nil {
		return nil, err
	}
	key, err := crypto.LoadFromKeystore(rt.cfg.KeystorePath, pass)
	if err != nil {
		return nil, fmt.Errorf("load operator key: %w", err)
	}
	rt.logger.Warn("no genesis file configured; using development genesis", slog.String("owner", key.Address().Hex()))
	return genesis.DefaultGenesisSpec(key.Address()), nil
}

func (rt *daemon) close() {
	rt.db.Close()
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", defaultConfig, "Path to the foundryd config file")
	fs.Parse(args)

	rt, err := openDaemon(*configPath)
	if err != nil {
		return err
	}
	defer rt.close()

	return printJSON(map[string]interface{}{
		"height":    rt.node.Height(),
		"stateRoot": rt.node.StateRoot().Hex(),
		"registry":  rt.node.RegistryAddress().Hex(),
		"baseAsset": rt.node.BaseAsset().Hex(),
	})
}

func runApply(args []string) error {
	fs := flag.NewFlagSet("apply", flag.ExitOnError)
	configPath := fs.String("config", defaultConfig, "Path to the foundryd config file")
	scriptPath := fs.String("script", "", "YAML transaction script to apply")
	fs.Parse(args)
	if strings.TrimSpace(*scriptPath) == "" {
		return errors.New("-script is required")
	}

	script, err := loadScript(*scriptPath)
	if err != nil {
		return err
	}
	signers, err := unlockSigners(script, func(spec SignerSpec) (string, error) {
		return passphrase.NewSource(spec.PassphraseEnv, "signer keystore "+spec.Keystore).Get()
	})
	if err != nil {
		return err
	}

	rt, err := openDaemon(*configPath)
	if err != nil {
		return err
	}
	defer rt.close()

	receipts, runErr := newScriptRunner(rt.node, signers, rt.logger).run(script)
	if !script.Seal && rt.node.Pending() > 0 {
		// Unsealed transactions would be lost with the process.
		if _, err := rt.node.SealBlock(); err != nil {
			return err
		}
	}
	if err := printJSON(receipts); err != nil {
		return err
	}
	return runErr
}

func runInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	configPath := fs.String("config", defaultConfig, "Path to the foundryd config file")
	namespace := fs.String("ns", "registry", "Record namespace (registry, systems, factory, curve, vault, pool, position, balance)")
	path := fs.String("path", "", "Record path within the namespace")
	fs.Parse(args)

	rt, err := openDaemon(*configPath)
	if err != nil {
		return err
	}
	defer rt.close()

	result, err := rt.node.QueryState(*namespace, *path)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(result.Value))
	return err
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfig, "Path to the foundryd config file")
	fs.Parse(args)

	rt, err := openDaemon(*configPath)
	if err != nil {
		return err
	}
	defer rt.close()
	if rt.cfg.MetricsAddress == "" {
		return errors.New("MetricsAddress is not configured")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              rt.cfg.MetricsAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		rt.logger.Info("metrics server listening", slog.String("address", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
