// Command node runs the dungeon generation coordinator service.
//
// The node holds the authoritative protocol state: the provider roster, the
// batch ledger of encrypted attribute accumulators, and the decryption
// contexts that bind oracle requests to state snapshots. Providers and the
// owner interact over the HTTP API; the decryption oracle delivers results
// on the callback route.
//
// # Capabilities
//
// The homomorphic encryption engine and the decryption oracle are external
// capabilities. This binary wires in the in-process implementations, which
// keep plaintexts in memory and prove results with an HMAC key. With
// --local-oracle the node also fulfills its own decryption requests, so a
// single process demonstrates the full request/callback cycle.
//
// # Persistence
//
// Decryption contexts and revealed results are mirrored into PostgreSQL
// when --postgres is set, or kept in memory otherwise. The mirror is an
// audit trail for frontends and indexers; the coordinator state stays
// authoritative.
//
// # Usage
//
//	go run ./cmd/node --listen-addr=:8080 --owner=6f776e6572
//
// Configuration is read from the environment first (LISTEN_ADDR, OWNER_ADDRESS,
// ORACLE_TOKEN, ...), with flags taking precedence.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/editaylors7/Dungeon-Gen-FHE/api/httpserver"
	"github.com/editaylors7/Dungeon-Gen-FHE/common"
	"github.com/editaylors7/Dungeon-Gen-FHE/crypto"
	"github.com/editaylors7/Dungeon-Gen-FHE/fhe"
	"github.com/editaylors7/Dungeon-Gen-FHE/protocol"
	"github.com/editaylors7/Dungeon-Gen-FHE/services"
)

type nodeConfig struct {
	ListenAddr  string `env:"LISTEN_ADDR" envDefault:":8080"`
	MetricsAddr string `env:"METRICS_ADDR" envDefault:":8090"`
	EnablePprof bool   `env:"ENABLE_PPROF" envDefault:"false"`
	LogJSON     bool   `env:"LOG_JSON" envDefault:"false"`
	LogDebug    bool   `env:"LOG_DEBUG" envDefault:"false"`

	OwnerHex        string `env:"OWNER_ADDRESS"`
	OracleToken     string `env:"ORACLE_TOKEN"`
	ProtocolID      string `env:"PROTOCOL_ID" envDefault:"dungeon-gen-fhe/v1"`
	CooldownSeconds uint64 `env:"COOLDOWN_SECONDS" envDefault:"60"`
	LocalOracle     bool   `env:"LOCAL_ORACLE" envDefault:"false"`

	UsePostgres bool   `env:"USE_POSTGRES" envDefault:"false"`
	PSQLHost    string `env:"PSQL_HOST" envDefault:"localhost"`
	PSQLPort    int    `env:"PSQL_PORT" envDefault:"5432"`
	PSQLUser    string `env:"PSQL_USER" envDefault:"postgres"`
	PSQLPass    string `env:"PSQL_PASSWORD"`
	PSQLDB      string `env:"PSQL_DATABASE" envDefault:"dungeonfhe"`
	PSQLSSLMode string `env:"PSQL_SSLMODE" envDefault:"disable"`
}

func main() {
	var cfg nodeConfig
	if err := env.Parse(&cfg); err != nil {
		slog.Error("failed to parse environment", "err", err)
		os.Exit(1)
	}

	flag.StringVar(&cfg.ListenAddr, "listen-addr", cfg.ListenAddr, "HTTP API listen address")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "metrics listen address (empty disables)")
	flag.BoolVar(&cfg.EnablePprof, "pprof", cfg.EnablePprof, "enable the pprof debugging API")
	flag.BoolVar(&cfg.LogJSON, "log-json", cfg.LogJSON, "log in JSON format")
	flag.BoolVar(&cfg.LogDebug, "log-debug", cfg.LogDebug, "log at debug level")
	flag.StringVar(&cfg.OwnerHex, "owner", cfg.OwnerHex, "protocol owner address (hex, generates if empty)")
	flag.StringVar(&cfg.OracleToken, "oracle-token", cfg.OracleToken, "bearer token for the oracle callback route")
	flag.StringVar(&cfg.ProtocolID, "protocol-id", cfg.ProtocolID, "protocol identity salt for snapshot hashes")
	flag.Uint64Var(&cfg.CooldownSeconds, "cooldown", cfg.CooldownSeconds, "per-provider cooldown in seconds")
	flag.BoolVar(&cfg.LocalOracle, "local-oracle", cfg.LocalOracle, "fulfill decryption requests in-process")
	flag.BoolVar(&cfg.UsePostgres, "postgres", cfg.UsePostgres, "persist the audit trail to PostgreSQL (PSQL_* env)")
	flag.Parse()

	log := newLogger(cfg.LogJSON, cfg.LogDebug)

	owner, err := loadOrGenerateOwner(cfg.OwnerHex)
	if err != nil {
		log.Error("invalid owner address", "err", err)
		os.Exit(1)
	}
	log.Info("Protocol owner", "address", owner.String())

	engine := fhe.NewInMemoryEngine()
	oracle, err := fhe.NewInMemoryOracle(engine)
	if err != nil {
		log.Error("failed to create oracle", "err", err)
		os.Exit(1)
	}

	coord, err := protocol.NewCoordinator(protocol.Config{
		Owner:      owner,
		Cooldown:   time.Duration(cfg.CooldownSeconds) * time.Second,
		ProtocolID: cfg.ProtocolID,
	}, engine, oracle, oracle, log)
	if err != nil {
		log.Error("failed to create coordinator", "err", err)
		os.Exit(1)
	}

	store, err := newStore(&cfg)
	if err != nil {
		log.Error("failed to create store", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	httpCoord, err := services.NewHTTPCoordinator(coord, store, &services.CoordinatorConfig{
		OracleToken: cfg.OracleToken,
		Log:         log,
	})
	if err != nil {
		log.Error("failed to create HTTP coordinator", "err", err)
		os.Exit(1)
	}

	srv, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:               cfg.ListenAddr,
		MetricsAddr:              cfg.MetricsAddr,
		EnablePprof:              cfg.EnablePprof,
		Log:                      log,
		DrainDuration:            5 * time.Second,
		GracefulShutdownDuration: 10 * time.Second,
		ReadTimeout:              15 * time.Second,
		WriteTimeout:             15 * time.Second,
	}, httpCoord)
	if err != nil {
		log.Error("failed to create server", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpCoord.Start(ctx)
	if cfg.LocalOracle {
		runLocalOracle(ctx, log, coord, oracle)
	}
	srv.RunInBackground()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down")
	cancel()
	srv.Shutdown()
}

func newLogger(json, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	log := slog.New(handler).With("service", common.PackageName)
	slog.SetDefault(log)
	return log
}

func loadOrGenerateOwner(hexAddr string) (crypto.Address, error) {
	if hexAddr != "" {
		return crypto.NewAddressFromString(hexAddr)
	}
	handle, err := crypto.NewRandomHandle()
	if err != nil {
		return nil, err
	}
	return crypto.NewAddressFromBytes(handle.Bytes()[:20]), nil
}

func newStore(cfg *nodeConfig) (services.Store, error) {
	if !cfg.UsePostgres {
		return services.NewMemoryStore(), nil
	}
	return services.NewPostgresStore(&services.PostgresConfig{
		Host:     cfg.PSQLHost,
		Port:     cfg.PSQLPort,
		User:     cfg.PSQLUser,
		Password: cfg.PSQLPass,
		Database: cfg.PSQLDB,
		SSLMode:  cfg.PSQLSSLMode,
	})
}

// runLocalOracle fulfills decryption requests in-process so a single node
// exercises the full request/callback cycle without an external decryptor.
func runLocalOracle(ctx context.Context, log *slog.Logger, coord *protocol.Coordinator, oracle *fhe.InMemoryOracle) {
	events := coord.Subscribe(ctx)
	go func() {
		for ev := range events {
			if ev.Kind != protocol.EventDecryptionRequested {
				continue
			}
			values, proof, err := oracle.Fulfill(ev.RequestID)
			if err != nil {
				log.Error("local oracle fulfillment failed", "requestId", string(ev.RequestID), "err", err)
				continue
			}
			revealed, err := coord.OnDecryptionResult(ev.RequestID, values, proof)
			if err != nil {
				log.Error("local oracle delivery rejected", "requestId", string(ev.RequestID), "err", err)
				continue
			}
			log.Info("Decryption fulfilled locally",
				"requestId", string(ev.RequestID),
				"batchId", ev.BatchID,
				"seed", revealed.Seed,
			)
		}
	}()
}
