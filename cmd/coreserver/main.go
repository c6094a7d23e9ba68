// Copyright 2025 Certen Protocol
//
// Entrypoint: wires config -> signing key -> store -> genesis -> migration
// registry -> dispatcher -> consensus bridge -> CometBFT node. Grounded on
// the teacher's root main.go for the overall wiring order (load config,
// open db, construct the application, start the node) and on
// _examples/certenIO-certen-validator/pkg/consensus/bft_integration.go's
// NewRealCometBFTEngine for the CometBFT bootstrap calls themselves
// (privval.LoadFilePV, p2p.LoadNodeKey, node.NewNode,
// proxy.NewLocalClientCreator) — simplified and scoped down to this
// core's actual surface rather than imitating the teacher's 1500-line
// multi-chain wiring structurally.

package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtcfg "github.com/cometbft/cometbft/config"
	dbm "github.com/cometbft/cometbft-db"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/node"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
	"github.com/cometbft/cometbft/proxy"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/manifest-network/manifest-core/pkg/account"
	"github.com/manifest-network/manifest-core/pkg/address"
	"github.com/manifest-network/manifest-core/pkg/config"
	"github.com/manifest-network/manifest-core/pkg/consensus"
	"github.com/manifest-network/manifest-core/pkg/corelog"
	"github.com/manifest-network/manifest-core/pkg/dispatcher"
	"github.com/manifest-network/manifest-core/pkg/eventlog"
	"github.com/manifest-network/manifest-core/pkg/genesis"
	"github.com/manifest-network/manifest-core/pkg/introspection"
	"github.com/manifest-network/manifest-core/pkg/ledger"
	"github.com/manifest-network/manifest-core/pkg/migration"
	"github.com/manifest-network/manifest-core/pkg/modules/idstore"
	"github.com/manifest-network/manifest-core/pkg/modules/kvstore"
	"github.com/manifest-network/manifest-core/pkg/modules/web"
	"github.com/manifest-network/manifest-core/pkg/store"
	"github.com/manifest-network/manifest-core/pkg/verifier"
)

// serverName/version are the identity status() reports; version is
// overridable at build time via -ldflags.
const serverName = "manifest-core"

var version = "dev"

// tokenMethods lists the tokens.* method surface gated as a whole by the
// token-migration activation height (spec §4.7/§4.12).
var tokenMethods = []string{
	"tokens.create", "tokens.info", "tokens.update",
	"tokens.addExtendedInfo", "tokens.removeExtendedInfo",
	"tokens.mint", "tokens.burn",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	log := corelog.New("coreserver", corelog.ParseLevel(cfg.LogLevel), os.Stdout)

	signerKey, err := loadOrGenerateEd25519Key(cfg.Ed25519KeyPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load signing key")
	}
	signer := verifier.Ed25519Signer{Key: signerKey}
	cosePub, err := signer.Address()
	if err != nil {
		log.Fatal().Err(err).Msg("derive signer cose key")
	}
	selfAddress := address.FromPublicKeyCOSE(cosePub)
	log.Info().Str("address", address.Textual(selfAddress)).Msg("signing identity")

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		log.Fatal().Err(err).Msg("create data directory")
	}

	cometGenesis, err := cmttypes.GenesisDocFromFile(cfg.GenesisPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load genesis document")
	}
	appState, err := genesis.Parse(cometGenesis.AppState)
	if err != nil {
		log.Fatal().Err(err).Msg("parse app_state genesis document")
	}
	tokenAuthority, err := address.Parse(appState.TokenIdentity)
	if err != nil {
		log.Fatal().Err(err).Msg("parse token_identity")
	}
	moduleIdentity, err := address.Parse(appState.AccountIdentity)
	if err != nil {
		log.Fatal().Err(err).Msg("parse account_identity")
	}

	appDB, err := dbm.NewDB("application", dbm.GoLevelDBBackend, cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("open application database")
	}
	s, err := store.Open(store.NewKVAdapter(appDB))
	if err != nil {
		log.Fatal().Err(err).Msg("open persistent store")
	}

	eventLog, err := eventlog.NewLog(s)
	if err != nil {
		log.Fatal().Err(err).Msg("open event log")
	}

	migrations := migration.BuildRegistry(migration.Heights(cfg.MigrationHeights), tokenMethods)
	if err := migrations.ValidateConfigured(cfg.ConfiguredMigrations); err != nil {
		log.Fatal().Err(err).Msg("validate configured migrations")
	}

	verifiers := verifier.NewSet(
		verifier.Ed25519Verifier{Resolve: verifier.ResolveSelfCertifyingEd25519},
		verifier.ECDSAP256Verifier{Resolve: verifier.ResolveSelfCertifyingECDSAP256},
	)

	reg := dispatcher.NewRegistry(verifiers, migrations,
		dispatcher.WithDuplicateTTL(cfg.DuplicateTTLBlocks),
		dispatcher.WithLogger(corelog.New("dispatcher", corelog.ParseLevel(cfg.LogLevel), os.Stdout)),
	)

	ledger.Register(reg, ledger.Config{
		TokenAuthority: tokenAuthority,
		Migrations:     migrations,
		Events:         eventLog,
	})
	account.Register(reg, account.Config{
		ModuleIdentity: moduleIdentity,
		Migrations:     migrations,
		Events:         eventLog,
	}, reg)
	eventlog.Register(reg)
	kvstore.Register(reg)
	web.Register(reg)
	idstore.RegisterHandlers(reg)

	data := introspection.NewData(reg, migrations)
	chain := introspection.NewBlockchain(cfg.ChainID)
	introspection.Register(reg, data, chain)
	sysInfo := introspection.NewSysInfo(reg, serverName, version, cosePub, selfAddress, cfg.TimestampWindow)
	introspection.RegisterSysInfo(reg, sysInfo)

	seeder := genesis.New(selfAddress)
	app := consensus.New(s, reg, migrations, signer, cfg.ChainID, seeder, corelog.New("consensus", corelog.ParseLevel(cfg.LogLevel), os.Stdout))

	metricsRegistry := prometheus.NewRegistry()
	for _, c := range reg.Collectors() {
		metricsRegistry.MustRegister(c)
	}
	go serveMetrics(cfg.MetricsAddr, metricsRegistry, log)

	cometCfg, err := buildCometConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("build cometbft config")
	}

	n, err := startCometNode(cometCfg, app, log)
	if err != nil {
		log.Fatal().Err(err).Msg("start cometbft node")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutting down")
	if err := n.Stop(); err != nil {
		log.Error().Err(err).Msg("stop cometbft node")
	}
}

// loadOrGenerateEd25519Key mirrors the teacher's own
// loadOrGenerateEd25519Key: a hex-encoded private key file, generated and
// persisted with 0600 permissions on first boot.
func loadOrGenerateEd25519Key(keyPath string) (ed25519.PrivateKey, error) {
	if err := os.MkdirAll(filepath.Dir(keyPath), 0o700); err != nil {
		return nil, fmt.Errorf("create key directory: %w", err)
	}

	if _, err := os.Stat(keyPath); os.IsNotExist(err) {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("generate ed25519 key: %w", err)
		}
		if err := os.WriteFile(keyPath, []byte(hex.EncodeToString(priv)), 0o600); err != nil {
			return nil, fmt.Errorf("save ed25519 key to %s: %w", keyPath, err)
		}
		return priv, nil
	}

	raw, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("read ed25519 key from %s: %w", keyPath, err)
	}
	keyBytes, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("decode ed25519 key from %s: %w", keyPath, err)
	}
	if len(keyBytes) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid ed25519 key size: expected %d, got %d", ed25519.PrivateKeySize, len(keyBytes))
	}
	return ed25519.PrivateKey(keyBytes), nil
}

// buildCometConfig lays out a default CometBFT node config rooted at
// cfg.DataDir, overriding the listen addresses from our own configuration,
// generating the node key and private validator files on first boot.
func buildCometConfig(cfg *config.Config) (*cmtcfg.Config, error) {
	cometCfg := cmtcfg.DefaultConfig()
	cometCfg.SetRoot(cfg.DataDir)
	cmtcfg.EnsureRoot(cometCfg.RootDir)

	cometCfg.RPC.ListenAddress = cfg.RPCAddr
	cometCfg.P2P.ListenAddress = cfg.ListenAddr
	cometCfg.Moniker = cfg.ChainID

	if _, err := os.Stat(cometCfg.NodeKeyFile()); os.IsNotExist(err) {
		if _, err := p2p.LoadOrGenNodeKey(cometCfg.NodeKeyFile()); err != nil {
			return nil, fmt.Errorf("generate node key: %w", err)
		}
	}
	if _, err := os.Stat(cometCfg.PrivValidatorKeyFile()); os.IsNotExist(err) {
		pv := privval.GenFilePV(cometCfg.PrivValidatorKeyFile(), cometCfg.PrivValidatorStateFile())
		pv.Save()
	}

	return cometCfg, nil
}

// startCometNode is the in-process node bootstrap, grounded directly on
// NewRealCometBFTEngine: the node's own private validator and node key, and
// the application wired in via a local client creator (no separate ABCI
// socket/process).
func startCometNode(cometCfg *cmtcfg.Config, app abcitypes.Application, log zerolog.Logger) (*node.Node, error) {
	pv := privval.LoadFilePV(cometCfg.PrivValidatorKeyFile(), cometCfg.PrivValidatorStateFile())
	nodeKey, err := p2p.LoadNodeKey(cometCfg.NodeKeyFile())
	if err != nil {
		return nil, fmt.Errorf("load node key: %w", err)
	}

	tmLogger := cmtlog.NewTMLogger(cmtlog.NewSyncWriter(os.Stdout)).With("module", "cometbft")

	dbProvider := cmtcfg.DBProvider(func(ctx *cmtcfg.DBContext) (dbm.DB, error) {
		return dbm.NewDB(ctx.ID, dbm.BackendType(cometCfg.DBBackend), filepath.Join(cometCfg.RootDir, "data"))
	})

	n, err := node.NewNode(
		cometCfg,
		pv,
		nodeKey,
		proxy.NewLocalClientCreator(app),
		node.DefaultGenesisDocProviderFunc(cometCfg),
		dbProvider,
		node.DefaultMetricsProvider(cometCfg.Instrumentation),
		tmLogger,
	)
	if err != nil {
		return nil, fmt.Errorf("create cometbft node: %w", err)
	}
	if err := n.Start(); err != nil {
		return nil, fmt.Errorf("start cometbft node: %w", err)
	}
	log.Info().Str("listen", cometCfg.P2P.ListenAddress).Str("rpc", cometCfg.RPC.ListenAddress).Msg("cometbft node started")
	return n, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("metrics server")
	}
}
