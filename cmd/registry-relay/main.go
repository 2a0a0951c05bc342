package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/chainrepute/reputation-registry/relay"
	"github.com/chainrepute/reputation-registry/rpc/registry"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/invoker"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	neoRPCEndpoint := flag.String("rpc", "", "WebSocket address of the Neo RPC server (e.g. ws://localhost:30333/ws)")
	contract := flag.String("contract", "", "Registry contract address or LE hash")
	metricsAddr := flag.String("metrics", "", "Listen address of the Prometheus metrics endpoint (disabled if omitted)")
	debug := flag.Bool("debug", false, "Enable debug logs")

	flag.Parse()

	switch {
	case *neoRPCEndpoint == "":
		log.Fatal("missing Neo RPC endpoint")
	case *contract == "":
		log.Fatal("missing registry contract")
	}

	contractHash, err := parseContract(*contract)
	if err != nil {
		log.Fatal(err)
	}

	cfg := zap.NewProductionConfig()
	if *debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		log.Fatal(fmt.Errorf("init logger: %w", err))
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err = run(ctx, logger, *neoRPCEndpoint, contractHash, *metricsAddr)
	if err != nil {
		logger.Fatal("registry relay failed", zap.Error(err))
	}
}

func parseContract(s string) (util.Uint160, error) {
	h, err := address.StringToUint160(s)
	if err == nil {
		return h, nil
	}
	h, err = util.Uint160DecodeStringLE(s)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("contract is neither an address nor a hash: %s", s)
	}
	return h, nil
}

func run(ctx context.Context, logger *zap.Logger, endpoint string, contract util.Uint160, metricsAddr string) error {
	c, err := rpcclient.NewWS(ctx, endpoint, rpcclient.WSOptions{
		Options: rpcclient.Options{
			DialTimeout:    15 * time.Second,
			RequestTimeout: 15 * time.Second,
		},
	})
	if err != nil {
		return fmt.Errorf("RPC client dial: %w", err)
	}
	defer c.Close()

	reg := prometheus.NewRegistry()
	metrics := relay.NewMetrics(reg)

	if metricsAddr != "" {
		srv := &http.Server{
			Addr:              metricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("serving metrics", zap.String("address", metricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	return relay.Listen(ctx, relay.Prm{
		Logger:     logger,
		Subscriber: c,
		Contract:   contract,
		Handler: &logHandler{
			logger: logger,
			reader: registry.NewReader(invoker.New(c, nil), contract),
		},
		Metrics: metrics,
	})
}

// logHandler writes registry events into the log along with the current
// state of the credential.
type logHandler struct {
	logger *zap.Logger
	reader *registry.ContractReader
}

func (x *logHandler) HandleMinted(_ context.Context, ev *registry.MintedEvent, tx util.Uint256) error {
	x.logger.Info("credential minted",
		zap.String("owner", address.Uint160ToString(ev.Owner)),
		zap.Stringer("tokenID", ev.TokenID),
		zap.Stringer("score", ev.Score),
		zap.Stringer("createdAt", ev.CreatedAt),
		zap.Stringer("tx", tx))
	return x.logCurrent(ev.Owner)
}

func (x *logHandler) HandleScoreUpdated(_ context.Context, ev *registry.ScoreUpdatedEvent, tx util.Uint256) error {
	x.logger.Info("score updated",
		zap.String("owner", address.Uint160ToString(ev.Owner)),
		zap.Stringer("old", ev.OldScore),
		zap.Stringer("new", ev.NewScore),
		zap.Stringer("tx", tx))
	return x.logCurrent(ev.Owner)
}

func (x *logHandler) HandleRevoked(_ context.Context, ev *registry.RevokedEvent, tx util.Uint256) error {
	x.logger.Info("credential revoked",
		zap.String("owner", address.Uint160ToString(ev.Owner)),
		zap.Stringer("tokenID", ev.TokenID),
		zap.Stringer("tx", tx))
	return nil
}

func (x *logHandler) logCurrent(owner util.Uint160) error {
	rep, err := x.reader.GetReputation(owner)
	if err != nil {
		return fmt.Errorf("get current reputation: %w", err)
	}
	if rep == nil {
		x.logger.Info("credential is already gone", zap.String("owner", address.Uint160ToString(owner)))
		return nil
	}
	x.logger.Info("current credential",
		zap.String("owner", address.Uint160ToString(owner)),
		zap.Stringer("tokenID", rep.TokenID),
		zap.Stringer("score", rep.Score),
		zap.String("profile", rep.Profile),
		zap.String("externalReference", rep.ExternalReference))
	return nil
}
