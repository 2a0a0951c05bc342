package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chainrepute/reputation-registry/deploy"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"go.uber.org/zap"
)

const passwordEnv = "REGISTRY_WALLET_PASSWORD"

func main() {
	neoRPCEndpoint := flag.String("rpc", "", "Network address of the Neo RPC server")
	walletPath := flag.String("wallet", "", "Path to the NEP-6 wallet with the deployer account")
	accAddress := flag.String("address", "", "Address of the deployer account (default account of the wallet if omitted)")
	nefPath := flag.String("nef", "", "Path to the compiled registry contract")
	manifestPath := flag.String("manifest", "", "Path to the registry contract manifest")
	adminAddress := flag.String("admin", "", "Address of the registry admin (registry is left uninitialized if omitted)")
	timeout := flag.Duration("timeout", 2*time.Minute, "Deployment timeout")

	flag.Parse()

	switch {
	case *neoRPCEndpoint == "":
		log.Fatal("missing Neo RPC endpoint")
	case *walletPath == "":
		log.Fatal("missing wallet")
	case *nefPath == "":
		log.Fatal("missing NEF file")
	case *manifestPath == "":
		log.Fatal("missing manifest file")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(fmt.Errorf("init logger: %w", err))
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ctx, cancelTimeout := context.WithTimeout(ctx, *timeout)
	defer cancelTimeout()

	err = run(ctx, logger, *neoRPCEndpoint, *walletPath, *accAddress, *nefPath, *manifestPath, *adminAddress)
	if err != nil {
		logger.Fatal("registry deployment failed", zap.Error(err))
	}
}

func run(ctx context.Context, logger *zap.Logger, endpoint, walletPath, accAddress, nefPath, manifestPath, adminAddress string) error {
	acc, err := openAccount(walletPath, accAddress, os.Getenv(passwordEnv))
	if err != nil {
		return err
	}

	ne, m, err := readContract(nefPath, manifestPath)
	if err != nil {
		return err
	}

	var admin util.Uint160
	if adminAddress != "" {
		admin, err = address.StringToUint160(adminAddress)
		if err != nil {
			return fmt.Errorf("decode admin address: %w", err)
		}
	}

	c, err := rpcclient.New(ctx, endpoint, rpcclient.Options{
		DialTimeout:    15 * time.Second,
		RequestTimeout: 15 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("RPC client dial: %w", err)
	}
	defer c.Close()

	addr, err := deploy.Deploy(ctx, deploy.Prm{
		Logger:       logger,
		Blockchain:   c,
		LocalAccount: acc,
		NEF:          ne,
		Manifest:     m,
		Admin:        admin,
	})
	if err != nil {
		return err
	}

	logger.Info("registry is ready",
		zap.String("address", address.Uint160ToString(addr)),
		zap.String("hash", addr.StringLE()))

	return nil
}

func openAccount(walletPath, accAddress, password string) (*wallet.Account, error) {
	w, err := wallet.NewWalletFromFile(walletPath)
	if err != nil {
		return nil, fmt.Errorf("open wallet: %w", err)
	}
	defer w.Close()

	var acc *wallet.Account
	if accAddress != "" {
		h, err := address.StringToUint160(accAddress)
		if err != nil {
			return nil, fmt.Errorf("decode account address: %w", err)
		}
		acc = w.GetAccount(h)
		if acc == nil {
			return nil, fmt.Errorf("account %s is missing in the wallet", accAddress)
		}
	} else {
		acc = w.GetAccount(w.GetChangeAddress())
		if acc == nil {
			return nil, errors.New("wallet has no default account")
		}
	}

	err = acc.Decrypt(password, w.Scrypt)
	if err != nil {
		return nil, fmt.Errorf("decrypt account %s (password is read from %s): %w", acc.Address, passwordEnv, err)
	}

	return acc, nil
}

func readContract(nefPath, manifestPath string) (nef.File, manifest.Manifest, error) {
	var m manifest.Manifest

	b, err := os.ReadFile(nefPath)
	if err != nil {
		return nef.File{}, m, fmt.Errorf("read NEF file: %w", err)
	}

	ne, err := nef.FileFromBytes(b)
	if err != nil {
		return nef.File{}, m, fmt.Errorf("decode NEF file: %w", err)
	}

	b, err = os.ReadFile(manifestPath)
	if err != nil {
		return nef.File{}, m, fmt.Errorf("read manifest file: %w", err)
	}

	err = json.Unmarshal(b, &m)
	if err != nil {
		return nef.File{}, m, fmt.Errorf("decode manifest file: %w", err)
	}

	return ne, m, nil
}
