package deploy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/management"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"go.uber.org/zap"
)

// Blockchain groups services provided by particular Neo blockchain network
// that are required for the registry deployment.
type Blockchain interface {
	// RPCActor groups functions needed to compose and send transactions to the
	// blockchain.
	actor.RPCActor

	// GetContractStateByHash returns network state of the smart contract by its
	// address. GetContractStateByHash returns error with 'Unknown contract'
	// substring if requested contract is missing.
	GetContractStateByHash(util.Uint160) (*state.Contract, error)
}

// Prm groups all parameters of the registry deployment procedure.
type Prm struct {
	// Writes progress into the log.
	Logger *zap.Logger

	// Particular Neo blockchain instance to deploy the registry to.
	Blockchain Blockchain

	// Local process account used for transaction signing (must be unlocked).
	// It becomes the sender of the deployment transaction, so the registry
	// address depends on it.
	LocalAccount *wallet.Account

	NEF      nef.File
	Manifest manifest.Manifest

	// Registry admin passed to the contract on deployment. Zero admin deploys
	// the registry uninitialized.
	Admin util.Uint160
}

// Deploy deploys the registry contract to Prm.Blockchain and returns its
// address. If the contract is already deployed from Prm.LocalAccount with the
// same NEF and name, Deploy returns its address without sending anything.
func Deploy(ctx context.Context, prm Prm) (util.Uint160, error) {
	switch {
	case prm.Logger == nil:
		return util.Uint160{}, errors.New("missing logger")
	case prm.Blockchain == nil:
		return util.Uint160{}, errors.New("missing blockchain")
	case prm.LocalAccount == nil:
		return util.Uint160{}, errors.New("missing local account")
	case prm.Manifest.Name == "":
		return util.Uint160{}, errors.New("missing contract name in manifest")
	}

	addr := state.CreateContractHash(prm.LocalAccount.ScriptHash(), prm.NEF.Checksum, prm.Manifest.Name)
	l := prm.Logger.With(zap.String("contract", prm.Manifest.Name), zap.String("address", addr.StringLE()))

	_, err := prm.Blockchain.GetContractStateByHash(addr)
	if err == nil {
		l.Info("contract is already deployed, skip")
		return addr, nil
	}
	if !isErrContractNotFound(err) {
		return util.Uint160{}, fmt.Errorf("get state of the contract by address: %w", err)
	}

	act, err := actor.NewSimple(prm.Blockchain, prm.LocalAccount)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("init transaction sender from local account: %w", err)
	}

	var data any
	if !prm.Admin.Equals(util.Uint160{}) {
		data = []any{prm.Admin}
	}

	if err := ctx.Err(); err != nil {
		return util.Uint160{}, err
	}

	l.Info("sending deployment transaction...")

	txHash, vub, err := management.New(act).Deploy(&prm.NEF, &prm.Manifest, data)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("send deployment transaction: %w", err)
	}

	l.Info("deployment transaction sent, waiting for acceptance...",
		zap.Stringer("tx", txHash), zap.Uint32("vub", vub))

	res, err := act.WaitAny(ctx, vub, txHash)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("wait for deployment transaction %s: %w", txHash.StringLE(), err)
	}

	if !res.VMState.HasFlag(vmstate.Halt) {
		return util.Uint160{}, fmt.Errorf("deployment transaction %s failed with %s: %s",
			txHash.StringLE(), res.VMState, res.FaultException)
	}

	l.Info("contract successfully deployed", zap.Stringer("tx", txHash))

	return addr, nil
}

func isErrContractNotFound(err error) bool {
	return strings.Contains(err.Error(), "Unknown contract")
}
