package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chainrepute/reputation-registry/common"
	"github.com/chainrepute/reputation-registry/contracts/registry/registryconst"
)

// Errors returned by the Reputation Registry contract. Use ResolveError to
// map an invocation error onto them.
var (
	ErrAlreadyInitialized = errors.New(registryconst.ErrAlreadyInitialized)
	ErrNotInitialized     = errors.New(registryconst.ErrNotInitialized)
	ErrAlreadyMinted      = errors.New(registryconst.ErrAlreadyMinted)
	ErrNotFound           = errors.New(registryconst.ErrNotFound)
	ErrInvalidScore       = errors.New(registryconst.ErrInvalidScore)
	ErrCounterOverflow    = errors.New(registryconst.ErrCounterOverflow)
	ErrUnauthorized       = errors.New(registryconst.ErrUnauthorized)
	ErrInvalidAccount     = errors.New(registryconst.ErrInvalidAccount)

	// ErrOwnerWitness is returned when the owner did not sign the transaction.
	ErrOwnerWitness = errors.New(common.ErrOwnerWitnessFailed)
	// ErrAdminWitness is returned when the admin did not sign the transaction.
	ErrAdminWitness = errors.New(common.ErrAdminWitnessFailed)
)

// ordered so that no message is a substring of a later one.
var knownErrors = []error{
	ErrAlreadyInitialized,
	ErrNotInitialized,
	ErrAlreadyMinted,
	ErrNotFound,
	ErrInvalidScore,
	ErrCounterOverflow,
	ErrUnauthorized,
	ErrInvalidAccount,
	ErrOwnerWitness,
	ErrAdminWitness,
}

// ResolveError wraps err with the matching registry error if the exception
// text of a failed invocation names one. Other errors are returned as is.
//
//	_, _, err := c.Mint(owner, big.NewInt(500), "", "")
//	if errors.Is(registry.ResolveError(err), registry.ErrAlreadyMinted) {
//		...
//	}
func ResolveError(err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	for _, known := range knownErrors {
		if strings.Contains(msg, known.Error()) {
			return fmt.Errorf("%w: %w", known, err)
		}
	}

	return err
}

// FaultError converts the exception of a FAULTed invocation into an error
// resolved with ResolveError. Empty exception produces nil.
func FaultError(exception string) error {
	if exception == "" {
		return nil
	}
	return ResolveError(errors.New(exception))
}
