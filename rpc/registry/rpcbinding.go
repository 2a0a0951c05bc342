// Package registry contains RPC wrappers for the Reputation Registry contract.
package registry

import (
	"errors"
	"fmt"
	"math/big"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/unwrap"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
)

// RegistryReputation is a contract-specific registry.Reputation type used by its methods.
type RegistryReputation struct {
	TokenID           *big.Int
	Score             *big.Int
	Profile           string
	ExternalReference string
	CreatedAt         *big.Int
}

// MintedEvent represents "Minted" event emitted by the contract.
type MintedEvent struct {
	Owner     util.Uint160
	TokenID   *big.Int
	Score     *big.Int
	CreatedAt *big.Int
}

// ScoreUpdatedEvent represents "ScoreUpdated" event emitted by the contract.
type ScoreUpdatedEvent struct {
	Owner    util.Uint160
	OldScore *big.Int
	NewScore *big.Int
}

// RevokedEvent represents "Revoked" event emitted by the contract.
type RevokedEvent struct {
	Owner   util.Uint160
	TokenID *big.Int
}

// Invoker is used by ContractReader to call various safe methods.
type Invoker interface {
	Call(contract util.Uint160, operation string, params ...any) (*result.Invoke, error)
	CallAndExpandIterator(contract util.Uint160, method string, maxItems int, params ...any) (*result.Invoke, error)
	TerminateSession(sessionID uuid.UUID) error
	TraverseIterator(sessionID uuid.UUID, iterator *result.Iterator, num int) ([]stackitem.Item, error)
}

// Actor is used by Contract to call state-changing methods.
type Actor interface {
	Invoker

	MakeCall(contract util.Uint160, method string, params ...any) (*transaction.Transaction, error)
	MakeRun(script []byte) (*transaction.Transaction, error)
	MakeUnsignedCall(contract util.Uint160, method string, attrs []transaction.Attribute, params ...any) (*transaction.Transaction, error)
	MakeUnsignedRun(script []byte, attrs []transaction.Attribute) (*transaction.Transaction, error)
	SendCall(contract util.Uint160, method string, params ...any) (util.Uint256, uint32, error)
	SendRun(script []byte) (util.Uint256, uint32, error)
}

// ContractReader implements safe contract methods.
type ContractReader struct {
	invoker Invoker
	hash    util.Uint160
}

// Contract implements all contract methods.
type Contract struct {
	ContractReader
	actor Actor
	hash  util.Uint160
}

// NewReader creates an instance of ContractReader using provided contract hash and the given Invoker.
func NewReader(invoker Invoker, hash util.Uint160) *ContractReader {
	return &ContractReader{invoker, hash}
}

// New creates an instance of Contract using provided contract hash and the given Actor.
func New(actor Actor, hash util.Uint160) *Contract {
	return &Contract{ContractReader{actor, hash}, actor, hash}
}

// GetAdmin invokes `getAdmin` method of contract. Zero hash and false are
// returned if the registry is not initialized.
func (c *ContractReader) GetAdmin() (util.Uint160, bool, error) {
	item, err := unwrap.Item(c.invoker.Call(c.hash, "getAdmin"))
	if err != nil {
		return util.Uint160{}, false, err
	}
	if _, ok := item.(stackitem.Null); ok {
		return util.Uint160{}, false, nil
	}
	u, err := itemToUint160(item)
	if err != nil {
		return util.Uint160{}, false, err
	}
	return u, true, nil
}

// GetReputation invokes `getReputation` method of contract. Nil is returned
// if the owner holds no credential.
func (c *ContractReader) GetReputation(owner util.Uint160) (*RegistryReputation, error) {
	return itemToRegistryReputation(unwrap.Item(c.invoker.Call(c.hash, "getReputation", owner)))
}

// ListOwners invokes `listOwners` method of contract.
func (c *ContractReader) ListOwners() (uuid.UUID, result.Iterator, error) {
	return unwrap.SessionIterator(c.invoker.Call(c.hash, "listOwners"))
}

// ListOwnersExpanded is similar to ListOwners (uses the same contract
// method), but can be useful if the server used doesn't support sessions and
// doesn't expand iterators. It creates a script that will get the specified
// number of result items from the iterator right in the VM and return them to
// you. It's only limited by VM stack and GAS available for RPC invocations.
func (c *ContractReader) ListOwnersExpanded(_numOfIteratorItems int) ([]util.Uint160, error) {
	items, err := unwrap.Array(c.invoker.CallAndExpandIterator(c.hash, "listOwners", _numOfIteratorItems))
	if err != nil {
		return nil, err
	}
	return ItemsToOwners(items)
}

// TotalIssued invokes `totalIssued` method of contract.
func (c *ContractReader) TotalIssued() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "totalIssued"))
}

// VerifyOwnership invokes `verifyOwnership` method of contract.
func (c *ContractReader) VerifyOwnership(owner util.Uint160) (bool, error) {
	return unwrap.Bool(c.invoker.Call(c.hash, "verifyOwnership", owner))
}

// Version invokes `version` method of contract.
func (c *ContractReader) Version() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "version"))
}

// Initialize creates a transaction invoking `initialize` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Initialize(admin util.Uint160) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "initialize", admin)
}

// InitializeTransaction creates a transaction invoking `initialize` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) InitializeTransaction(admin util.Uint160) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "initialize", admin)
}

// InitializeUnsigned creates a transaction invoking `initialize` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) InitializeUnsigned(admin util.Uint160) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "initialize", nil, admin)
}

// Mint creates a transaction invoking `mint` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Mint(owner util.Uint160, score *big.Int, profile string, externalReference string) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "mint", owner, score, profile, externalReference)
}

// MintTransaction creates a transaction invoking `mint` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) MintTransaction(owner util.Uint160, score *big.Int, profile string, externalReference string) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "mint", owner, score, profile, externalReference)
}

// MintUnsigned creates a transaction invoking `mint` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) MintUnsigned(owner util.Uint160, score *big.Int, profile string, externalReference string) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "mint", nil, owner, score, profile, externalReference)
}

// Revoke creates a transaction invoking `revoke` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Revoke(owner util.Uint160) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "revoke", owner)
}

// RevokeTransaction creates a transaction invoking `revoke` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) RevokeTransaction(owner util.Uint160) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "revoke", owner)
}

// RevokeUnsigned creates a transaction invoking `revoke` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) RevokeUnsigned(owner util.Uint160) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "revoke", nil, owner)
}

// Update creates a transaction invoking `update` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Update(script []byte, manifest []byte, data any) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "update", script, manifest, data)
}

// UpdateTransaction creates a transaction invoking `update` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) UpdateTransaction(script []byte, manifest []byte, data any) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "update", script, manifest, data)
}

// UpdateUnsigned creates a transaction invoking `update` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) UpdateUnsigned(script []byte, manifest []byte, data any) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "update", nil, script, manifest, data)
}

// UpdateScore creates a transaction invoking `updateScore` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) UpdateScore(owner util.Uint160, newScore *big.Int) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "updateScore", owner, newScore)
}

// UpdateScoreTransaction creates a transaction invoking `updateScore` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) UpdateScoreTransaction(owner util.Uint160, newScore *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "updateScore", owner, newScore)
}

// UpdateScoreUnsigned creates a transaction invoking `updateScore` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) UpdateScoreUnsigned(owner util.Uint160, newScore *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "updateScore", nil, owner, newScore)
}

// ItemsToOwners converts owner keys returned by `listOwners` into account
// hashes.
func ItemsToOwners(items []stackitem.Item) ([]util.Uint160, error) {
	res := make([]util.Uint160, len(items))
	for i := range items {
		var err error
		res[i], err = itemToUint160(items[i])
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}
	return res, nil
}

func itemToUint160(item stackitem.Item) (util.Uint160, error) {
	b, err := item.TryBytes()
	if err != nil {
		return util.Uint160{}, err
	}
	u, err := util.Uint160DecodeBytesBE(b)
	if err != nil {
		return util.Uint160{}, err
	}
	return u, nil
}

func itemToUTF8String(item stackitem.Item) (string, error) {
	b, err := item.TryBytes()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", errors.New("not a UTF-8 string")
	}
	return string(b), nil
}

// itemToRegistryReputation converts stack item into *RegistryReputation.
// Null item is converted into nil.
func itemToRegistryReputation(item stackitem.Item, err error) (*RegistryReputation, error) {
	if err != nil {
		return nil, err
	}
	if _, ok := item.(stackitem.Null); ok {
		return nil, nil
	}
	var res = new(RegistryReputation)
	err = res.FromStackItem(item)
	return res, err
}

// FromStackItem retrieves fields of RegistryReputation from the given
// [stackitem.Item] or returns an error if it's not possible to do to so.
func (res *RegistryReputation) FromStackItem(item stackitem.Item) error {
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 5 {
		return errors.New("wrong number of structure elements")
	}

	var (
		index = -1
		err   error
	)
	index++
	res.TokenID, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field TokenID: %w", err)
	}

	index++
	res.Score, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field Score: %w", err)
	}

	index++
	res.Profile, err = itemToUTF8String(arr[index])
	if err != nil {
		return fmt.Errorf("field Profile: %w", err)
	}

	index++
	res.ExternalReference, err = itemToUTF8String(arr[index])
	if err != nil {
		return fmt.Errorf("field ExternalReference: %w", err)
	}

	index++
	res.CreatedAt, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field CreatedAt: %w", err)
	}

	return nil
}

// MintedEventsFromApplicationLog retrieves a set of all emitted events
// with "Minted" name from the provided [result.ApplicationLog].
func MintedEventsFromApplicationLog(log *result.ApplicationLog) ([]*MintedEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*MintedEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "Minted" {
				continue
			}
			event := new(MintedEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize MintedEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to MintedEvent or
// returns an error if it's not possible to do to so.
func (e *MintedEvent) FromStackItem(item *stackitem.Array) error {
	if item == nil {
		return errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 4 {
		return errors.New("wrong number of structure elements")
	}

	var (
		index = -1
		err   error
	)
	index++
	e.Owner, err = itemToUint160(arr[index])
	if err != nil {
		return fmt.Errorf("field Owner: %w", err)
	}

	index++
	e.TokenID, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field TokenID: %w", err)
	}

	index++
	e.Score, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field Score: %w", err)
	}

	index++
	e.CreatedAt, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field CreatedAt: %w", err)
	}

	return nil
}

// ScoreUpdatedEventsFromApplicationLog retrieves a set of all emitted events
// with "ScoreUpdated" name from the provided [result.ApplicationLog].
func ScoreUpdatedEventsFromApplicationLog(log *result.ApplicationLog) ([]*ScoreUpdatedEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*ScoreUpdatedEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "ScoreUpdated" {
				continue
			}
			event := new(ScoreUpdatedEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize ScoreUpdatedEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to ScoreUpdatedEvent or
// returns an error if it's not possible to do to so.
func (e *ScoreUpdatedEvent) FromStackItem(item *stackitem.Array) error {
	if item == nil {
		return errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 3 {
		return errors.New("wrong number of structure elements")
	}

	var (
		index = -1
		err   error
	)
	index++
	e.Owner, err = itemToUint160(arr[index])
	if err != nil {
		return fmt.Errorf("field Owner: %w", err)
	}

	index++
	e.OldScore, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field OldScore: %w", err)
	}

	index++
	e.NewScore, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field NewScore: %w", err)
	}

	return nil
}

// RevokedEventsFromApplicationLog retrieves a set of all emitted events
// with "Revoked" name from the provided [result.ApplicationLog].
func RevokedEventsFromApplicationLog(log *result.ApplicationLog) ([]*RevokedEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*RevokedEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "Revoked" {
				continue
			}
			event := new(RevokedEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize RevokedEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to RevokedEvent or
// returns an error if it's not possible to do to so.
func (e *RevokedEvent) FromStackItem(item *stackitem.Array) error {
	if item == nil {
		return errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 2 {
		return errors.New("wrong number of structure elements")
	}

	var (
		index = -1
		err   error
	)
	index++
	e.Owner, err = itemToUint160(arr[index])
	if err != nil {
		return fmt.Errorf("field Owner: %w", err)
	}

	index++
	e.TokenID, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field TokenID: %w", err)
	}

	return nil
}
