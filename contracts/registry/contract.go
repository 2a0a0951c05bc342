package registry

import (
	"github.com/chainrepute/reputation-registry/common"
	"github.com/chainrepute/reputation-registry/contracts/registry/registryconst"
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/iterator"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/management"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/std"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
)

// Reputation is a soulbound reputation credential of a single identity.
type Reputation struct {
	TokenID           int
	Score             int
	Profile           string
	ExternalReference string
	CreatedAt         int
}

const (
	reputationPrefix = 'r'

	adminKey  = "admin"
	supplyKey = "supply"

	interopHashLen = 20
)

// nolint:deadcode,unused
func _deploy(data any, isUpdate bool) {
	if isUpdate {
		args := data.([]any)
		common.CheckVersion(args[len(args)-1].(int))
		return
	}

	if data == nil {
		runtime.Log("registry contract deployed, waiting for initialization")
		return
	}

	args := data.([]any)
	if len(args) == 0 {
		runtime.Log("registry contract deployed, waiting for initialization")
		return
	}

	admin := args[0].(interop.Hash160)
	if len(admin) != interopHashLen {
		panic(registryconst.ErrInvalidAccount)
	}

	ctx := storage.GetContext()
	setAdmin(ctx, admin)

	runtime.Log("registry contract initialized")
}

// Update method updates contract source code and manifest. It can be invoked
// only by the registry admin.
func Update(script []byte, manifest []byte, data any) {
	ctx := storage.GetReadOnlyContext()

	common.CheckAdminWitness(requireAdmin(ctx))

	contract.Call(interop.Hash160(management.Hash), "update",
		contract.All, script, manifest, common.AppendVersion(data))
	runtime.Log("registry contract updated")
}

// Initialize sets the registry admin and resets the issuance counter. It can
// be called once per deployment and must be witnessed by the admin itself.
func Initialize(admin interop.Hash160) {
	ctx := storage.GetContext()

	if storage.Get(ctx, adminKey) != nil {
		panic(registryconst.ErrAlreadyInitialized)
	}

	if len(admin) != interopHashLen {
		panic(registryconst.ErrInvalidAccount)
	}

	common.CheckAdminWitness(admin)

	setAdmin(ctx, admin)

	runtime.Log("registry contract initialized")
}

// Mint issues a new credential to the owner and returns its token ID. The
// transaction must be witnessed by the owner.
func Mint(owner interop.Hash160, score int, profile, externalReference string) int {
	ctx := storage.GetContext()

	requireAdmin(ctx)

	if len(owner) != interopHashLen {
		panic(registryconst.ErrInvalidAccount)
	}

	common.CheckOwnerWitness(owner)

	key := reputationKey(owner)
	if storage.Get(ctx, key) != nil {
		panic(registryconst.ErrAlreadyMinted)
	}

	checkScore(score)

	total := common.GetInt(ctx, supplyKey)
	if total >= registryconst.MaxTokenID {
		panic(registryconst.ErrCounterOverflow)
	}

	tokenID := total + 1
	rep := Reputation{
		TokenID:           tokenID,
		Score:             score,
		Profile:           profile,
		ExternalReference: externalReference,
		CreatedAt:         runtime.GetTime(),
	}

	common.SetSerialized(ctx, key, rep)
	storage.Put(ctx, supplyKey, tokenID)

	runtime.Notify(registryconst.MintedEvent, owner, tokenID, score, rep.CreatedAt)

	return tokenID
}

// UpdateScore changes the score of the owner's credential. The admin can set
// any valid score. The owner can only keep or raise its own score.
func UpdateScore(owner interop.Hash160, newScore int) {
	ctx := storage.GetContext()

	admin := requireAdmin(ctx)

	if len(owner) != interopHashLen {
		panic(registryconst.ErrInvalidAccount)
	}

	isAdmin := runtime.CheckWitness(admin)
	if !isAdmin {
		common.CheckOwnerWitness(owner)
	}

	checkScore(newScore)

	rep, ok := getReputation(ctx, owner)
	if !ok {
		panic(registryconst.ErrNotFound)
	}

	oldScore := rep.Score
	if !isAdmin && newScore < oldScore {
		panic(registryconst.ErrUnauthorized)
	}

	rep.Score = newScore
	common.SetSerialized(ctx, reputationKey(owner), rep)

	runtime.Notify(registryconst.ScoreUpdatedEvent, owner, oldScore, newScore)
}

// Revoke removes the owner's credential. It can be invoked only by the
// registry admin. The issuance counter is left intact, so a later mint for
// the same owner receives a new token ID.
func Revoke(owner interop.Hash160) {
	ctx := storage.GetContext()

	common.CheckAdminWitness(requireAdmin(ctx))

	if len(owner) != interopHashLen {
		panic(registryconst.ErrInvalidAccount)
	}

	rep, ok := getReputation(ctx, owner)
	if !ok {
		panic(registryconst.ErrNotFound)
	}

	storage.Delete(ctx, reputationKey(owner))

	runtime.Notify(registryconst.RevokedEvent, owner, rep.TokenID)
}

// GetReputation returns the owner's Reputation structure or nil if there is
// none.
func GetReputation(owner interop.Hash160) any {
	if len(owner) != interopHashLen {
		return nil
	}

	ctx := storage.GetReadOnlyContext()
	data := storage.Get(ctx, reputationKey(owner))
	if data == nil {
		return nil
	}
	return std.Deserialize(data.([]byte))
}

// VerifyOwnership returns true if the owner holds a credential.
func VerifyOwnership(owner interop.Hash160) bool {
	if len(owner) != interopHashLen {
		return false
	}

	ctx := storage.GetReadOnlyContext()
	return storage.Get(ctx, reputationKey(owner)) != nil
}

// TotalIssued returns the number of credentials ever minted. Revocations do
// not decrease it.
func TotalIssued() int {
	ctx := storage.GetReadOnlyContext()
	return common.GetInt(ctx, supplyKey)
}

// GetAdmin returns the registry admin or nil if the registry is not
// initialized yet.
func GetAdmin() interop.Hash160 {
	ctx := storage.GetReadOnlyContext()
	admin := storage.Get(ctx, adminKey)
	if admin == nil {
		return nil
	}
	return admin.(interop.Hash160)
}

// ListOwners returns an iterator over all identities holding a credential.
func ListOwners() iterator.Iterator {
	ctx := storage.GetReadOnlyContext()
	return storage.Find(ctx, []byte{reputationPrefix}, storage.KeysOnly|storage.RemovePrefix)
}

// Version returns the version of the contract.
func Version() int {
	return common.Version
}

func setAdmin(ctx storage.Context, admin interop.Hash160) {
	storage.Put(ctx, adminKey, admin)
	storage.Put(ctx, supplyKey, 0)
}

// requireAdmin returns the stored admin and panics if the registry is not
// initialized.
func requireAdmin(ctx storage.Context) interop.Hash160 {
	admin := storage.Get(ctx, adminKey)
	if admin == nil {
		panic(registryconst.ErrNotInitialized)
	}
	return admin.(interop.Hash160)
}

func checkScore(score int) {
	if score < 0 || score > registryconst.MaxScore {
		panic(registryconst.ErrInvalidScore)
	}
}

func getReputation(ctx storage.Context, owner interop.Hash160) (Reputation, bool) {
	data := storage.Get(ctx, reputationKey(owner))
	if data == nil {
		return Reputation{}, false
	}
	return std.Deserialize(data.([]byte)).(Reputation), true
}

func reputationKey(owner interop.Hash160) []byte {
	return append([]byte{reputationPrefix}, owner...)
}
