package registry_test

import (
	"encoding/json"
	"math/big"
	"path"
	"testing"

	"github.com/chainrepute/reputation-registry/common"
	"github.com/chainrepute/reputation-registry/contracts/registry/registryconst"
	rpcregistry "github.com/chainrepute/reputation-registry/rpc/registry"
	"github.com/mr-tron/base58"
	"github.com/nspcc-dev/neo-go/pkg/core/interop/storage"
	"github.com/nspcc-dev/neo-go/pkg/neotest"
	"github.com/nspcc-dev/neo-go/pkg/neotest/chain"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/stretchr/testify/require"
)

const (
	registryPath = "."
	callerPath   = "../../internal/testcontracts/registrycaller"
	seedPath     = "../../internal/testcontracts/registryseed"
)

type registryEnv struct {
	e     *neotest.Executor
	c     *neotest.Contract
	admin neotest.Signer
}

func newExecutor(t *testing.T) *neotest.Executor {
	bc, acc := chain.NewSingle(t)
	return neotest.NewExecutor(t, bc, acc, acc)
}

func compileRegistry(t *testing.T, e *neotest.Executor) *neotest.Contract {
	return neotest.CompileFile(t, e.CommitteeHash, registryPath, "config.yml")
}

// newRegistry deploys the registry initialized with a fresh admin account.
func newRegistry(t *testing.T) *registryEnv {
	e := newExecutor(t)
	admin := e.NewAccount(t)
	c := compileRegistry(t, e)

	e.DeployContract(t, c, []any{admin.ScriptHash()})

	return &registryEnv{e: e, c: c, admin: admin}
}

func (r *registryEnv) invoker(signers ...neotest.Signer) *neotest.ContractInvoker {
	return r.e.NewInvoker(r.c.Hash, signers...)
}

func (r *registryEnv) mint(t *testing.T, owner neotest.Signer, score int64, profile, ref string) int64 {
	total := r.totalIssued(t)
	r.invoker(owner).Invoke(t, total+1, "mint", owner.ScriptHash(), score, profile, ref)
	return total + 1
}

func (r *registryEnv) getReputation(t *testing.T, owner util.Uint160) *rpcregistry.RegistryReputation {
	s, err := r.invoker(r.admin).TestInvoke(t, "getReputation", owner)
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())

	item := s.Pop().Item()
	if _, ok := item.(stackitem.Null); ok {
		return nil
	}

	rep := new(rpcregistry.RegistryReputation)
	require.NoError(t, rep.FromStackItem(item))
	return rep
}

func (r *registryEnv) totalIssued(t *testing.T) int64 {
	s, err := r.invoker(r.admin).TestInvoke(t, "totalIssued")
	require.NoError(t, err)

	v, err := s.Pop().Item().TryInteger()
	require.NoError(t, err)
	return v.Int64()
}

func (r *registryEnv) listOwners(t *testing.T) []util.Uint160 {
	s, err := r.invoker(r.admin).TestInvoke(t, "listOwners")
	require.NoError(t, err)

	iter := s.Pop().Value().(*storage.Iterator)
	owners, err := rpcregistry.ItemsToOwners(iteratorToArray(iter))
	require.NoError(t, err)
	return owners
}

// checkEvent checks the notification emitted by the registry in the
// transaction with the given index.
func (r *registryEnv) checkEvent(t *testing.T, h util.Uint256, index int, name string, params ...any) {
	aer := r.e.GetTxExecResult(t, h)
	require.Less(t, index, len(aer.Events))

	ev := aer.Events[index]
	require.Equal(t, r.c.Hash, ev.ScriptHash)
	require.Equal(t, name, ev.Name)

	arr := ev.Item.Value().([]stackitem.Item)
	require.Equal(t, len(params), len(arr))
	for i := range params {
		expected := stackitem.Make(params[i])
		require.True(t, expected.Equals(arr[i]), "parameter %d: expected %v, got %v", i, expected, arr[i])
	}
}

// contractArtifacts returns NEF and manifest of c as they are passed to
// update.
func contractArtifacts(t *testing.T, c *neotest.Contract) ([]byte, []byte) {
	script, err := c.NEF.Bytes()
	require.NoError(t, err)
	manifest, err := json.Marshal(c.Manifest)
	require.NoError(t, err)
	return script, manifest
}

// getAdmin returns the admin stored in the registry. The contract hands it
// out as a Buffer, so it is compared by bytes.
func getAdmin(t *testing.T, inv *neotest.ContractInvoker) util.Uint160 {
	s, err := inv.TestInvoke(t, "getAdmin")
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())

	b, err := s.Pop().Item().TryBytes()
	require.NoError(t, err)

	h, err := util.Uint160DecodeBytesBE(b)
	require.NoError(t, err)
	return h
}

func iteratorToArray(iter *storage.Iterator) []stackitem.Item {
	stackItems := make([]stackitem.Item, 0)
	for iter.Next() {
		stackItems = append(stackItems, iter.Value())
	}
	return stackItems
}

func externalReference(seed byte) string {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = seed + byte(i)
	}
	return "G" + base58.Encode(raw)
}

func TestRegistry_Deploy(t *testing.T) {
	t.Run("with admin", func(t *testing.T) {
		r := newRegistry(t)
		inv := r.invoker(r.admin)

		require.Equal(t, r.admin.ScriptHash(), getAdmin(t, inv))
		inv.Invoke(t, 0, "totalIssued")
		inv.Invoke(t, common.Version, "version")
		require.Empty(t, r.listOwners(t))
	})

	t.Run("without admin", func(t *testing.T) {
		e := newExecutor(t)
		c := compileRegistry(t, e)
		e.DeployContract(t, c, nil)

		admin := e.NewAccount(t)
		owner := e.NewAccount(t)
		inv := e.NewInvoker(c.Hash, admin)

		inv.Invoke(t, stackitem.Null{}, "getAdmin")
		inv.Invoke(t, 0, "totalIssued")

		e.NewInvoker(c.Hash, owner).InvokeFail(t, registryconst.ErrNotInitialized,
			"mint", owner.ScriptHash(), 100, "", "")
		inv.InvokeFail(t, registryconst.ErrNotInitialized, "updateScore", owner.ScriptHash(), 100)
		inv.InvokeFail(t, registryconst.ErrNotInitialized, "revoke", owner.ScriptHash())

		t.Run("initialize", func(t *testing.T) {
			e.NewInvoker(c.Hash, owner).InvokeFail(t, common.ErrAdminWitnessFailed,
				"initialize", admin.ScriptHash())
			inv.InvokeFail(t, registryconst.ErrInvalidAccount, "initialize", []byte{1, 2, 3})

			inv.Invoke(t, stackitem.Null{}, "initialize", admin.ScriptHash())
			require.Equal(t, admin.ScriptHash(), getAdmin(t, inv))
			inv.Invoke(t, 0, "totalIssued")

			inv.InvokeFail(t, registryconst.ErrAlreadyInitialized, "initialize", admin.ScriptHash())
			e.NewInvoker(c.Hash, owner).InvokeFail(t, registryconst.ErrAlreadyInitialized,
				"initialize", owner.ScriptHash())
			require.Equal(t, admin.ScriptHash(), getAdmin(t, inv))

			e.NewInvoker(c.Hash, owner).Invoke(t, 1, "mint", owner.ScriptHash(), 100, "", "")
		})
	})
}

func TestRegistry_Mint(t *testing.T) {
	r := newRegistry(t)
	alice := r.e.NewAccount(t)
	bob := r.e.NewAccount(t)
	ref := externalReference(1)

	h := r.invoker(alice).Invoke(t, 1, "mint", alice.ScriptHash(), 500, "developer", ref)
	createdAt := int64(r.e.TopBlock(t).Timestamp)
	r.checkEvent(t, h, 0, registryconst.MintedEvent, alice.ScriptHash().BytesBE(), 1, 500, createdAt)

	require.Equal(t, &rpcregistry.RegistryReputation{
		TokenID:           big.NewInt(1),
		Score:             big.NewInt(500),
		Profile:           "developer",
		ExternalReference: ref,
		CreatedAt:         big.NewInt(createdAt),
	}, r.getReputation(t, alice.ScriptHash()))
	require.EqualValues(t, 1, r.totalIssued(t))
	r.invoker(bob).Invoke(t, true, "verifyOwnership", alice.ScriptHash())
	r.invoker(bob).Invoke(t, false, "verifyOwnership", bob.ScriptHash())
	require.Nil(t, r.getReputation(t, bob.ScriptHash()))

	t.Run("second mint for the same owner", func(t *testing.T) {
		r.invoker(alice).InvokeFail(t, registryconst.ErrAlreadyMinted,
			"mint", alice.ScriptHash(), 700, "other", "")

		rep := r.getReputation(t, alice.ScriptHash())
		require.EqualValues(t, 1, rep.TokenID.Int64())
		require.EqualValues(t, 500, rep.Score.Int64())
		require.Equal(t, "developer", rep.Profile)
		require.EqualValues(t, 1, r.totalIssued(t))
	})

	t.Run("without owner witness", func(t *testing.T) {
		r.invoker(alice).InvokeFail(t, common.ErrOwnerWitnessFailed,
			"mint", bob.ScriptHash(), 100, "", "")
		r.invoker(r.admin).InvokeFail(t, common.ErrOwnerWitnessFailed,
			"mint", bob.ScriptHash(), 100, "", "")
		require.Nil(t, r.getReputation(t, bob.ScriptHash()))
	})

	t.Run("invalid score", func(t *testing.T) {
		r.invoker(bob).InvokeFail(t, registryconst.ErrInvalidScore,
			"mint", bob.ScriptHash(), 1001, "", "")
		r.invoker(bob).InvokeFail(t, registryconst.ErrInvalidScore,
			"mint", bob.ScriptHash(), -1, "", "")
		require.Nil(t, r.getReputation(t, bob.ScriptHash()))
		require.EqualValues(t, 1, r.totalIssued(t))
	})

	t.Run("invalid account", func(t *testing.T) {
		r.invoker(bob).InvokeFail(t, registryconst.ErrInvalidAccount,
			"mint", []byte{1, 2, 3}, 100, "", "")
		r.invoker(bob).Invoke(t, stackitem.Null{}, "getReputation", []byte{1, 2, 3})
		r.invoker(bob).Invoke(t, false, "verifyOwnership", []byte{1, 2, 3})
	})

	t.Run("score bounds", func(t *testing.T) {
		carol := r.e.NewAccount(t)
		require.EqualValues(t, 2, r.mint(t, bob, 0, "", ""))
		require.EqualValues(t, 3, r.mint(t, carol, registryconst.MaxScore, "", ""))
		require.EqualValues(t, 0, r.getReputation(t, bob.ScriptHash()).Score.Int64())
		require.EqualValues(t, registryconst.MaxScore, r.getReputation(t, carol.ScriptHash()).Score.Int64())
	})

	t.Run("token IDs are sequential", func(t *testing.T) {
		start := r.totalIssued(t)
		for i := int64(1); i <= 3; i++ {
			acc := r.e.NewAccount(t)
			require.Equal(t, start+i, r.mint(t, acc, 10*i, "", externalReference(byte(i))))
			require.Equal(t, start+i, r.getReputation(t, acc.ScriptHash()).TokenID.Int64())
		}
		require.Equal(t, start+3, r.totalIssued(t))
	})
}

func TestRegistry_UpdateScore(t *testing.T) {
	r := newRegistry(t)
	alice := r.e.NewAccount(t)
	bob := r.e.NewAccount(t)

	r.mint(t, alice, 500, "developer", "")
	createdAt := r.getReputation(t, alice.ScriptHash()).CreatedAt

	t.Run("owner raises own score", func(t *testing.T) {
		h := r.invoker(alice).Invoke(t, stackitem.Null{}, "updateScore", alice.ScriptHash(), 850)
		r.checkEvent(t, h, 0, registryconst.ScoreUpdatedEvent, alice.ScriptHash().BytesBE(), 500, 850)

		rep := r.getReputation(t, alice.ScriptHash())
		require.EqualValues(t, 850, rep.Score.Int64())
		require.EqualValues(t, 1, rep.TokenID.Int64())
		require.Equal(t, createdAt, rep.CreatedAt)
	})

	t.Run("owner keeps the same score", func(t *testing.T) {
		h := r.invoker(alice).Invoke(t, stackitem.Null{}, "updateScore", alice.ScriptHash(), 850)
		r.checkEvent(t, h, 0, registryconst.ScoreUpdatedEvent, alice.ScriptHash().BytesBE(), 850, 850)
	})

	t.Run("owner lowers own score", func(t *testing.T) {
		r.invoker(alice).InvokeFail(t, registryconst.ErrUnauthorized, "updateScore", alice.ScriptHash(), 300)
		require.EqualValues(t, 850, r.getReputation(t, alice.ScriptHash()).Score.Int64())
	})

	t.Run("admin lowers score", func(t *testing.T) {
		h := r.invoker(r.admin).Invoke(t, stackitem.Null{}, "updateScore", alice.ScriptHash(), 300)
		r.checkEvent(t, h, 0, registryconst.ScoreUpdatedEvent, alice.ScriptHash().BytesBE(), 850, 300)

		rep := r.getReputation(t, alice.ScriptHash())
		require.EqualValues(t, 300, rep.Score.Int64())
		require.Equal(t, createdAt, rep.CreatedAt)
		require.Equal(t, "developer", rep.Profile)
	})

	t.Run("admin sets bounds", func(t *testing.T) {
		r.invoker(r.admin).Invoke(t, stackitem.Null{}, "updateScore", alice.ScriptHash(), 0)
		r.invoker(r.admin).Invoke(t, stackitem.Null{}, "updateScore", alice.ScriptHash(), registryconst.MaxScore)
		require.EqualValues(t, registryconst.MaxScore, r.getReputation(t, alice.ScriptHash()).Score.Int64())
	})

	t.Run("invalid score", func(t *testing.T) {
		r.invoker(r.admin).InvokeFail(t, registryconst.ErrInvalidScore, "updateScore", alice.ScriptHash(), 1001)
		r.invoker(alice).InvokeFail(t, registryconst.ErrInvalidScore, "updateScore", alice.ScriptHash(), -5)
		require.EqualValues(t, registryconst.MaxScore, r.getReputation(t, alice.ScriptHash()).Score.Int64())
	})

	t.Run("absent credential", func(t *testing.T) {
		r.invoker(r.admin).InvokeFail(t, registryconst.ErrNotFound, "updateScore", bob.ScriptHash(), 100)
		r.invoker(bob).InvokeFail(t, registryconst.ErrNotFound, "updateScore", bob.ScriptHash(), 100)
	})

	t.Run("stranger", func(t *testing.T) {
		r.invoker(bob).InvokeFail(t, common.ErrOwnerWitnessFailed, "updateScore", alice.ScriptHash(), 1000)
	})

	require.EqualValues(t, 1, r.totalIssued(t))
}

func TestRegistry_Revoke(t *testing.T) {
	r := newRegistry(t)
	alice := r.e.NewAccount(t)
	bob := r.e.NewAccount(t)

	r.mint(t, alice, 500, "", "")
	r.mint(t, bob, 600, "", "")
	require.ElementsMatch(t, []util.Uint160{alice.ScriptHash(), bob.ScriptHash()}, r.listOwners(t))

	r.invoker(alice).InvokeFail(t, common.ErrAdminWitnessFailed, "revoke", alice.ScriptHash())
	require.NotNil(t, r.getReputation(t, alice.ScriptHash()))

	h := r.invoker(r.admin).Invoke(t, stackitem.Null{}, "revoke", alice.ScriptHash())
	r.checkEvent(t, h, 0, registryconst.RevokedEvent, alice.ScriptHash().BytesBE(), 1)

	require.Nil(t, r.getReputation(t, alice.ScriptHash()))
	r.invoker(r.admin).Invoke(t, false, "verifyOwnership", alice.ScriptHash())
	require.EqualValues(t, 2, r.totalIssued(t))
	require.Equal(t, []util.Uint160{bob.ScriptHash()}, r.listOwners(t))

	r.invoker(r.admin).InvokeFail(t, registryconst.ErrNotFound, "revoke", alice.ScriptHash())
	r.invoker(alice).InvokeFail(t, registryconst.ErrNotFound, "updateScore", alice.ScriptHash(), 900)

	t.Run("mint again", func(t *testing.T) {
		require.EqualValues(t, 3, r.mint(t, alice, 100, "", ""))
		rep := r.getReputation(t, alice.ScriptHash())
		require.EqualValues(t, 3, rep.TokenID.Int64())
		require.EqualValues(t, 100, rep.Score.Int64())
		require.EqualValues(t, 3, r.totalIssued(t))
	})
}

func TestRegistry_Update(t *testing.T) {
	r := newRegistry(t)
	alice := r.e.NewAccount(t)

	script, manifest := contractArtifacts(t, r.c)

	r.invoker(alice).InvokeFail(t, common.ErrAdminWitnessFailed, "update", script, manifest, nil)
	r.invoker(r.admin).InvokeFail(t, common.ErrAlreadyUpdated, "update", script, manifest, nil)
}

func TestRegistry_ContractCaller(t *testing.T) {
	r := newRegistry(t)
	alice := r.e.NewAccount(t)
	bob := r.e.NewAccount(t)

	cc := neotest.CompileFile(t, r.e.CommitteeHash, callerPath, path.Join(callerPath, "config.yml"))
	r.e.DeployContract(t, cc, nil)
	inv := r.e.NewInvoker(cc.Hash, alice)

	inv.Invoke(t, 1, "mintSelf", r.c.Hash, 400, "contract")
	rep := r.getReputation(t, cc.Hash)
	require.EqualValues(t, 400, rep.Score.Int64())
	require.Equal(t, "contract", rep.Profile)

	inv.Invoke(t, stackitem.Null{}, "raiseSelf", r.c.Hash, 450)
	inv.InvokeFail(t, registryconst.ErrUnauthorized, "raiseSelf", r.c.Hash, 100)
	inv.InvokeFail(t, registryconst.ErrAlreadyMinted, "mintSelf", r.c.Hash, 10, "")

	inv.InvokeFail(t, common.ErrOwnerWitnessFailed, "mintFor", r.c.Hash, bob.ScriptHash(), 100)
	require.Nil(t, r.getReputation(t, bob.ScriptHash()))

	inv.Invoke(t, true, "checkOwner", r.c.Hash, cc.Hash, 450)
	inv.Invoke(t, false, "checkOwner", r.c.Hash, cc.Hash, 451)
	inv.Invoke(t, false, "checkOwner", r.c.Hash, bob.ScriptHash(), 0)
}

func TestRegistry_Lifecycle(t *testing.T) {
	r := newRegistry(t)
	a := r.e.NewAccount(t)
	b := r.e.NewAccount(t)
	ref := externalReference(7)

	r.invoker(a).Invoke(t, 1, "mint", a.ScriptHash(), 750, "Governor", ref)
	require.EqualValues(t, 1, r.totalIssued(t))

	r.invoker(a).InvokeFail(t, registryconst.ErrAlreadyMinted, "mint", a.ScriptHash(), 600, "Trader", ref)

	r.invoker(a).InvokeFail(t, registryconst.ErrUnauthorized, "updateScore", a.ScriptHash(), 500)
	require.EqualValues(t, 750, r.getReputation(t, a.ScriptHash()).Score.Int64())

	r.invoker(a).Invoke(t, stackitem.Null{}, "updateScore", a.ScriptHash(), 900)
	require.EqualValues(t, 900, r.getReputation(t, a.ScriptHash()).Score.Int64())

	r.invoker(r.admin).Invoke(t, stackitem.Null{}, "updateScore", a.ScriptHash(), 100)
	require.EqualValues(t, 100, r.getReputation(t, a.ScriptHash()).Score.Int64())

	r.invoker(b).InvokeFail(t, registryconst.ErrInvalidScore, "mint", b.ScriptHash(), 1500, "Staker", "GB")
	r.invoker(b).Invoke(t, false, "verifyOwnership", b.ScriptHash())
	require.EqualValues(t, 1, r.totalIssued(t))

	rep := r.getReputation(t, a.ScriptHash())
	require.Equal(t, "Governor", rep.Profile)
	require.Equal(t, ref, rep.ExternalReference)
}

func TestRegistry_CounterOverflow(t *testing.T) {
	r := newRegistry(t)
	alice := r.e.NewAccount(t)
	bob := r.e.NewAccount(t)

	r.mint(t, alice, 500, "", "")

	seed := neotest.CompileFile(t, r.e.CommitteeHash, seedPath, path.Join(seedPath, "config.yml"))
	seedScript, seedManifest := contractArtifacts(t, seed)
	script, manifest := contractArtifacts(t, r.c)

	// the seed code exhausts the counter on update and gives the registry code back
	r.invoker(r.admin).Invoke(t, stackitem.Null{}, "update", seedScript, seedManifest, nil)
	r.invoker(r.admin).Invoke(t, stackitem.Null{}, "restore", script, manifest)
	require.EqualValues(t, int64(registryconst.MaxTokenID), r.totalIssued(t))

	r.invoker(bob).InvokeFail(t, registryconst.ErrCounterOverflow, "mint", bob.ScriptHash(), 100, "", "")
	r.invoker(bob).Invoke(t, false, "verifyOwnership", bob.ScriptHash())
	require.EqualValues(t, int64(registryconst.MaxTokenID), r.totalIssued(t))

	rep := r.getReputation(t, alice.ScriptHash())
	require.EqualValues(t, 1, rep.TokenID.Int64())
	require.EqualValues(t, 500, rep.Score.Int64())

	r.invoker(alice).Invoke(t, stackitem.Null{}, "updateScore", alice.ScriptHash(), 600)
}
