package registrycaller

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
)

// MintSelf mints a credential owned by this contract.
func MintSelf(registry interop.Hash160, score int, profile string) int {
	return contract.Call(registry, "mint", contract.All,
		runtime.GetExecutingScriptHash(), score, profile, "").(int)
}

// MintFor tries to mint a credential for the given owner.
func MintFor(registry interop.Hash160, owner interop.Hash160, score int) int {
	return contract.Call(registry, "mint", contract.All, owner, score, "", "").(int)
}

// RaiseSelf updates the score of the credential owned by this contract.
func RaiseSelf(registry interop.Hash160, score int) {
	contract.Call(registry, "updateScore", contract.All, runtime.GetExecutingScriptHash(), score)
}

// CheckOwner reports whether the owner holds a credential with at least
// minScore.
func CheckOwner(registry interop.Hash160, owner interop.Hash160, minScore int) bool {
	ok := contract.Call(registry, "verifyOwnership", contract.ReadOnly, owner).(bool)
	if ok {
		rep := contract.Call(registry, "getReputation", contract.ReadOnly, owner).([]any)
		ok = rep[1].(int) >= minScore
	}

	return ok
}
