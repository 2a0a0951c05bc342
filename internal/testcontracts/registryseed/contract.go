package registryseed

import (
	"github.com/chainrepute/reputation-registry/common"
	"github.com/chainrepute/reputation-registry/contracts/registry/registryconst"
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/management"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
)

// Must match the registry storage layout.
const supplyKey = "supply"

// Version reported to the registry code on Restore. It is newer than the
// current one so that the registry accepts the update.
const restoredFrom = common.Version + 1

// nolint:deadcode,unused
func _deploy(data any, isUpdate bool) {
	if !isUpdate {
		return
	}

	storage.Put(storage.GetContext(), supplyKey, registryconst.MaxTokenID)
	runtime.Log("issuance counter exhausted")
}

// Restore updates the contract back to the given registry code.
func Restore(script []byte, manifest []byte) {
	contract.Call(interop.Hash160(management.Hash), "update",
		contract.All, script, manifest, []any{restoredFrom})
}
