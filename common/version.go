package common

import "github.com/nspcc-dev/neo-go/pkg/interop/native/std"

const (
	major = 0
	minor = 1
	patch = 0

	// The oldest deployment the current code can be updated from. Equal to
	// the current version until the first release that migrates storage.
	prevMajor = 0
	prevMinor = 1
	prevPatch = 0

	// Version is the registry code version packed as major*1e6+minor*1e3+patch.
	Version = major*1_000_000 + minor*1_000 + patch

	// PrevVersion is the packed form of the oldest updatable deployment.
	PrevVersion = prevMajor*1_000_000 + prevMinor*1_000 + prevPatch

	// ErrVersionMismatch is thrown by CheckVersion if the updated deployment
	// is older than PrevVersion.
	ErrVersionMismatch = "previous version mismatch"

	// ErrAlreadyUpdated is thrown by CheckVersion if the updated deployment
	// already runs Version.
	ErrAlreadyUpdated = "contract is already of the latest version"
)

// CheckVersion panics unless a deployment of the given version can be
// updated to the current code.
func CheckVersion(from int) {
	if from < PrevVersion {
		panic(ErrVersionMismatch + ": expected >=" + std.Itoa(PrevVersion, 10))
	}
	if from == Version {
		panic(ErrAlreadyUpdated + ": " + std.Itoa(Version, 10))
	}
}

// AppendVersion appends Version to the update data so that the new code can
// check it in _deploy.
func AppendVersion(data any) []any {
	if data == nil {
		return []any{Version}
	}
	return append(data.([]any), Version)
}
