package common

import "github.com/nspcc-dev/neo-go/pkg/interop/runtime"

var (
	// ErrAdminWitnessFailed appears when the method must be called by the
	// registry admin but was not.
	ErrAdminWitnessFailed = "admin witness check failed"
	// ErrOwnerWitnessFailed appears when the method must be called by the
	// owner of the credential but was not.
	ErrOwnerWitnessFailed = "owner witness check failed"
	// ErrWitnessFailed appears when the method must be called
	// using certain account but was not.
	ErrWitnessFailed = "witness check failed"
)

// CheckAdminWitness checks witness of the passed admin account.
// It panics with ErrAdminWitnessFailed message on fail.
func CheckAdminWitness(admin []byte) {
	checkWitnessWithPanic(admin, ErrAdminWitnessFailed)
}

// CheckOwnerWitness checks witness of the passed owner account.
// It panics with ErrOwnerWitnessFailed message on fail.
func CheckOwnerWitness(owner []byte) {
	checkWitnessWithPanic(owner, ErrOwnerWitnessFailed)
}

// CheckWitness checks witness of the passed caller.
// It panics with ErrWitnessFailed message on fail.
func CheckWitness(caller []byte) {
	checkWitnessWithPanic(caller, ErrWitnessFailed)
}

func checkWitnessWithPanic(caller []byte, panicMsg string) {
	if !runtime.CheckWitness(caller) {
		panic(panicMsg)
	}
}
