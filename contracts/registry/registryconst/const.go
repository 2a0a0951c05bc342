/*
Package registryconst provides constants shared by the registry contract and
its off-chain users.
*/
package registryconst

const (
	// MaxScore is the upper bound of a reputation score, inclusive.
	MaxScore = 1000

	// MaxTokenID is the last token ID the registry can issue.
	MaxTokenID = 1<<63 - 1
)

// Errors thrown by the registry contract. Every message is stable and can be
// matched against the exception of a FAULTed transaction.
const (
	ErrAlreadyInitialized = "registry is already initialized"
	ErrNotInitialized     = "registry is not initialized"
	ErrAlreadyMinted      = "credential is already minted"
	ErrNotFound           = "credential not found"
	ErrInvalidScore       = "invalid score"
	ErrCounterOverflow    = "token counter overflow"
	ErrUnauthorized       = "score decrease is not authorized"
	ErrInvalidAccount     = "invalid account hash"
)

// Notification names.
const (
	MintedEvent       = "Minted"
	ScoreUpdatedEvent = "ScoreUpdated"
	RevokedEvent      = "Revoked"
)
