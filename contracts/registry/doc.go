/*
Package registry implements the Reputation Registry contract.

The registry issues soulbound reputation credentials. Every identity holds at
most one credential. A credential is never transferred: it is created by its
owner with Mint, its score is changed with UpdateScore and it is removed by the
registry admin with Revoke. Token IDs are issued from a counter which only
grows, so an ID is never reused even after revocation.

The external reference of a credential is an opaque string naming an account
on another chain. The registry does not verify it.

# Contract updates

Update can be invoked by the registry admin only. The new code receives the
version of the updated deployment as the last element of its _deploy data and
rejects it if it is older than common.PrevVersion or equal to
common.Version. The current release has PrevVersion equal to Version, so an
update succeeds only after the version constants and the VERSION file are
bumped.

# Contract notifications

Minted notification. This notification is produced when a new credential is
issued.

	Minted:
	  - name: owner
	    type: Hash160
	  - name: tokenID
	    type: Integer
	  - name: score
	    type: Integer
	  - name: createdAt
	    type: Integer

ScoreUpdated notification. This notification is produced when the score of an
existing credential is changed, including an update to the same value.

	ScoreUpdated:
	  - name: owner
	    type: Hash160
	  - name: oldScore
	    type: Integer
	  - name: newScore
	    type: Integer

Revoked notification. This notification is produced when the admin removes a
credential.

	Revoked:
	  - name: owner
	    type: Hash160
	  - name: tokenID
	    type: Integer
*/
package registry

/*
Contract storage model.

Current conventions:
 <owner>: 20-byte script hash of the credential holder

# Summary
Key-value storage format:
 - 'admin' -> interop.Hash160
   registry admin set by initialization
 - 'supply' -> int
   number of credentials ever issued, the last issued token ID
 - 'r<owner>' -> std.Serialize(Reputation)
   credential of the owner

# Credentials
Contract stores one Reputation structure per owner. Revocation deletes it.
*/
