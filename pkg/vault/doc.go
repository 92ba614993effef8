/*
Package vault implements the business operations over stored items: add,
list, show, update, and delete.

Payloads are serialized to JSON, sealed under the session key with a fresh
nonce per encryption, and wiped from memory on every exit path. Updates bump
the per-item sync_version and append to the bounded audit trail inside the
encrypted payload. Deletion replaces the item with a tombstone whose version
continues the item's sequence, which is what lets two replicas agree that a
deletion supersedes a stale copy.
*/
package vault
