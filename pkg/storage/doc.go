/*
Package storage provides the persistence backends for chacrab vault data.

The Repository interface is the only surface the vault service and sync
engine see. Three production backends implement it (SQLite, PostgreSQL,
MongoDB) plus an in-memory repository used by tests and as a sync fixture.

All backends store the same logical schema:

	vault_items      one row/document per item; 12-byte binary nonce,
	                 ciphertext blob, plaintext metadata columns
	sync_tombstones  deletion receipts keyed by item id
	auth             single-row master-password material
	schema_meta      schema version marker written by Init

The SQLite, PostgreSQL, and MongoDB backends validate the nonce length on
every read and surface a malformed nonce as a storage error rather than
handing corrupt data to the crypto layer; the in-memory repository returns
items exactly as they were stored. Driver errors are wrapped into errdefs.ErrStorage so raw driver
messages never reach user-visible output.
*/
package storage
