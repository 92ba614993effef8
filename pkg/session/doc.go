/*
Package session custodies the derived vault key between login and logout.

The key lives in the platform secret-storage service under a fixed
service/user identifier, base64 encoded because keyring entries are
string-typed. A second entry in the same service records the last activity
time; EnforceTimeout expires the session once the idle age strictly exceeds
the configured timeout.

Only the outermost entry point should construct the keyring-backed store.
Everything underneath takes a Store value, so tests inject MemoryStore.
*/
package session
