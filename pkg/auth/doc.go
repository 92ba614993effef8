// Package auth implements vault registration, login, and logout on top of
// the crypto primitives and the session-key store.
package auth
