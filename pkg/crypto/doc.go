/*
Package crypto implements the primitives underneath the vault: Argon2id key
derivation, the PHC-string password verifier, ChaCha20-Poly1305 authenticated
encryption, and buffer wiping.

The master password never leaves this package in derived form other than as
the 32-byte vault key. Every encryption draws a fresh random nonce; nonce
reuse under one key is statistically impossible. Failures collapse to the
coarse errdefs.ErrCrypto / errdefs.ErrInvalidCredentials distinction so
callers cannot learn which sub-step rejected an input.
*/
package crypto
