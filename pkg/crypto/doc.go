// Package crypto provides the cryptographic identity primitives the
// secure overlay is built on: RSA key pairs, X.509 certificate chains,
// PKCS#1 v1.5/SHA-512 signatures, block-wise RSA encryption, and
// AES-GCM for callers that need symmetric encryption directly.
//
// # Generating an identity
//
//	id, err := crypto.GenerateIdentity("node-1", nil, crypto.RSADefaultKeySize)
//
// # Signing and verifying
//
//	sig, err := id.PrivateKey.Sign(data)
//	ok, err := id.PrivateKey.Public().Verify(data, sig)
//
// # Certificates
//
// A Certificate derives its InfoHash from its enclosed public key, and
// chains to its issuer through a shared, immutable Certificate pointer.
package crypto
