package secureoverlay

import "errors"

// Sentinel errors for the secure overlay, grouped by the error kinds
// spec §7 names. IdentityMismatch is fatal at construction (returned by
// NewOverlay, never panicked — Go has no process-fatal exception
// convention); there is no CryptoInit error, as Go's standard crypto
// packages need no global initialization. Policy rejections come from
// the underlying DHT (internal/kademlia's ErrPolicyRejected). In the
// receive pipeline a value that fails decryption or verification is
// logged and dropped, and processing continues.
var (
	// ────────────────────────────────────────────────────────────────
	// Construction errors
	// ────────────────────────────────────────────────────────────────

	// ErrIdentityMismatch means the supplied certificate and private key
	// disagree on their public-key id.
	ErrIdentityMismatch = errors.New("secureoverlay: certificate and private key disagree")

	// ErrNoDHT means NewOverlay was called without an underlying DHT.
	ErrNoDHT = errors.New("secureoverlay: no underlying dht supplied")

	// ────────────────────────────────────────────────────────────────
	// Value pipeline errors
	// ────────────────────────────────────────────────────────────────

	// ErrDecryptFailed means a cyphertext could not be recovered (wrong
	// key, tampered data, bad padding).
	ErrDecryptFailed = errors.New("secureoverlay: decryption failed")

	// ErrSignatureInvalid means a value's signature did not verify.
	ErrSignatureInvalid = errors.New("secureoverlay: signature invalid")

	// ErrCertificateUnresolved means findCertificate exhausted every
	// source without finding the requested node's certificate.
	ErrCertificateUnresolved = errors.New("secureoverlay: certificate unresolved")

	// ErrAlreadyEncrypted means sign or encrypt was called on a value
	// that is already encrypted (spec §4.E: both fail in that case).
	ErrAlreadyEncrypted = errors.New("secureoverlay: value is already encrypted")

	// ErrNotEncrypted means decrypt was called on a value that carries
	// no cyphertext.
	ErrNotEncrypted = errors.New("secureoverlay: value is not encrypted")

	// ErrNoIdentity means an operation that requires a local private key
	// (sign, encrypt, decrypt, putSigned, putEncrypted) was attempted on
	// an Overlay constructed without an Identity.
	ErrNoIdentity = errors.New("secureoverlay: overlay has no local identity")
)
