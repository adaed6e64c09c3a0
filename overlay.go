package secureoverlay

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/dep2p/go-secureoverlay/certstore"
	"github.com/dep2p/go-secureoverlay/pkg/crypto"
	godht "github.com/dep2p/go-secureoverlay/pkg/dht"
	"github.com/dep2p/go-secureoverlay/pkg/hash"
	"github.com/dep2p/go-secureoverlay/pkg/value"
)

// Overlay is the secure DHT facade described in spec §4.E: it wraps an
// underlying pkg/dht.DHT, transparently signing, encrypting, decrypting
// and verifying values on behalf of its owning Identity.
type Overlay struct {
	dht      godht.DHT
	identity *crypto.Identity
	certs    *certstore.Store
	id       hash.InfoHash
	log      *slog.Logger
}

// NewOverlay constructs an Overlay over d, owned by identity (nil for an
// anonymous, read-only instance with a random node id). Construction
// fails for a nil DHT or for identity inconsistency (spec §7: fatal at
// construction); a failure to announce the own certificate is logged,
// not returned.
func NewOverlay(ctx context.Context, d godht.DHT, identity *crypto.Identity, opts ...Option) (*Overlay, error) {
	if d == nil {
		return nil, ErrNoDHT
	}
	cfg := defaultOptions()
	for _, opt := range opts {
		opt(cfg)
	}

	var certID, nodeID hash.InfoHash
	if identity != nil {
		privID, err := crypto.PublicKeyID(identity.PrivateKey.Public())
		if err != nil {
			return nil, err
		}
		cID, err := identity.Certificate.ID()
		if err != nil {
			return nil, err
		}
		if !privID.Equal(cID) {
			return nil, ErrIdentityMismatch
		}
		certID = cID
		nodeID = hash.Of([]byte("node:" + cID.String()))
	} else {
		nodeID = hash.Random()
	}

	var selfCert *crypto.Certificate
	if identity != nil {
		selfCert = identity.Certificate
	}

	o := &Overlay{
		dht:      d,
		identity: identity,
		certs:    certstore.New(certID, selfCert),
		id:       nodeID,
		log:      cfg.logger,
	}

	// The data type itself lets a stored value be replaced; SecureType
	// still requires the replacement of a signed value to keep its owner,
	// carry a valid signature and not regress seq.
	dataType := value.NewType(value.UserDataType, "data")
	dataType.EditPolicy = func(hash.InfoHash, *value.Value, *value.Value, hash.InfoHash, string) bool { return true }
	o.RegisterType(dataType)
	o.RegisterInsecureType(value.NewType(value.CertificateType, "certificate"))
	for _, t := range cfg.extraInsecure {
		o.RegisterInsecureType(t)
	}

	if identity != nil {
		v := value.New(value.CertificateType, identity.Certificate.DER())
		v.ID = 1
		if err := o.dht.Put(ctx, certID, v); err != nil {
			o.log.Warn("failed to announce own certificate", "err", err)
		}
	}

	return o, nil
}

// ID returns this overlay's own node identifier.
func (o *Overlay) ID() hash.InfoHash { return o.id }

// Identity returns the Identity this overlay was constructed with, or
// nil for an anonymous instance.
func (o *Overlay) Identity() *crypto.Identity { return o.identity }

// RegisterType registers t after wrapping its policies with SecureType
// (spec §4.C): a signed value stored under t must carry a valid
// signature, and a replacement of a signed value must keep its owner,
// verify, and not regress seq. Unsigned values are checked only by t's
// own policies.
func (o *Overlay) RegisterType(t value.Type) {
	o.dht.RegisterType(SecureType(t))
}

// RegisterInsecureType registers t unwrapped. Reserved for types that
// cannot be subject to signature enforcement, most prominently
// CERTIFICATE (spec §4.E, §6).
func (o *Overlay) RegisterInsecureType(t value.Type) {
	o.dht.RegisterInsecureType(t)
}

// Put passes v straight through to the underlying DHT (spec §4.E, put).
func (o *Overlay) Put(ctx context.Context, h hash.InfoHash, v *value.Value) error {
	return o.dht.Put(ctx, h, v)
}

// Get wraps onValues in the decryption/verification filter pipeline
// (spec §4.E.filter) before delegating to the underlying DHT.
func (o *Overlay) Get(ctx context.Context, h hash.InfoHash, onValues godht.OnValues, filter value.Filter) error {
	return o.dht.Get(ctx, h, o.wrapOnValues(ctx, onValues, filter), nil)
}

// Listen subscribes with the same wrapping as Get (spec §4.E, listen).
func (o *Overlay) Listen(ctx context.Context, h hash.InfoHash, onValues godht.OnValues, filter value.Filter) (godht.ListenToken, error) {
	return o.dht.Listen(ctx, h, o.wrapOnValues(ctx, onValues, filter), nil)
}

// PutSigned assigns a random id if absent, bumps seq past any prior
// local announcement or any higher self-owned seq observed on the DHT,
// then signs and stores v (spec §4.E, putSigned). The pre-announcement
// Get happens-before sign+put, as required by spec §5's ordering
// guarantee.
func (o *Overlay) PutSigned(ctx context.Context, h hash.InfoHash, v *value.Value) error {
	if o.identity == nil {
		return ErrNoIdentity
	}
	if v.ID == 0 {
		id, err := randomValueID()
		if err != nil {
			return err
		}
		v.ID = id
	}

	if prior, ok := o.dht.GetPut(h, v.ID); ok && v.Seq <= prior.Seq {
		v.Seq = prior.Seq + 1
	}

	selfID, err := crypto.PublicKeyID(o.identity.PrivateKey.Public())
	if err != nil {
		return err
	}

	err = o.dht.Get(ctx, h, func(vals []*value.Value) bool {
		for _, seen := range vals {
			if !seen.Flags.Signed || seen.Owner == nil {
				o.log.Warn("ignoring unsigned prior value during putSigned", "id", v.ID)
				continue
			}
			seenOwnerID, err := crypto.PublicKeyID(seen.Owner)
			if err != nil || !seenOwnerID.Equal(selfID) {
				o.log.Warn("prior value owned by another key during putSigned", "id", v.ID)
				continue
			}
			if seen.Seq >= v.Seq {
				v.Seq = seen.Seq + 1
			}
		}
		return true
	}, value.IDFilter(v.ID))
	if err != nil {
		return err
	}

	if err := o.sign(v); err != nil {
		return err
	}
	return o.dht.Put(ctx, h, v)
}

// PutEncrypted resolves recipientNode's certificate, encrypts v toward
// its public key, and stores the result (spec §4.E, putEncrypted).
// recipientNode is the recipient's certificate id (the InfoHash of its
// public key, under which its certificate is announced), not its DHT
// node id. A random id is assigned to v first if it has none, since the
// id is covered by the inner signature.
func (o *Overlay) PutEncrypted(ctx context.Context, h hash.InfoHash, recipientNode hash.InfoHash, v *value.Value) error {
	if o.identity == nil {
		return ErrNoIdentity
	}
	if v.ID == 0 {
		id, err := randomValueID()
		if err != nil {
			return err
		}
		v.ID = id
	}

	var resolved *crypto.Certificate
	if err := o.certs.FindCertificate(ctx, o.dht, recipientNode, func(cert *crypto.Certificate) {
		resolved = cert
	}); err != nil {
		return err
	}
	if resolved == nil {
		return ErrCertificateUnresolved
	}

	nv, err := o.encrypt(v, resolved.PublicKey())
	if err != nil {
		return err
	}
	return o.dht.Put(ctx, h, nv)
}

// GetCertificate returns the local identity's own certificate for self,
// otherwise a cache hit (spec §4.D).
func (o *Overlay) GetCertificate(nodeID hash.InfoHash) (*crypto.Certificate, bool) {
	return o.certs.GetCertificate(nodeID)
}

// RegisterCertificate unconditionally inserts cert into the certificate
// cache (spec §4.D, second registerCertificate overload).
func (o *Overlay) RegisterCertificate(cert *crypto.Certificate) (*crypto.Certificate, error) {
	return o.certs.RegisterCertificate(cert)
}

// RegisterCertificateBytes parses blob and inserts it, rejecting a
// mismatch between nodeID and the parsed certificate's own id (spec
// §4.D, first registerCertificate overload).
func (o *Overlay) RegisterCertificateBytes(nodeID hash.InfoHash, blob []byte) (*crypto.Certificate, error) {
	return o.certs.RegisterCertificateBytes(nodeID, blob)
}

// FindCertificate asynchronously resolves nodeID's certificate (spec
// §4.D, findCertificate).
func (o *Overlay) FindCertificate(ctx context.Context, nodeID hash.InfoHash, callback func(*crypto.Certificate)) error {
	return o.certs.FindCertificate(ctx, o.dht, nodeID, callback)
}

// SetLocalCertificateStore installs the optional host-provided local
// lookup hook consulted by FindCertificate before it falls back to a DHT
// query (spec §6).
func (o *Overlay) SetLocalCertificateStore(fn certstore.LocalLookup) {
	o.certs.SetLocalCertificateStore(fn)
}

// sign sets v.owner and v.signature under the overlay's own identity
// (spec §4.E, sign). It fails if v is already encrypted.
func (o *Overlay) sign(v *value.Value) error {
	if o.identity == nil {
		return ErrNoIdentity
	}
	if v.Flags.Encrypted {
		return ErrAlreadyEncrypted
	}
	v.Owner = o.identity.PrivateKey.Public()
	v.Flags.Signed = true
	v.Flags.Encrypted = false

	toSign, err := v.GetToSign()
	if err != nil {
		return err
	}
	sig, err := o.identity.PrivateKey.Sign(toSign)
	if err != nil {
		return err
	}
	v.Signature = sig
	return nil
}

// encrypt addresses v to toPK, signs it under the overlay's identity,
// and returns a new opaque value carrying only the cyphertext (spec
// §4.E, encrypt). It fails if v is already encrypted.
func (o *Overlay) encrypt(v *value.Value, toPK crypto.PublicKey) (*value.Value, error) {
	if v.Flags.Encrypted {
		return nil, ErrAlreadyEncrypted
	}
	recipientID, err := crypto.PublicKeyID(toPK)
	if err != nil {
		return nil, err
	}
	v.Recipient = recipientID
	v.Flags.HasRecipient = true

	if err := o.sign(v); err != nil {
		return nil, err
	}

	toEncrypt, err := v.GetToEncrypt()
	if err != nil {
		return nil, err
	}
	cypher, err := toPK.Encrypt(toEncrypt)
	if err != nil {
		return nil, fmt.Errorf("secureoverlay: encrypt: %w", err)
	}

	return &value.Value{
		ID:        v.ID,
		Type:      v.Type,
		Flags:     value.Flags{Encrypted: true, HasRecipient: true},
		Recipient: recipientID,
		Cypher:    cypher,
	}, nil
}

// decrypt recovers the inner signed value from v's cyphertext (spec
// §4.E, decrypt). The caller is responsible for verifying the inner
// signature; decrypt itself only reverses the asymmetric encryption and
// parses the recovered bytes.
func (o *Overlay) decrypt(v *value.Value) (inner *value.Value, ownerID hash.InfoHash, err error) {
	if o.identity == nil {
		return nil, hash.Zero, ErrNoIdentity
	}
	if !v.Flags.Encrypted {
		return nil, hash.Zero, ErrNotEncrypted
	}
	plain, err := o.identity.PrivateKey.Decrypt(v.Cypher)
	if err != nil {
		return nil, hash.Zero, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	return value.ParseSignedPlaintext(plain, v.ID)
}

// wrapOnValues implements the receive-side pipeline of spec §4.E.filter:
// decrypt-and-verify encrypted values, verify signed values, pass plain
// values through — applying the user's filter at each branch and
// delivering all survivors from one underlying batch in a single call.
func (o *Overlay) wrapOnValues(ctx context.Context, onValues godht.OnValues, filter value.Filter) godht.OnValues {
	return func(vals []*value.Value) bool {
		var keep []*value.Value
		for _, v := range vals {
			switch {
			case v.Flags.Encrypted:
				if o.identity == nil {
					continue
				}
				inner, ownerID, err := o.decrypt(v)
				if err != nil {
					o.log.Warn("dropping undecryptable value", "id", v.ID, "err", err)
					continue
				}
				// encrypt addresses values to the recipient's public-key id.
				selfKeyID, err := crypto.PublicKeyID(o.identity.PrivateKey.Public())
				if err != nil || !inner.Flags.HasRecipient || !inner.Recipient.Equal(selfKeyID) {
					continue
				}
				var ownerCert *crypto.Certificate
				if err := o.certs.FindCertificate(ctx, o.dht, ownerID, func(cert *crypto.Certificate) {
					ownerCert = cert
				}); err != nil {
					o.log.Warn("dropping encrypted value: certificate lookup failed",
						"owner", ownerID.ShortString(), "err", err)
					continue
				}
				if ownerCert == nil {
					o.log.Warn("dropping encrypted value with unresolved owner certificate",
						"owner", ownerID.ShortString())
					continue
				}
				inner.Owner = ownerCert.PublicKey()
				toSign, err := inner.GetToSign()
				if err != nil {
					continue
				}
				ok2, err := inner.Owner.Verify(toSign, inner.Signature)
				if err != nil || !ok2 {
					o.log.Warn("dropping encrypted value with invalid inner signature", "id", v.ID)
					continue
				}
				if value.Apply(filter, inner) {
					keep = append(keep, inner)
				}

			case v.Flags.Signed:
				if v.Owner == nil {
					continue
				}
				toSign, err := v.GetToSign()
				if err != nil {
					continue
				}
				ok, err := v.Owner.Verify(toSign, v.Signature)
				if err != nil || !ok {
					o.log.Warn("dropping value with invalid signature", "id", v.ID)
					continue
				}
				if value.Apply(filter, v) {
					keep = append(keep, v)
				}

			default:
				if value.Apply(filter, v) {
					keep = append(keep, v)
				}
			}
		}
		if len(keep) == 0 {
			return true
		}
		return onValues(keep)
	}
}

func randomValueID() (uint64, error) {
	b, err := crypto.RandomBytes(8)
	if err != nil {
		return 0, err
	}
	id := binary.BigEndian.Uint64(b)
	if id == 0 {
		id = 1
	}
	return id, nil
}
