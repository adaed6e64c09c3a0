package crypto

import (
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"math/big"
	"time"
)

// oidUID is the LDAP "userid" attribute OID (0.9.2342.19200300.100.1.1),
// used to carry the subject/issuer UID (the public key's hex InfoHash)
// in certificates generated by GenerateIdentity.
var oidUID = asn1.ObjectIdentifier{0, 9, 2342, 19200300, 100, 1, 1}

// defaultValidity is the validity window new identities are issued with.
const defaultValidity = 10 * 365 * 24 * time.Hour

// Identity is the pair (PrivateKey, Certificate) identifying one overlay
// participant. The invariant PrivateKey.Public().id == Certificate's
// public key id must hold; callers should use NewIdentity to construct
// one, which enforces it.
type Identity struct {
	PrivateKey  PrivateKey
	Certificate *Certificate
}

// NewIdentity pairs a private key with a certificate, rejecting the pair
// if their public keys disagree (spec §3 Identity invariant).
func NewIdentity(priv PrivateKey, cert *Certificate) (*Identity, error) {
	if priv == nil {
		return nil, ErrNilPrivateKey
	}
	if cert == nil {
		return nil, fmt.Errorf("%w: nil certificate", ErrInvalidPublicKey)
	}
	privID, err := PublicKeyID(priv.Public())
	if err != nil {
		return nil, err
	}
	certID, err := cert.ID()
	if err != nil {
		return nil, err
	}
	if privID != certID {
		return nil, ErrIdentityMismatch
	}
	return &Identity{PrivateKey: priv, Certificate: cert}, nil
}

// GenerateIdentity produces a fresh RSA key pair and an X.509 certificate
// for it (spec §4.A). If ca is non-nil, the new certificate is signed by
// the CA's identity and chained to its certificate; the ca identity's
// certificate must itself be marked as a certificate authority.
// Otherwise the certificate is self-signed and marked CA:true.
func GenerateIdentity(name string, ca *Identity, keyBits int) (*Identity, error) {
	if keyBits <= 0 {
		keyBits = RSADefaultKeySize
	}
	priv, pub, err := GenerateRSAKey(keyBits)
	if err != nil {
		return nil, err
	}

	subjectID, err := PublicKeyID(pub)
	if err != nil {
		return nil, err
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName: name,
			ExtraNames: []pkix.AttributeTypeAndValue{
				{Type: oidUID, Value: subjectID.String()},
			},
		},
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.Add(defaultValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}

	rsaPriv := priv.(*RSAPrivateKey).k
	rsaPub := &rsaPriv.PublicKey

	var (
		issuerCert *Certificate
		signerPriv = rsaPriv
		parentTmpl = tmpl
	)

	if ca == nil {
		tmpl.IsCA = true
		tmpl.Subject.CommonName = name
		tmpl.Issuer = tmpl.Subject
	} else {
		if !ca.Certificate.IsCA() {
			return nil, ErrNotCA
		}
		tmpl.IsCA = false
		tmpl.Issuer = ca.Certificate.X509().Subject
		parentTmpl = ca.Certificate.X509()
		signerPriv = ca.PrivateKey.(*RSAPrivateKey).k
		issuerCert = ca.Certificate
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, parentTmpl, rsaPub, signerPriv)
	if err != nil {
		return nil, fmt.Errorf("crypto: create certificate: %w", err)
	}

	parsed, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("crypto: parse generated certificate: %w", err)
	}

	cert, err := NewCertificate(parsed, issuerCert)
	if err != nil {
		return nil, err
	}

	return NewIdentity(priv, cert)
}

// ErrIdentityMismatch indicates the certificate and private key carry
// different public keys; fatal at construction per spec §3 and §7.
var ErrIdentityMismatch = fmt.Errorf("crypto: certificate and private key disagree")
