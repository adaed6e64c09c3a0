package crypto

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/dep2p/go-secureoverlay/pkg/hash"
)

// AltNameType tags the kind of X.509 subject alternative name.
type AltNameType int

// Alternative-name kinds carried by a Certificate, per spec §3.
const (
	AltNameRFC822 AltNameType = iota
	AltNameDNS
	AltNameURI
	AltNameIP
)

// String renders the alt-name tag for logging.
func (t AltNameType) String() string {
	switch t {
	case AltNameRFC822:
		return "RFC822"
	case AltNameDNS:
		return "DNS"
	case AltNameURI:
		return "URI"
	case AltNameIP:
		return "IP"
	default:
		return "UNKNOWN"
	}
}

// AltName is one subject alternative name entry.
type AltName struct {
	Type  AltNameType
	Value string
}

// Certificate is an X.509 certificate plus an optional shared reference
// to its issuer certificate, forming an immutable chain from subject up
// to a self-signed CA. Cycles are not representable: X.509 roots are
// self-signed and terminate the chain.
type Certificate struct {
	cert   *x509.Certificate
	issuer *Certificate
}

// NewCertificate wraps a parsed x509.Certificate, optionally chained to
// its issuer's Certificate.
func NewCertificate(cert *x509.Certificate, issuer *Certificate) (*Certificate, error) {
	if cert == nil {
		return nil, fmt.Errorf("%w: nil x509 certificate", ErrInvalidPublicKey)
	}
	if _, ok := cert.PublicKey.(*rsa.PublicKey); !ok {
		return nil, fmt.Errorf("%w: certificate is not RSA", ErrInvalidPublicKey)
	}
	return &Certificate{cert: cert, issuer: issuer}, nil
}

// ParseCertificateDER parses a single DER-encoded X.509 certificate; this
// is the on-DHT wire format for the CERTIFICATE value type (spec §6).
func ParseCertificateDER(der []byte) (*Certificate, error) {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return NewCertificate(cert, nil)
}

// ParseCertificateChainPEM parses a PEM concatenation of certificates
// ordered from subject to issuer, wiring each one's Issuer() to the next,
// and returns the leaf (subject) certificate.
func ParseCertificateChainPEM(data []byte) (*Certificate, error) {
	var chain []*x509.Certificate
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
		}
		chain = append(chain, cert)
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("%w: no PEM certificates found", ErrInvalidPublicKey)
	}

	var issuer *Certificate
	for i := len(chain) - 1; i >= 0; i-- {
		c, err := NewCertificate(chain[i], issuer)
		if err != nil {
			return nil, err
		}
		issuer = c
	}
	return issuer, nil
}

// PublicKey returns the RSA public key enclosed in the certificate.
func (c *Certificate) PublicKey() PublicKey {
	return &RSAPublicKey{k: c.cert.PublicKey.(*rsa.PublicKey)}
}

// ID returns the certificate's InfoHash: identical to its public key's,
// by construction (spec §3).
func (c *Certificate) ID() (hash.InfoHash, error) {
	return PublicKeyID(c.PublicKey())
}

// SubjectCN returns the certificate subject's common name.
func (c *Certificate) SubjectCN() string {
	return c.cert.Subject.CommonName
}

// SubjectUID returns the subject's UID attribute (the hexadecimal
// InfoHash of the public key, by generateIdentity's convention).
func (c *Certificate) SubjectUID() string {
	for _, atv := range c.cert.Subject.Names {
		if atv.Type.Equal(oidUID) {
			if s, ok := atv.Value.(string); ok {
				return s
			}
		}
	}
	return ""
}

// IssuerCN returns the issuer's common name (for a self-signed
// certificate, the subject's own common name).
func (c *Certificate) IssuerCN() string {
	return c.cert.Issuer.CommonName
}

// IssuerUID returns the issuer's UID attribute.
func (c *Certificate) IssuerUID() string {
	for _, atv := range c.cert.Issuer.Names {
		if atv.Type.Equal(oidUID) {
			if s, ok := atv.Value.(string); ok {
				return s
			}
		}
	}
	return ""
}

// AltNames returns the certificate's tagged subject alternative names.
func (c *Certificate) AltNames() []AltName {
	var names []AltName
	for _, v := range c.cert.EmailAddresses {
		names = append(names, AltName{Type: AltNameRFC822, Value: v})
	}
	for _, v := range c.cert.DNSNames {
		names = append(names, AltName{Type: AltNameDNS, Value: v})
	}
	for _, v := range c.cert.URIs {
		names = append(names, AltName{Type: AltNameURI, Value: v.String()})
	}
	for _, v := range c.cert.IPAddresses {
		names = append(names, AltName{Type: AltNameIP, Value: v.String()})
	}
	return names
}

// IsCA reports whether the certificate is marked as a certificate authority.
func (c *Certificate) IsCA() bool {
	return c.cert.IsCA
}

// Issuer returns the shared issuer Certificate, or nil at the top of the
// chain (a self-signed root).
func (c *Certificate) Issuer() *Certificate {
	return c.issuer
}

// X509 returns the underlying parsed certificate, for callers that need
// to inspect fields this wrapper doesn't expose.
func (c *Certificate) X509() *x509.Certificate {
	return c.cert
}

// DER returns the raw DER encoding of this certificate alone (no chain).
func (c *Certificate) DER() []byte {
	return c.cert.Raw
}

// PEM returns the PEM encoding of this certificate alone.
func (c *Certificate) PEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: c.cert.Raw})
}

// Chain returns the PEM concatenation of this certificate followed by
// its issuer chain, ordered from subject to root.
func (c *Certificate) Chain() []byte {
	var out []byte
	for cur := c; cur != nil; cur = cur.issuer {
		out = append(out, cur.PEM()...)
	}
	return out
}

// Equals reports whether two certificates carry the same DER bytes.
func (c *Certificate) Equals(o *Certificate) bool {
	if c == nil || o == nil {
		return c == o
	}
	return string(c.cert.Raw) == string(o.cert.Raw)
}
