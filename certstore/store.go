// Package certstore is the certificate directory described in spec §4.D:
// a per-Store cache of InfoHash → Certificate, an optional local
// lookup hook, and asynchronous DHT-backed resolution with
// at-most-once-callback semantics, grounded on SecureDht::getCertificate
// / registerCertificate / findCertificate in the original C++ source.
package certstore

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-secureoverlay/internal/logging"
	"github.com/dep2p/go-secureoverlay/pkg/crypto"
	godht "github.com/dep2p/go-secureoverlay/pkg/dht"
	"github.com/dep2p/go-secureoverlay/pkg/hash"
	"github.com/dep2p/go-secureoverlay/pkg/value"
)

var log = logging.Logger("certstore")

// ErrCertificateIDMismatch is returned by RegisterCertificateBytes when
// the parsed certificate's public-key hash does not equal the node id it
// was supposed to belong to.
var ErrCertificateIDMismatch = fmt.Errorf("certstore: certificate id does not match node id")

// LocalLookup is the optional host-installed hook consulted before
// falling back to a DHT query (spec §4.D step 2).
type LocalLookup func(nodeID hash.InfoHash) []*crypto.Certificate

// Store is the certificate directory attached to one Overlay instance.
type Store struct {
	selfID   hash.InfoHash
	selfCert *crypto.Certificate

	mu    sync.RWMutex
	cache map[hash.InfoHash]*crypto.Certificate

	localMu sync.RWMutex
	local   LocalLookup
}

// New builds a Store for an instance whose own identity is (selfID,
// selfCert). selfCert may be nil for an instance with no identity of its
// own (GetCertificate then never short-circuits on selfID).
func New(selfID hash.InfoHash, selfCert *crypto.Certificate) *Store {
	return &Store{
		selfID:   selfID,
		selfCert: selfCert,
		cache:    make(map[hash.InfoHash]*crypto.Certificate),
	}
}

// SetLocalCertificateStore installs or clears the optional local lookup
// hook (spec §6, setLocalCertificateStore).
func (s *Store) SetLocalCertificateStore(fn LocalLookup) {
	s.localMu.Lock()
	defer s.localMu.Unlock()
	s.local = fn
}

// GetCertificate returns the local identity's own certificate if nodeID
// is self; otherwise a cache hit; otherwise (nil, false) (spec §4.D).
func (s *Store) GetCertificate(nodeID hash.InfoHash) (*crypto.Certificate, bool) {
	if s.selfCert != nil && nodeID.Equal(s.selfID) {
		return s.selfCert, true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	cert, ok := s.cache[nodeID]
	return cert, ok
}

// RegisterCertificateBytes parses blob as an X.509 certificate, rejects
// it if its public-key hash disagrees with nodeID, and otherwise inserts
// or overwrites the cache entry (spec §4.D, first registerCertificate
// overload).
func (s *Store) RegisterCertificateBytes(nodeID hash.InfoHash, blob []byte) (*crypto.Certificate, error) {
	cert, err := crypto.ParseCertificateDER(blob)
	if err != nil {
		return nil, err
	}
	id, err := cert.ID()
	if err != nil {
		return nil, err
	}
	if !id.Equal(nodeID) {
		return nil, ErrCertificateIDMismatch
	}
	s.mu.Lock()
	s.cache[nodeID] = cert
	s.mu.Unlock()
	return cert, nil
}

// RegisterCertificate unconditionally inserts cert into the cache, keyed
// by its own id (spec §4.D, second registerCertificate overload).
func (s *Store) RegisterCertificate(cert *crypto.Certificate) (*crypto.Certificate, error) {
	id, err := cert.ID()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.cache[id] = cert
	s.mu.Unlock()
	return cert, nil
}

// FindCertificate resolves nodeID asynchronously (spec §4.D,
// findCertificate): cache hit, then the local hook, then a DHT Get
// restricted to the CERTIFICATE value type. A shared "found" flag
// guarantees callback fires exactly once even if several DHT replies
// carry a valid certificate (spec §5, "Callbacks as first-class state").
func (s *Store) FindCertificate(ctx context.Context, d godht.DHT, nodeID hash.InfoHash, callback func(*crypto.Certificate)) error {
	if cert, ok := s.GetCertificate(nodeID); ok {
		callback(cert)
		return nil
	}

	s.localMu.RLock()
	local := s.local
	s.localMu.RUnlock()
	if local != nil {
		if certs := local(nodeID); len(certs) > 0 {
			s.mu.Lock()
			s.cache[nodeID] = certs[0]
			s.mu.Unlock()
			callback(certs[0])
			return nil
		}
	}

	var found atomic.Bool
	filter := value.TypeFilter(value.CertificateType)
	err := d.Get(ctx, nodeID, func(vals []*value.Value) bool {
		for _, v := range vals {
			cert, err := crypto.ParseCertificateDER(v.Data)
			if err != nil {
				log.Warn("dropping unparsable certificate value", "node", nodeID.ShortString(), "err", err)
				continue
			}
			id, err := cert.ID()
			if err != nil || !id.Equal(nodeID) {
				log.Warn("dropping certificate with mismatched id", "node", nodeID.ShortString())
				continue
			}
			if found.CompareAndSwap(false, true) {
				s.mu.Lock()
				s.cache[nodeID] = cert
				s.mu.Unlock()
				callback(cert)
				return false
			}
		}
		return true
	}, filter)
	if err != nil {
		return err
	}
	if !found.Load() {
		callback(nil)
	}
	return nil
}
