package tap

import "crypto/ecdsa"

// RavSigner signs outgoing RAVs with the aggregator's own key, wrapping
// digest computation and signing under the domain the aggregator was
// configured with for a given version.
type RavSigner struct {
	key      *ecdsa.PrivateKey
	domainV1 Domain
	domainV2 Domain
}

// NewRavSigner constructs a RavSigner for both wire versions at once, since
// a single deployment signs both kinds of RAV under the same key.
func NewRavSigner(key *ecdsa.PrivateKey, domainV1, domainV2 Domain) *RavSigner {
	return &RavSigner{key: key, domainV1: domainV1, domainV2: domainV2}
}

// SignV1 signs a folded V1 RAV.
func (s *RavSigner) SignV1(rav RavV1) (SignedRavV1, error) {
	return SignRavV1(s.key, s.domainV1, rav)
}

// SignV2 signs a folded V2 RAV.
func (s *RavSigner) SignV2(rav RavV2) (SignedRavV2, error) {
	return SignRavV2(s.key, s.domainV2, rav)
}
