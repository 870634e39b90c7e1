package tap

import "github.com/graphprotocol/tap-aggregator/internal/tapcrypto"

// SignerRegistry answers the single question batch verification needs per
// receipt: is this address allowed to pay into this aggregation. It always
// includes the aggregator's own address, since a previous RAV it signed
// must itself verify as authorized input to the next fold (spec.md §5).
type SignerRegistry struct {
	allowed map[tapcrypto.Address]struct{}
}

// NewSignerRegistry builds a registry from a configured allow-list plus the
// service's own signing address.
func NewSignerRegistry(self tapcrypto.Address, allowed []tapcrypto.Address) *SignerRegistry {
	m := make(map[tapcrypto.Address]struct{}, len(allowed)+1)
	m[self] = struct{}{}
	for _, a := range allowed {
		m[a] = struct{}{}
	}
	return &SignerRegistry{allowed: m}
}

// Contains reports whether addr may sign receipts this aggregator accepts.
func (r *SignerRegistry) Contains(addr tapcrypto.Address) bool {
	_, ok := r.allowed[addr]
	return ok
}
