package attestation

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// TrustPolicy is the process-wide set of accepted allocator signers. It is
// built once at startup and never mutated, so it is safe to share between
// concurrent attempts.
type TrustPolicy struct {
	allocators map[common.Address]struct{}
}

// NewTrustPolicy builds a policy from allocator addresses. At least one
// allocator is required; an empty allow-list would reject every bundle.
func NewTrustPolicy(allocators ...common.Address) (*TrustPolicy, error) {
	if len(allocators) == 0 {
		return nil, errors.New("trust policy requires at least one allocator address")
	}
	set := make(map[common.Address]struct{}, len(allocators))
	for _, a := range allocators {
		if a == (common.Address{}) {
			return nil, errors.New("zero address cannot be a trusted allocator")
		}
		set[a] = struct{}{}
	}
	return &TrustPolicy{allocators: set}, nil
}

// NewTrustPolicyFromHex parses hex addresses and builds a policy.
func NewTrustPolicyFromHex(allocators ...string) (*TrustPolicy, error) {
	addrs := make([]common.Address, 0, len(allocators))
	for _, s := range allocators {
		addr, ok := addressFromHex(s)
		if !ok {
			return nil, errors.Errorf("invalid allocator address %q", s)
		}
		addrs = append(addrs, addr)
	}
	return NewTrustPolicy(addrs...)
}

// TrustsAllocator reports whether addr is an accepted allocator signer.
func (p *TrustPolicy) TrustsAllocator(addr common.Address) bool {
	_, ok := p.allocators[addr]
	return ok
}

// Allocators returns a copy of the allow-list.
func (p *TrustPolicy) Allocators() []common.Address {
	out := make([]common.Address, 0, len(p.allocators))
	for a := range p.allocators {
		out = append(out, a)
	}
	return out
}
