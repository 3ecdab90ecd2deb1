package domain

import "github.com/ethereum/go-ethereum/common"

// Owner identifies the account entitled to collect a position's fees.
// The zero value means "not yet assigned", which is distinct from a
// position legitimately held by the zero address.
type Owner struct {
	addr common.Address
	set  bool
}

// OwnerOf wraps a concrete holder address.
func OwnerOf(addr common.Address) Owner {
	return Owner{addr: addr, set: true}
}

// NoOwner returns the unassigned owner.
func NoOwner() Owner {
	return Owner{}
}

// Address returns the holder address and whether one is assigned.
func (o Owner) Address() (common.Address, bool) {
	return o.addr, o.set
}

// Assigned reports whether a holder is known.
func (o Owner) Assigned() bool {
	return o.set
}

func (o Owner) String() string {
	if !o.set {
		return "<unassigned>"
	}
	return o.addr.Hex()
}
