package rrset

import "github.com/miekg/dns"

// SecurityStatus is the per-RRset validation outcome from spec.md §3's
// SRRset type.
type SecurityStatus uint8

const (
	Unchecked SecurityStatus = iota
	Indeterminate
	Insecure
	Secure
	Bogus
)

func (s SecurityStatus) String() string {
	switch s {
	case Unchecked:
		return "Unchecked"
	case Indeterminate:
		return "Indeterminate"
	case Insecure:
		return "Insecure"
	case Secure:
		return "Secure"
	case Bogus:
		return "Bogus"
	default:
		return "Unknown"
	}
}

// SRRset is an RRset augmented with the validator's verdict and the signer
// name that produced it, per spec.md §3.
type SRRset struct {
	*RRset
	Status     SecurityStatus
	SignerName string // "" if unsigned/unknown
}

// NewSRRset wraps set with an initial Unchecked status.
func NewSRRset(set *RRset) *SRRset {
	return &SRRset{RRset: set, Status: Unchecked}
}

// SignerNames returns the distinct signer names across this set's RRSIGs.
func (s *SRRset) SignerNames() []string {
	seen := make(map[string]bool)
	names := make([]string, 0, 1)
	for _, sig := range s.Sigs() {
		n := dns.CanonicalName(sig.SignerName)
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	return names
}
