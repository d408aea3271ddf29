package dnssec

import (
	"errors"

	"github.com/miekg/dns"
)

// signatures is a flat list of per-RRSIG verification attempts, generalising
// the teacher's extractRecords[T]-style helpers into a named collection
// with its own verification/query methods.
type signatures []*signature

// signature is the outcome of attempting to verify a single RRSIG against
// the RRset it claims to cover.
type signature struct {
	zone string

	name  string
	rtype uint16

	key   *dns.DNSKEY
	rrsig *dns.RRSIG
	rrset []dns.RR

	wildcard bool

	verified bool
	err      error
}

func (ss signatures) filterOnType(rtype uint16) signatures {
	set := make(signatures, 0, len(ss))
	for _, sig := range ss {
		if sig.rtype == rtype {
			set = append(set, sig)
		}
	}
	return set
}

// Verify checks every (name,type) group of signatures against the
// RequireAllSignaturesValid policy (config.go): by default at least one
// RRSIG per RRset must verify (RFC 4035 §5.3.3 leaves this to local
// policy); with RequireAllSignaturesValid set, every RRSIG covering an
// RRset must verify. It returns nil if every group satisfies its policy;
// otherwise the joined errors of every failing signature (or
// ErrUnableToVerify for a failure that carries no detail), wrapped in
// ErrVerifyFailed.
func (ss signatures) Verify() error {
	if len(ss) == 0 {
		return ErrSignatureSetEmpty
	}

	type groupKey struct {
		name  string
		rtype uint16
	}
	groups := make(map[groupKey]signatures)
	var order []groupKey
	for _, s := range ss {
		k := groupKey{s.name, s.rtype}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], s)
	}

	var errs []error
	for _, k := range order {
		group := groups[k]
		validCount := 0
		var groupErrs []error
		for _, s := range group {
			if s.verified {
				validCount++
				continue
			}
			if s.err != nil {
				groupErrs = append(groupErrs, s.err)
			} else {
				groupErrs = append(groupErrs, ErrUnableToVerify)
			}
		}

		satisfied := validCount > 0
		if RequireAllSignaturesValid {
			satisfied = validCount == len(group)
		}
		if !satisfied {
			errs = append(errs, groupErrs...)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(append([]error{ErrVerifyFailed}, errs...)...)
}

// Valid reports whether Verify returns nil: by default each signed
// (name,type) group needs at least one verified signature, and every
// signature must verify when RequireAllSignaturesValid is set.
func (ss signatures) Valid() bool {
	return ss.Verify() == nil
}

// extractDSRecords returns all DS records carried within the covered
// RRsets of this signature set.
func (ss signatures) extractDSRecords() []*dns.DS {
	out := make([]*dns.DS, 0)
	for _, s := range ss {
		out = append(out, extractRecords[*dns.DS](s.rrset)...)
	}
	return out
}

// extractNSECRecords returns all NSEC records carried within the covered
// RRsets of this signature set.
func (ss signatures) extractNSECRecords() []*dns.NSEC {
	out := make([]*dns.NSEC, 0)
	for _, s := range ss {
		out = append(out, extractRecords[*dns.NSEC](s.rrset)...)
	}
	return out
}

// extractNSEC3Records returns all NSEC3 records carried within the covered
// RRsets of this signature set.
func (ss signatures) extractNSEC3Records() []*dns.NSEC3 {
	out := make([]*dns.NSEC3, 0)
	for _, s := range ss {
		out = append(out, extractRecords[*dns.NSEC3](s.rrset)...)
	}
	return out
}

// countNameTypeCombinations counts the distinct (name,type) pairs covered by
// this signature set, used by authenticate to enforce RFC 4035 §2.2's "one
// RRSIG per RRset" invariant.
func (ss signatures) countNameTypeCombinations() int {
	type key struct {
		name  string
		rtype uint16
	}
	seen := make(map[key]bool, len(ss))
	for _, s := range ss {
		seen[key{name: s.name, rtype: s.rtype}] = true
	}
	return len(seen)
}
