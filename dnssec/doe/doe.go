// Package doe builds the RFC 4035/5155 denial-of-existence proofs
// (NSEC and NSEC3 covering/matching) that dnssec.ValidateNegative and
// dnssec.ValidateDelegation consult to decide whether a name or type
// is provably absent rather than merely missing from a reply.
package doe

import (
	"context"

	"github.com/miekg/dns"
)

// DenialOfExistenceNSEC holds the NSEC records carried by a single
// response's authority section, scoped to the signing zone.
type DenialOfExistenceNSEC struct {
	ctx     context.Context
	zone    string
	records []*dns.NSEC
}

// DenialOfExistenceNSEC3 holds the NSEC3 records carried by a single
// response, already filtered down to the ones a validator may rely on.
type DenialOfExistenceNSEC3 struct {
	ctx     context.Context
	zone    string
	records []*dns.NSEC3
}

// NewDenialOfExistenceNSEC wraps records for zone's proof methods.
func NewDenialOfExistenceNSEC(ctx context.Context, zone string, records []*dns.NSEC) *DenialOfExistenceNSEC {
	return &DenialOfExistenceNSEC{ctx: ctx, zone: zone, records: records}
}

// NewDenialOfExistenceNSEC3 wraps records for zone's proof methods,
// dropping any record this validator cannot safely rely on: an
// unsupported hash or flag value (RFC 5155 §3.1.2/§3.1.3), or an
// iteration count past maxIterations (RFC 5155 §10.3; spec.md §4.8,
// enforced here rather than by the caller so the policy applies
// uniformly to every proof method built on top). maxIterations<=0
// disables the ceiling.
func NewDenialOfExistenceNSEC3(ctx context.Context, zone string, records []*dns.NSEC3, maxIterations int) *DenialOfExistenceNSEC3 {
	usable := make([]*dns.NSEC3, 0, len(records))
	for _, r := range records {
		if r.Hash != dns.SHA1 {
			continue
		}
		if r.Flags > 1 {
			continue
		}
		if maxIterations > 0 && int(r.Iterations) > maxIterations {
			continue
		}
		usable = append(usable, r)
	}
	return &DenialOfExistenceNSEC3{ctx: ctx, zone: zone, records: usable}
}

// Empty reports whether doe was left with no usable NSEC records.
func (doe *DenialOfExistenceNSEC) Empty() bool {
	return len(doe.records) == 0
}

// Empty reports whether doe was left with no usable NSEC3 records.
func (doe *DenialOfExistenceNSEC3) Empty() bool {
	return len(doe.records) == 0
}
