package doe

import (
	"context"
	"slices"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
)

func TestDenialOfExistenceNSEC_TypeBitMapContainsAnyOf(t *testing.T) {
	// Querying for AAAA on test.example.com, which has an A record but no
	// AAAA — the common shape for online-signed NXDOMAIN-alternative replies.
	records := []*dns.NSEC{
		mustRR(`test.example.com. 3600 IN NSEC \000.test.example.com. A RRSIG NSEC`).(*dns.NSEC),
	}
	nsec := NewDenialOfExistenceNSEC(context.Background(), testZone, records)

	nameSeen, typeSeen := nsec.TypeBitMapContainsAnyOf("test.example.com.", []uint16{dns.TypeA})
	assert.True(t, nameSeen)
	assert.True(t, typeSeen)

	nameSeen, typeSeen = nsec.TypeBitMapContainsAnyOf("test.example.com.", []uint16{dns.TypeAAAA})
	assert.True(t, nameSeen)
	assert.False(t, typeSeen)

	// A type is only ever considered seen if the owner name was also seen.
	nameSeen, typeSeen = nsec.TypeBitMapContainsAnyOf("other.example.com.", []uint16{dns.TypeA})
	assert.False(t, nameSeen)
	assert.False(t, typeSeen)
}

func TestDenialOfExistenceNSEC_PerformQNameDoesNotExistProof(t *testing.T) {
	coversWildcard := []*dns.NSEC{mustRR("example.com. 3600 IN NSEC d.example.com. SOA RRSIG NSEC").(*dns.NSEC)}
	coversQname := []*dns.NSEC{mustRR("s.example.com. 3600 IN NSEC u.example.com. A RRSIG NSEC").(*dns.NSEC)}

	nsec := NewDenialOfExistenceNSEC(context.Background(), testZone, slices.Concat(coversQname, coversWildcard))
	assert.True(t, nsec.PerformQNameDoesNotExistProof("test.example.com."), "both the qname and its wildcard are covered")
	assert.False(t, nsec.PerformQNameDoesNotExistProof("s.example.com."), "s.example.com. has its own NSEC, so it exists")

	nsec = NewDenialOfExistenceNSEC(context.Background(), testZone, coversWildcard)
	assert.False(t, nsec.PerformQNameDoesNotExistProof("test.example.com."), "no coverage for the qname")

	nsec = NewDenialOfExistenceNSEC(context.Background(), testZone, coversQname)
	assert.False(t, nsec.PerformQNameDoesNotExistProof("test.example.com."), "no coverage for the wildcard")

	nsec = NewDenialOfExistenceNSEC(context.Background(), testZone, nil)
	assert.False(t, nsec.PerformQNameDoesNotExistProof("test.example.com."), "an empty proof is never valid")
}

func TestDenialOfExistenceNSEC_PerformExpandedWildcardProof(t *testing.T) {
	coversWildcard := []*dns.NSEC{mustRR("example.com. 3600 IN NSEC d.example.com. SOA RRSIG NSEC").(*dns.NSEC)}
	coversQname := []*dns.NSEC{mustRR("s.example.com. 3600 IN NSEC u.example.com. A RRSIG NSEC").(*dns.NSEC)}

	nsec := NewDenialOfExistenceNSEC(context.Background(), testZone, coversQname)
	assert.True(t, nsec.PerformExpandedWildcardProof("test.example.com."), "only the qname is covered, so a wildcard answer is valid")

	nsec = NewDenialOfExistenceNSEC(context.Background(), testZone, coversWildcard)
	assert.False(t, nsec.PerformExpandedWildcardProof("test.example.com."), "the wildcard itself is covered, so it cannot have answered")

	nsec = NewDenialOfExistenceNSEC(context.Background(), testZone, slices.Concat(coversQname, coversWildcard))
	assert.False(t, nsec.PerformExpandedWildcardProof("test.example.com."), "both qname and wildcard covered means no wildcard could have answered")

	nsec = NewDenialOfExistenceNSEC(context.Background(), testZone, nil)
	assert.False(t, nsec.PerformExpandedWildcardProof("test.example.com."), "an empty proof is never valid")
}
