package doe

import (
	"context"
	"slices"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
)

// nsec3Fixture holds the handful of NSEC3 records needed to prove or
// disprove each piece of a closest-encloser / wildcard proof for
// test.example.com. beneath example.com., with hashes precomputed via
// dns.HashName(name, dns.SHA1, 2, "abcdef"):
//
//	hash(example.com.)      = 111NOTAB271SNH4EA8ESDKBF1C2QINH1
//	hash(*.example.com.)    = 3MFPR9I7C49K59BM8VU2HM71CCR7BH0B
//	hash(test.example.com.) = L72QU4B0R4USH96QN17VTCD8395QILEQ
type nsec3Fixture struct {
	closestEncloser []*dns.NSEC3
	nextCloserName  []*dns.NSEC3
	wildcardCovers  []*dns.NSEC3
	wildcardMatches []*dns.NSEC3
	qnameMatches    []*dns.NSEC3
}

func newNsec3Fixture() nsec3Fixture {
	return nsec3Fixture{
		closestEncloser: []*dns.NSEC3{
			mustRR("111NOTAB271SNH4EA8ESDKBF1C2QINH1.example.com. 3600 IN NSEC3 1 0 2 ABCDEF 211NOTAB271SNH4EA8ESDKBF1C2QINH1 SOA RRSIG").(*dns.NSEC3),
		},
		// Two hashes covering hash(test.example.com.).
		nextCloserName: []*dns.NSEC3{
			mustRR("K72QU4B0R4USH96QN17VTCD8395QILEQ.example.com. 3600 IN NSEC3 1 0 2 ABCDEF M72QU4B0R4USH96QN17VTCD8395QILEQ A RRSIG").(*dns.NSEC3),
		},
		// Two hashes covering hash(*.example.com.).
		wildcardCovers: []*dns.NSEC3{
			mustRR("2MFPR9I7C49K59BM8VU2HM71CCR7BH0B.example.com. 3600 IN NSEC3 1 0 2 ABCDEF 4MFPR9I7C49K59BM8VU2HM71CCR7BH0B A RRSIG").(*dns.NSEC3),
		},
		wildcardMatches: []*dns.NSEC3{
			mustRR("3MFPR9I7C49K59BM8VU2HM71CCR7BH0B.example.com. 3600 IN NSEC3 1 0 2 ABCDEF 3NFPR9I7C49K59BM8VU2HM71CCR7BH0B A RRSIG").(*dns.NSEC3),
		},
		qnameMatches: []*dns.NSEC3{
			mustRR("L72QU4B0R4USH96QN17VTCD8395QILEQ.example.com. 3600 IN NSEC3 1 0 2 ABCDEF T0B6SHHJ0JQRI032RVVLMCGGNHCVF5UM A RRSIG").(*dns.NSEC3),
		},
	}
}

func TestDenialOfExistenceNSEC3_TypeBitMapContainsAnyOf(t *testing.T) {
	records := []*dns.NSEC3{
		mustRR("L72QU4B0R4USH96QN17VTCD8395QILEQ.example.com. 3600 IN NSEC3 1 0 2 ABCDEF T0B6SHHJ0JQRI032RVVLMCGGNHCVF5UM A RRSIG").(*dns.NSEC3),
	}
	nsec3 := NewDenialOfExistenceNSEC3(context.Background(), testZone, records, 0)

	nameSeen, typeSeen := nsec3.TypeBitMapContainsAnyOf("test.example.com.", []uint16{dns.TypeA})
	assert.True(t, nameSeen)
	assert.True(t, typeSeen)

	nameSeen, typeSeen = nsec3.TypeBitMapContainsAnyOf("test.example.com.", []uint16{dns.TypeAAAA})
	assert.True(t, nameSeen)
	assert.False(t, typeSeen)

	nameSeen, typeSeen = nsec3.TypeBitMapContainsAnyOf("other.example.com.", []uint16{dns.TypeA})
	assert.False(t, nameSeen)
	assert.False(t, typeSeen)
}

func TestDenialOfExistenceNSEC3_PerformClosestEncloserProof(t *testing.T) {
	f := newNsec3Fixture()

	nsec3 := NewDenialOfExistenceNSEC3(context.Background(), testZone, slices.Concat(f.closestEncloser, f.nextCloserName, f.wildcardCovers), 0)
	optedOut, closestEncloserProof, nextCloserNameProof, wildcardProof := nsec3.PerformClosestEncloserProof("test.example.com.")
	assert.False(t, optedOut)
	assert.True(t, closestEncloserProof)
	assert.True(t, nextCloserNameProof)
	assert.True(t, wildcardProof)

	nsec3 = NewDenialOfExistenceNSEC3(context.Background(), testZone, slices.Concat(f.closestEncloser, f.nextCloserName, f.wildcardCovers, f.qnameMatches), 0)
	optedOut, closestEncloserProof, nextCloserNameProof, wildcardProof = nsec3.PerformClosestEncloserProof("test.example.com.")
	assert.False(t, nextCloserNameProof, "an NSEC3 matching the qname must fail the next-closer-name proof")

	nsec3 = NewDenialOfExistenceNSEC3(context.Background(), testZone, slices.Concat(f.closestEncloser, f.nextCloserName, f.wildcardMatches), 0)
	_, _, _, wildcardProof = nsec3.PerformClosestEncloserProof("test.example.com.")
	assert.False(t, wildcardProof, "an NSEC3 matching the wildcard must fail the wildcard proof")

	nsec3 = NewDenialOfExistenceNSEC3(context.Background(), testZone, slices.Concat(f.closestEncloser, f.nextCloserName), 0)
	_, _, _, wildcardProof = nsec3.PerformClosestEncloserProof("test.example.com.")
	assert.False(t, wildcardProof, "no wildcard-covering record means the wildcard proof fails")

	nsec3 = NewDenialOfExistenceNSEC3(context.Background(), testZone, slices.Concat(f.closestEncloser, f.wildcardCovers), 0)
	_, _, nextCloserNameProof, _ = nsec3.PerformClosestEncloserProof("test.example.com.")
	assert.False(t, nextCloserNameProof, "no next-closer-covering record means that proof fails")

	nsec3 = NewDenialOfExistenceNSEC3(context.Background(), testZone, slices.Concat(f.nextCloserName, f.wildcardCovers), 0)
	optedOut, closestEncloserProof, nextCloserNameProof, wildcardProof = nsec3.PerformClosestEncloserProof("test.example.com.")
	assert.False(t, optedOut)
	assert.False(t, closestEncloserProof, "with no closest-encloser match, every proof must be false")
	assert.False(t, nextCloserNameProof)
	assert.False(t, wildcardProof)

	nsec3 = NewDenialOfExistenceNSEC3(context.Background(), testZone, nil, 0)
	optedOut, closestEncloserProof, nextCloserNameProof, wildcardProof = nsec3.PerformClosestEncloserProof("test.example.com.")
	assert.False(t, optedOut)
	assert.False(t, closestEncloserProof)
	assert.False(t, nextCloserNameProof)
	assert.False(t, wildcardProof)
}

func TestDenialOfExistenceNSEC3_PerformExpandedWildcardProof(t *testing.T) {
	f := newNsec3Fixture()

	// Each case below assumes the answer was synthesised from *.example.com.
	nsec3 := NewDenialOfExistenceNSEC3(context.Background(), testZone, f.nextCloserName, 0)
	assert.True(t, nsec3.PerformExpandedWildcardProof("test.example.com.", 2), "doe for the next-closer name but not the wildcard")

	nsec3 = NewDenialOfExistenceNSEC3(context.Background(), testZone, f.closestEncloser, 0)
	assert.False(t, nsec3.PerformExpandedWildcardProof("test.example.com.", 2), "no next-closer-name doe")

	nsec3 = NewDenialOfExistenceNSEC3(context.Background(), testZone, slices.Concat(f.nextCloserName, f.wildcardCovers), 0)
	assert.False(t, nsec3.PerformExpandedWildcardProof("test.example.com.", 2), "doe for the wildcard itself (covered)")

	nsec3 = NewDenialOfExistenceNSEC3(context.Background(), testZone, slices.Concat(f.nextCloserName, f.wildcardMatches), 0)
	assert.False(t, nsec3.PerformExpandedWildcardProof("test.example.com.", 2), "doe for the wildcard itself (matched)")

	nsec3 = NewDenialOfExistenceNSEC3(context.Background(), testZone, f.qnameMatches, 0)
	assert.False(t, nsec3.PerformExpandedWildcardProof("test.example.com.", 2), "doe for the qname means the wildcard should never have expanded")
}

func TestDenialOfExistenceNSEC3_Optout(t *testing.T) {
	closestEncloser := []*dns.NSEC3{
		mustRR("111NOTAB271SNH4EA8ESDKBF1C2QINH1.example.com. 3600 IN NSEC3 1 1 2 ABCDEF 211NOTAB271SNH4EA8ESDKBF1C2QINH1 SOA RRSIG").(*dns.NSEC3),
	}
	nextCloserName := []*dns.NSEC3{
		mustRR("K72QU4B0R4USH96QN17VTCD8395QILEQ.example.com. 3600 IN NSEC3 1 1 2 ABCDEF M72QU4B0R4USH96QN17VTCD8395QILEQ A RRSIG").(*dns.NSEC3),
	}

	nsec3 := NewDenialOfExistenceNSEC3(context.Background(), testZone, slices.Concat(nextCloserName, closestEncloser), 0)
	optedOut, _, _, _ := nsec3.PerformClosestEncloserProof("test.example.com.")
	assert.True(t, optedOut)
}

func TestNewDenialOfExistenceNSEC3_DropsUnsupportedHashAndFlags(t *testing.T) {
	// Hash algorithm 5 is not SHA-1, so must be ignored.
	wrongHash := mustRR("111NOTAB271SNH4EA8ESDKBF1C2QINH1.example.com. 3600 IN NSEC3 5 0 2 ABCDEF 211NOTAB271SNH4EA8ESDKBF1C2QINH1 SOA RRSIG").(*dns.NSEC3)
	// Flags value 5 is neither 0 nor 1, so must be ignored.
	wrongFlags := mustRR("K72QU4B0R4USH96QN17VTCD8395QILEQ.example.com. 3600 IN NSEC3 1 5 2 ABCDEF M72QU4B0R4USH96QN17VTCD8395QILEQ A RRSIG").(*dns.NSEC3)

	nsec3 := NewDenialOfExistenceNSEC3(context.Background(), testZone, []*dns.NSEC3{wrongHash, wrongFlags}, 0)
	assert.True(t, nsec3.Empty())
}

func TestNewDenialOfExistenceNSEC3_AppliesIterationCeiling(t *testing.T) {
	r := mustRR("111NOTAB271SNH4EA8ESDKBF1C2QINH1.example.com. 3600 IN NSEC3 1 0 200 ABCDEF 211NOTAB271SNH4EA8ESDKBF1C2QINH1 SOA RRSIG").(*dns.NSEC3)

	nsec3 := NewDenialOfExistenceNSEC3(context.Background(), testZone, []*dns.NSEC3{r}, 150)
	assert.True(t, nsec3.Empty(), "an iteration count above the configured ceiling must be dropped")

	nsec3 = NewDenialOfExistenceNSEC3(context.Background(), testZone, []*dns.NSEC3{r}, 0)
	assert.False(t, nsec3.Empty(), "a ceiling of 0 disables the policy")

	nsec3 = NewDenialOfExistenceNSEC3(context.Background(), testZone, []*dns.NSEC3{r}, 200)
	assert.False(t, nsec3.Empty(), "an iteration count at the ceiling is still accepted")
}
