package zone

import (
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dnsname "github.com/hadrianlabs/dnsval/name"
	"github.com/hadrianlabs/dnsval/rrset"
)

func newRR(t *testing.T, s string) dns.RR {
	t.Helper()
	rr, err := dns.NewRR(s)
	require.NoError(t, err)
	return rr
}

func newSet(t *testing.T, records ...string) *rrset.RRset {
	t.Helper()
	var rrs []dns.RR
	for _, s := range records {
		rrs = append(rrs, newRR(t, s))
	}
	set, err := rrset.FromRecords(rrs)
	require.NoError(t, err)
	return set
}

func testZone(t *testing.T) *Zone {
	t.Helper()
	apex := dnsname.MustNew("example.com.")
	z, err := New(apex, dns.ClassINET)
	require.NoError(t, err)

	require.NoError(t, z.AddRRset(newSet(t, "example.com. 3600 IN SOA ns1.example.com. hostmaster.example.com. 1 3600 600 86400 3600")))
	require.NoError(t, z.AddRRset(newSet(t, "example.com. 3600 IN NS ns1.example.com.")))
	require.NoError(t, z.AddRRset(newSet(t, "www.example.com. 300 IN A 192.0.2.1")))
	require.NoError(t, z.AddRRset(newSet(t, "alias.example.com. 300 IN CNAME www.example.com.")))
	require.NoError(t, z.AddRRset(newSet(t, "sub.example.com. 3600 IN NS ns1.sub.example.com.")))
	require.NoError(t, z.AddRRset(newSet(t, "*.wild.example.com. 300 IN A 192.0.2.9")))

	require.NoError(t, z.Validate())
	return z
}

func TestFindRecords_Successful(t *testing.T) {
	z := testZone(t)
	resp := z.FindRecords(dnsname.MustNew("www.example.com."), dns.TypeA)
	assert.Equal(t, SUCCESSFUL, resp.Tag)
	require.Len(t, resp.RRsets, 1)
	assert.Equal(t, "www.example.com.", resp.RRsets[0].Owner)
}

func TestFindRecords_NXRRSET(t *testing.T) {
	z := testZone(t)
	resp := z.FindRecords(dnsname.MustNew("www.example.com."), dns.TypeAAAA)
	assert.Equal(t, NXRRSET, resp.Tag)
}

func TestFindRecords_NXDOMAIN(t *testing.T) {
	z := testZone(t)
	resp := z.FindRecords(dnsname.MustNew("nowhere.example.com."), dns.TypeA)
	assert.Equal(t, NXDOMAIN, resp.Tag)
}

func TestFindRecords_CNAME(t *testing.T) {
	z := testZone(t)
	resp := z.FindRecords(dnsname.MustNew("alias.example.com."), dns.TypeA)
	assert.Equal(t, CNAME, resp.Tag)
}

func TestFindRecords_Delegation(t *testing.T) {
	z := testZone(t)
	resp := z.FindRecords(dnsname.MustNew("host.sub.example.com."), dns.TypeA)
	assert.Equal(t, DELEGATION, resp.Tag)
}

func TestFindRecords_Wildcard_OwnerIsQName(t *testing.T) {
	z := testZone(t)
	resp := z.FindRecords(dnsname.MustNew("foo.wild.example.com."), dns.TypeA)
	require.Equal(t, SUCCESSFUL, resp.Tag)
	require.Len(t, resp.RRsets, 1)
	assert.Equal(t, "foo.wild.example.com.", resp.RRsets[0].Owner)
}

func TestAddRRset_OutsideZone(t *testing.T) {
	z := testZone(t)
	err := z.AddRRset(newSet(t, "www.other.com. 300 IN A 192.0.2.1"))
	assert.ErrorIs(t, err, ErrOutsideZone)
}

func TestValidate_RequiresSOA(t *testing.T) {
	apex := dnsname.MustNew("nosoa.example.com.")
	z, err := New(apex, dns.ClassINET)
	require.NoError(t, err)
	assert.ErrorIs(t, z.Validate(), ErrNoSOA)
}

func TestAXFRRecords_StartsAndEndsWithSOA(t *testing.T) {
	z := testZone(t)
	recs := z.AXFRRecords()
	require.NotEmpty(t, recs)
	assert.Equal(t, dns.TypeSOA, recs[0].Header().Rrtype)
	assert.Equal(t, dns.TypeSOA, recs[len(recs)-1].Header().Rrtype)
	assert.Equal(t, dns.TypeNS, recs[1].Header().Rrtype)
}
