package dnssec

import (
	"net"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hadrianlabs/dnsval/rrset"
)

func TestValidateDNSKEYs_Secure(t *testing.T) {
	key := testEcKey()

	dnskeySet := rrset.New(zoneName, dns.TypeDNSKEY, dns.ClassINET)
	require.NoError(t, dnskeySet.Add(key.key))

	sig := key.sign([]dns.RR{key.key}, 0, 0)
	sig.Hdr.Name = zoneName
	require.NoError(t, dnskeySet.Add(sig))

	out, state, err := ValidateDNSKEYs(zoneName, dnskeySet, []*dns.DS{key.ds})
	require.NoError(t, err)
	assert.Equal(t, Secure, state)
	assert.Equal(t, rrset.Secure, out.Status)
}

func TestValidateDNSKEYs_NoParentDS(t *testing.T) {
	key := testEcKey()
	dnskeySet := rrset.New(zoneName, dns.TypeDNSKEY, dns.ClassINET)
	require.NoError(t, dnskeySet.Add(key.key))

	_, state, err := ValidateDNSKEYs(zoneName, dnskeySet, nil)
	assert.Equal(t, Insecure, state)
	assert.ErrorIs(t, err, ErrNoDSRecords)
}

func TestValidateDNSKEYs_NoMatchingKSK(t *testing.T) {
	key := testEcKey()
	other := testRsaKey()
	dnskeySet := rrset.New(zoneName, dns.TypeDNSKEY, dns.ClassINET)
	require.NoError(t, dnskeySet.Add(key.key))

	_, state, err := ValidateDNSKEYs(zoneName, dnskeySet, []*dns.DS{other.ds})
	assert.Equal(t, Bogus, state)
	assert.ErrorIs(t, err, ErrKeySigningKeysNotFound)
}

func TestValidateRRset_Secure(t *testing.T) {
	key := testEcKey()

	a := &dns.A{Hdr: dns.RR_Header{Name: "www.example.com.", Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 300}, A: mustIP("192.0.2.1")}
	set := rrset.New("www.example.com.", dns.TypeA, dns.ClassINET)
	require.NoError(t, set.Add(a))

	sig := key.sign([]dns.RR{a}, 0, 0)
	sig.Hdr.Name = "www.example.com."
	require.NoError(t, set.Add(sig))

	out, state, err := ValidateRRset(zoneName, set, []*dns.DNSKEY{key.key})
	require.NoError(t, err)
	assert.Equal(t, Secure, state)
	assert.Equal(t, zoneName, out.SignerName)
}

func mustIP(s string) (ip net.IP) {
	return net.ParseIP(s)
}
