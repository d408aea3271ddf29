package doe

import (
	"github.com/miekg/dns"
)

const testZone = "example.com."

// mustRR parses a zone-file line, panicking on a malformed fixture since
// these only ever appear as literals in the tests below.
func mustRR(s string) dns.RR {
	rr, err := dns.NewRR(s)
	if err != nil {
		panic(err)
	}
	return rr
}
