// Package dnsval implements the stub-layer DNSSEC validating resolver: it
// sits in front of an iterative or forwarding resolver supplied as a
// Transport, classifies each reply per RFC 4033-4035 and RFC 5155, and
// returns it Secure (AD=1), Bogus (SERVFAIL+EDE) or Insecure (unmodified,
// AD=0).
package dnsval

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hadrianlabs/dnsval/dnssec"
)

const (
	// DefaultMaxCacheTTL caps how long a CacheRRset is allowed to live,
	// regardless of the TTL the authority served it with.
	DefaultMaxCacheTTL = 6 * time.Hour

	// DefaultMaxNegativeCacheTTL caps negative (NXDOMAIN/NODATA) entries,
	// in addition to the SOA MINIMUM bound RFC 2308 already imposes.
	DefaultMaxNegativeCacheTTL = 3 * time.Hour

	// DefaultMaxCacheEntries bounds the number of distinct (name,type)
	// entries held in the credibility cache.
	DefaultMaxCacheEntries = 50_000

	// DefaultMaxNSEC3Iterations is the policy threshold beyond which an
	// NSEC3 record is treated as unusable for denial of existence, per
	// RFC 5155 §10.3's iteration-count guidance.
	DefaultMaxNSEC3Iterations = 150

	// DefaultAddReasonToAdditional controls whether a human-readable
	// validation-failure reason is synthesized as a TXT record in
	// ADDITIONAL alongside the EDE option.
	DefaultAddReasonToAdditional = true

	// DefaultValidationReasonClass is the qclass used for the synthetic
	// reason TXT record, chosen to sit outside the standard classes.
	DefaultValidationReasonClass = 65280

	// DefaultMaxFindKeyIterations caps the trust-anchor-to-signer walk,
	// breaking cycles such as CNAME loops across zones.
	DefaultMaxFindKeyIterations = 16
)

// Config carries the scalar options spec.md §6 recognizes.
type Config struct {
	// TrustAnchorFile, if non-empty, is loaded via keycache.LoadZoneFile at
	// NewResolver time. When empty the built-in IANA root anchor is used.
	TrustAnchorFile string

	MaxCacheTTL           time.Duration
	MaxNegativeCacheTTL   time.Duration
	MaxCacheEntries       int
	MaxNSEC3Iterations    int
	AddReasonToAdditional bool
	ValidationReasonClass uint16
	MaxFindKeyIterations  int
}

// NewConfig returns a Config populated with the package defaults.
func NewConfig() Config {
	return Config{
		MaxCacheTTL:           DefaultMaxCacheTTL,
		MaxNegativeCacheTTL:   DefaultMaxNegativeCacheTTL,
		MaxCacheEntries:       DefaultMaxCacheEntries,
		MaxNSEC3Iterations:    DefaultMaxNSEC3Iterations,
		AddReasonToAdditional: DefaultAddReasonToAdditional,
		ValidationReasonClass: DefaultValidationReasonClass,
		MaxFindKeyIterations:  DefaultMaxFindKeyIterations,
	}
}

// Logger is the hook type every package in this module logs through.
type Logger func(string)

// log is the package's default structured logger; callers replace Query,
// Debug, Info and Warn wholesale to redirect output elsewhere.
var log = logrus.New()

var Query Logger = func(s string) { log.Trace(s) }
var Debug Logger = func(s string) { log.Debug(s) }
var Info Logger = func(s string) { log.Info(s) }
var Warn Logger = func(s string) { log.Warn(s) }

func init() {
	dnssec.Info = func(s string) { Info(s) }
	dnssec.Warn = func(s string) { Warn(s) }
	dnssec.Debug = func(s string) { Debug(s) }
}
