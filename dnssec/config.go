package dnssec

const (
	DefaultRequireAllSignaturesValid = false
)

// RequireAllSignaturesValid controls signatures.Verify's per-RRset policy.
//
// If false (default), one or more RRSIG per RRset must be valid for the
// group to pass. If true, every RRSIG covering the RRset must be valid.
//
// https://datatracker.ietf.org/doc/html/rfc4035#section-5.3.3
//
//	If other RRSIG RRs also cover this RRset, the local resolver security
//	policy determines whether the resolver also has to test these RRSIG
//	RRs and how to resolve conflicts if these RRSIG RRs lead to differing
//	results.
var RequireAllSignaturesValid = DefaultRequireAllSignaturesValid

type Logger func(string)

// Default logging functions just black-hole the input.

var Debug Logger = func(s string) {}
var Info Logger = func(s string) {}
var Warn Logger = func(s string) {}
