package dnssec

import (
	"errors"

	"github.com/miekg/dns"
)

// BestEDECode maps a validation failure to the RFC 8914 Extended DNS Error
// INFO-CODE that best explains it, per spec.md §7. It inspects err with
// errors.Is against the sentinels this package returns, falling back to
// ExtendedErrorCodeDNSSECBogus for anything it doesn't specifically
// recognise, since BestEDECode is only ever called once the overall result
// has already been decided Bogus.
func BestEDECode(err error) uint16 {
	switch {
	case err == nil:
		return dns.ExtendedErrorCodeOther
	case errors.Is(err, ErrKeysNotFound), errors.Is(err, ErrKeySigningKeysNotFound):
		return dns.ExtendedErrorCodeDNSKEYMissing
	case errors.Is(err, ErrSignatureSetEmpty), errors.Is(err, ErrUnexpectedSignatureCount):
		return dns.ExtendedErrorCodeRRSIGsMissing
	case errors.Is(err, ErrInvalidTime):
		return dns.ExtendedErrorCodeSignatureExpired
	case errors.Is(err, ErrInvalidSignature), errors.Is(err, ErrUnableToVerify), errors.Is(err, ErrAuthSignerNameMismatch),
		errors.Is(err, ErrInvalidLabelCount), errors.Is(err, ErrSignerNameNotParentOfQName):
		return dns.ExtendedErrorCodeDNSSECBogus
	case errors.Is(err, ErrBogusDoeRecordsNotFound):
		return dns.ExtendedErrorCodeNSECMissing
	case errors.Is(err, ErrNoDSRecords):
		return dns.ExtendedErrorCodeDNSSECIndeterminate
	case errors.Is(err, ErrFailsafeResponse), errors.Is(err, ErrBogusResultFound):
		return dns.ExtendedErrorCodeDNSSECBogus
	default:
		return dns.ExtendedErrorCodeDNSSECBogus
	}
}

// ExtendedError builds the EDNS0_EDE option to attach to a SERVFAIL
// response, per spec.md §7: the INFO-CODE from BestEDECode plus a short
// EXTRA-TEXT rendering of err.
func ExtendedError(err error) *dns.EDNS0_EDE {
	ede := &dns.EDNS0_EDE{InfoCode: BestEDECode(err)}
	if err != nil {
		ede.ExtraText = err.Error()
	}
	return ede
}
