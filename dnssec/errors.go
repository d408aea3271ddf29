package dnssec

import "errors"

var (
	ErrNoDSRecords                = errors.New("no DS records passed")
	ErrKeysNotFound                = errors.New("no dnskey records found for zone")
	ErrKeySigningKeysNotFound      = errors.New("no dnskey records found that match the parent ds records")
	ErrAuthSignerNameMismatch      = errors.New("zone does not match the rrsig's signer name")
	ErrSignatureSetEmpty           = errors.New("cannot verify an empty signature set")
	ErrUnableToVerify              = errors.New("unable to verify signature")
	ErrVerifyFailed                = errors.New("one or more signatures failed to verify")
	ErrInvalidTime                 = errors.New("current time is outside of the rrsig validity period")
	ErrInvalidSignature            = errors.New("rrsig signature is invalid")
	ErrInvalidLabelCount           = errors.New("number of labels in the rrset owner name is less than the rrsig's labels field")
	ErrMultipleVaryingSignerNames  = errors.New("rrsigs in the response carry multiple varying signer names")
	ErrUnexpectedSignatureCount    = errors.New("unexpected number of rrsig records given the name/type combinations seen")
	ErrMultipleWildcardSignatures  = errors.New("multiple wildcard signatures seen for the same name/type")
	ErrSignerNameNotParentOfQName  = errors.New("the signer name is not an ancestor of the qname")
	ErrBogusResultFound            = errors.New("the chain of trust produced a bogus result")
	ErrBogusDoeRecordsNotFound     = errors.New("denial of existence records required but not found")
	ErrFailsafeResponse            = errors.New("unable to classify the response as delegating, positive or negative; failing safe to bogus")
)
