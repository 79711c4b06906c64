// Package reconcile links active subscribers to their transactions and
// tabulates, per cohort, how many users had each transaction count.
//
// Everything in this package works on already-fetched tables. It does no
// I/O, keeps no state between calls and never mutates its inputs.
package reconcile

import (
	"strings"

	"github.com/Priya8975/broadcast-review/internal/domain"
)

// LinkKey is a field used to link users without a rockman id to transactions.
type LinkKey int

const (
	KeyMSISDN LinkKey = iota
	KeyPlatform
	KeyServiceIdentifier2
)

func (k LinkKey) String() string {
	switch k {
	case KeyMSISDN:
		return "msisdn"
	case KeyPlatform:
		return "platform"
	case KeyServiceIdentifier2:
		return "service_identifier2"
	default:
		return "unknown"
	}
}

// CountryPolicy holds the country-specific rules of a reconciliation run.
type CountryPolicy struct {
	Country string
	// LinkKeys join users that have no rockman id to transactions.
	LinkKeys []LinkKey
	// ServiceIdentifier2Prefix is removed from service_identifier2 during enrichment.
	ServiceIdentifier2Prefix string
}

var defaultLinkKeys = []LinkKey{KeyMSISDN, KeyPlatform, KeyServiceIdentifier2}

var countryPolicies = map[string]CountryPolicy{
	"BE": {LinkKeys: []LinkKey{KeyMSISDN}},
	"IQ": {LinkKeys: []LinkKey{KeyMSISDN, KeyServiceIdentifier2}},
	"MY": {ServiceIdentifier2Prefix: "ON "},
}

// PolicyFor resolves the policy of a country. Countries without an entry get
// the default link keys and no normalization.
func PolicyFor(country string) CountryPolicy {
	p := countryPolicies[country]
	p.Country = country
	if len(p.LinkKeys) == 0 {
		p.LinkKeys = defaultLinkKeys
	}
	return p
}

const keySep = "\x1f"

func (p CountryPolicy) userKey(u domain.ActiveUser) string {
	parts := make([]string, len(p.LinkKeys))
	for i, k := range p.LinkKeys {
		switch k {
		case KeyMSISDN:
			parts[i] = u.MSISDN
		case KeyPlatform:
			parts[i] = u.Platform
		case KeyServiceIdentifier2:
			parts[i] = u.ServiceIdentifier2
		}
	}
	return strings.Join(parts, keySep)
}

func (p CountryPolicy) transactionKey(t domain.Transaction) string {
	parts := make([]string, len(p.LinkKeys))
	for i, k := range p.LinkKeys {
		switch k {
		case KeyMSISDN:
			parts[i] = t.MSISDN
		case KeyPlatform:
			parts[i] = t.Platform
		case KeyServiceIdentifier2:
			parts[i] = t.ServiceIdentifier2
		}
	}
	return strings.Join(parts, keySep)
}
