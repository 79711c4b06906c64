package domain

import "strconv"

// Wildcard matches any value in a drilldown column.
const Wildcard = "*"

// Unmatched fills every metadata column of a cohort no rule matched.
const Unmatched = "?"

// Metadata columns that drive muting.
const (
	ColumnMinExpected = "minimum_expected_transactions"
	ColumnMaxExpected = "maximum_expected_transactions"
)

// DrilldownColumns are matched against cohorts in this order; position k weighs 2^k.
var DrilldownColumns = []string{"gateway", "operator_code", "service_identifier1", "service_identifier2"}

// CohortColumns name the cohort key fields in report order.
var CohortColumns = []string{"platform", "gateway", "operator_code", "service_identifier1", "service_identifier2", "frequency"}

type CohortKey struct {
	Platform           string `json:"platform"`
	Gateway            string `json:"gateway"`
	OperatorCode       string `json:"operator_code"`
	ServiceIdentifier1 string `json:"service_identifier1"`
	ServiceIdentifier2 string `json:"service_identifier2"`
	Frequency          int    `json:"frequency"`
}

// Values renders the key in CohortColumns order.
func (k CohortKey) Values() []string {
	return []string{
		k.Platform,
		k.Gateway,
		k.OperatorCode,
		k.ServiceIdentifier1,
		k.ServiceIdentifier2,
		strconv.Itoa(k.Frequency),
	}
}

// Drilldown returns the key's value for each of DrilldownColumns.
func (k CohortKey) Drilldown() [4]string {
	return [4]string{k.Gateway, k.OperatorCode, k.ServiceIdentifier1, k.ServiceIdentifier2}
}

// Less orders keys by the tuple (platform, gateway, operator, id1, id2, frequency).
func (k CohortKey) Less(o CohortKey) bool {
	if k.Platform != o.Platform {
		return k.Platform < o.Platform
	}
	if k.Gateway != o.Gateway {
		return k.Gateway < o.Gateway
	}
	if k.OperatorCode != o.OperatorCode {
		return k.OperatorCode < o.OperatorCode
	}
	if k.ServiceIdentifier1 != o.ServiceIdentifier1 {
		return k.ServiceIdentifier1 < o.ServiceIdentifier1
	}
	if k.ServiceIdentifier2 != o.ServiceIdentifier2 {
		return k.ServiceIdentifier2 < o.ServiceIdentifier2
	}
	return k.Frequency < o.Frequency
}

type Cohort struct {
	CohortKey
	ActiveUsers int      `json:"active_users"`
	Metadata    []string `json:"metadata"`
	Muted       bool     `json:"muted"`
}

type ConfigRule struct {
	CountryCode        string   `json:"country_code"`
	Gateway            string   `json:"gateway"`
	OperatorCode       string   `json:"operator_code"`
	ServiceIdentifier1 string   `json:"service_identifier1"`
	ServiceIdentifier2 string   `json:"service_identifier2"`
	Metadata           []string `json:"metadata"`
}

// Drilldown returns the rule's value for each of DrilldownColumns.
func (r ConfigRule) Drilldown() [4]string {
	return [4]string{r.Gateway, r.OperatorCode, r.ServiceIdentifier1, r.ServiceIdentifier2}
}

// ConfigTable is the broadcast configuration sheet. Every rule carries one
// metadata value per entry of MetadataColumns.
type ConfigTable struct {
	MetadataColumns []string     `json:"metadata_columns"`
	Rules           []ConfigRule `json:"rules"`
}

// ForCountry returns the rules configured for one country, in sheet order.
func (t ConfigTable) ForCountry(country string) ConfigTable {
	out := ConfigTable{MetadataColumns: t.MetadataColumns}
	for _, r := range t.Rules {
		if r.CountryCode == country {
			out.Rules = append(out.Rules, r)
		}
	}
	return out
}

// Countries lists the distinct country codes in first-appearance order.
func (t ConfigTable) Countries() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range t.Rules {
		if _, ok := seen[r.CountryCode]; ok {
			continue
		}
		seen[r.CountryCode] = struct{}{}
		out = append(out, r.CountryCode)
	}
	return out
}

// MetadataIndex returns the position of a metadata column, or -1.
func (t ConfigTable) MetadataIndex(column string) int {
	for i, c := range t.MetadataColumns {
		if c == column {
			return i
		}
	}
	return -1
}
