package reconcile

import (
	"testing"

	"github.com/Priya8975/broadcast-review/internal/domain"
)

func TestMatchScore(t *testing.T) {
	cohort := [4]string{"gw", "X", "id1", "id2"}
	tests := []struct {
		name string
		rule [4]string
		want int
	}{
		{"all wildcards", [4]string{"*", "*", "*", "*"}, 0},
		{"operator only", [4]string{"*", "X", "*", "*"}, 2},
		{"gateway only", [4]string{"gw", "*", "*", "*"}, 1},
		{"identifier2 only", [4]string{"*", "*", "*", "id2"}, 8},
		{"all literal", [4]string{"gw", "X", "id1", "id2"}, 15},
		{"mismatch dominates", [4]string{"gw", "X", "id1", "other"}, 0},
		{"mismatch on gateway", [4]string{"other", "X", "*", "*"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchScore(tt.rule, cohort); got != tt.want {
				t.Errorf("expected score %d, got %d", tt.want, got)
			}
		})
	}
}

func TestMatchScore_MoreLiteralsAlwaysWin(t *testing.T) {
	cohort := [4]string{"a", "b", "c", "d"}
	for mask := 0; mask < 16; mask++ {
		for k := 0; k < 4; k++ {
			if mask&(1<<k) != 0 {
				continue
			}
			general := ruleFromMask(mask, cohort)
			specific := ruleFromMask(mask|1<<k, cohort)
			if MatchScore(specific, cohort) <= MatchScore(general, cohort) {
				t.Errorf("rule %v should outscore %v", specific, general)
			}
		}
	}
}

func ruleFromMask(mask int, cohort [4]string) [4]string {
	var rule [4]string
	for k := range rule {
		rule[k] = domain.Wildcard
		if mask&(1<<k) != 0 {
			rule[k] = cohort[k]
		}
	}
	return rule
}

func testConfig(rules ...domain.ConfigRule) domain.ConfigTable {
	return domain.ConfigTable{
		MetadataColumns: []string{domain.ColumnMinExpected, domain.ColumnMaxExpected, "handled_by"},
		Rules:           rules,
	}
}

func rule(gateway, operator, sid1, sid2 string, metadata ...string) domain.ConfigRule {
	return domain.ConfigRule{
		Gateway:            gateway,
		OperatorCode:       operator,
		ServiceIdentifier1: sid1,
		ServiceIdentifier2: sid2,
		Metadata:           metadata,
	}
}

func TestMatchBroadcastConfig_PicksFirstBestRule(t *testing.T) {
	cohorts := []domain.Cohort{{CohortKey: domain.CohortKey{Gateway: "gw", OperatorCode: "X"}}}
	config := testConfig(
		rule("*", "X", "*", "*", "1", "4", "alice"),
		rule("*", "*", "*", "*", "0", "9", "bob"),
		rule("*", "X", "*", "*", "2", "5", "carol"),
	)

	got := MatchBroadcastConfig(cohorts, config)

	if got[0].Metadata[2] != "alice" {
		t.Errorf("expected first operator rule (alice), got %q", got[0].Metadata[2])
	}
	if got[0].Muted {
		t.Error("cohort with positive bounds should not be muted")
	}
}

func TestMatchBroadcastConfig_UnmatchedGetsSentinel(t *testing.T) {
	cohorts := []domain.Cohort{{CohortKey: domain.CohortKey{Gateway: "gw", OperatorCode: "X"}}}
	config := testConfig(
		rule("*", "*", "*", "*", "-1", "-1", "bob"),
		rule("*", "Y", "*", "*", "1", "2", "carol"),
	)

	got := MatchBroadcastConfig(cohorts, config)

	for i, v := range got[0].Metadata {
		if v != domain.Unmatched {
			t.Errorf("metadata %d: expected %q, got %q", i, domain.Unmatched, v)
		}
	}
	if got[0].Muted {
		t.Error("unmatched cohort should not be muted")
	}
}

func TestMatchBroadcastConfig_Muted(t *testing.T) {
	tests := []struct {
		name     string
		min, max string
		want     bool
	}{
		{"both negative", "-1", "-1", true},
		{"decimal negatives", "-0.5", "-2.0", true},
		{"only min negative", "-1", "3", false},
		{"non numeric", "?", "-1", false},
		{"blank", "", "", false},
		{"zero", "0", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cohorts := []domain.Cohort{{CohortKey: domain.CohortKey{OperatorCode: "X"}}}
			got := MatchBroadcastConfig(cohorts, testConfig(rule("*", "X", "*", "*", tt.min, tt.max, "ops")))
			if got[0].Muted != tt.want {
				t.Errorf("expected muted=%v, got %v", tt.want, got[0].Muted)
			}
		})
	}
}

func TestMatchBroadcastConfig_WithoutBoundColumns(t *testing.T) {
	cohorts := []domain.Cohort{{CohortKey: domain.CohortKey{OperatorCode: "X"}}}
	config := domain.ConfigTable{
		MetadataColumns: []string{"handled_by"},
		Rules:           []domain.ConfigRule{rule("*", "X", "*", "*", "ops")},
	}

	got := MatchBroadcastConfig(cohorts, config)

	if got[0].Muted {
		t.Error("cohort should not be muted when bound columns are absent")
	}
	if got[0].Metadata[0] != "ops" {
		t.Errorf("expected metadata ops, got %q", got[0].Metadata[0])
	}
}
