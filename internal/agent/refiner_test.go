package agent

import (
	"reflect"
	"testing"
)

func TestRefineQueryMissingTerms(t *testing.T) {
	analysis := Analysis{
		AverageRelevance: 0.3,
		MissingTerms:     []string{"sanctions", "exports"},
	}
	evidence := []EvidenceItem{{Content: "maritime shipping routes near ports"}}

	got := RefineQuery("France trade", analysis, evidence)
	want := "France trade related to sanctions and exports in context of maritime shipping, routes near, ports"
	if got != want {
		t.Errorf("RefineQuery = %q, want %q", got, want)
	}
}

func TestRefineQueryMissingTermsNoEvidence(t *testing.T) {
	analysis := Analysis{AverageRelevance: 0.3, MissingTerms: []string{"sanctions"}}

	got := RefineQuery("France trade", analysis, nil)
	if got != "France trade related to sanctions" {
		t.Errorf("RefineQuery = %q", got)
	}
}

func TestRefineQueryLowRelevanceOnly(t *testing.T) {
	analysis := Analysis{AverageRelevance: 0.4}
	evidence := []EvidenceItem{{Content: "customs tariffs applied broadly"}}

	got := RefineQuery("France trade", analysis, evidence)
	if got != "France trade specifically about customs tariffs, applied broadly" {
		t.Errorf("RefineQuery = %q", got)
	}
}

func TestRefineQueryNothingToAdd(t *testing.T) {
	// nothing missing and relevance fine: the query stays as it was
	if got := RefineQuery("France trade", Analysis{AverageRelevance: 0.9}, nil); got != "France trade" {
		t.Errorf("RefineQuery = %q", got)
	}
	// low relevance but no evidence to mine either
	if got := RefineQuery("France trade", Analysis{AverageRelevance: 0.1}, nil); got != "France trade" {
		t.Errorf("RefineQuery = %q", got)
	}
}

func TestMineContextTerms(t *testing.T) {
	evidence := []EvidenceItem{
		{Content: "alpha beta gamma delta"},
		{Content: "alpha beta epsilon zeta"},
	}
	got := mineContextTerms(evidence)
	want := []string{"alpha beta", "gamma delta", "epsilon zeta"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("mineContextTerms = %v, want %v", got, want)
	}
}

func TestMineContextTermsSkipsShortAndStopwords(t *testing.T) {
	evidence := []EvidenceItem{
		{Content: "ox"},
		{Content: "the"},
		{Content: "infrastructure"},
	}
	got := mineContextTerms(evidence)
	if !reflect.DeepEqual(got, []string{"infrastructure"}) {
		t.Errorf("mineContextTerms = %v, want [infrastructure]", got)
	}
}

func TestRefineNewsQuery(t *testing.T) {
	got := RefineNewsQuery("cyber attack")
	if got != "cyber attack latest news updates report" {
		t.Errorf("RefineNewsQuery = %q", got)
	}
}
