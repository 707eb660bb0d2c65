package audit

import (
	"fmt"
	"testing"
)

func TestCompanyAnalysisNormalizeCapsAreas(t *testing.T) {
	areas := make([]string, 0, 14)
	for i := 0; i < 14; i++ {
		areas = append(areas, fmt.Sprintf("Area %d", i))
	}
	areas = append(areas, "area 0", " ")
	got := CompanyAnalysis{AreasOfFocus: areas}.Normalize()
	if len(got.AreasOfFocus) != MaxAreasOfFocus {
		t.Fatalf("expected %d areas, got %d", MaxAreasOfFocus, len(got.AreasOfFocus))
	}
	if got.AreasOfFocus[0] != "Area 0" || got.AreasOfFocus[9] != "Area 9" {
		t.Fatalf("areas should keep their order: %v", got.AreasOfFocus)
	}
}

func TestCompanyAnalysisNormalizeEnums(t *testing.T) {
	got := CompanyAnalysis{Size: "medium", BusinessType: "b2b2c"}.Normalize()
	if got.Size != "Medium" || got.BusinessType != "B2B2C" {
		t.Fatalf("got %+v", got)
	}
	got = CompanyAnalysis{Size: "huge", BusinessType: "crypto"}.Normalize()
	if got.Size != "" || got.BusinessType != "Unknown" {
		t.Fatalf("unknown enum values should fall back, got %+v", got)
	}
}

func TestEvidenceExtractionEmpty(t *testing.T) {
	if !(EvidenceExtraction{}).Empty() {
		t.Fatalf("zero extraction is empty")
	}
	if (EvidenceExtraction{Relevant: false, Summary: "Deploys weekly."}).Empty() {
		t.Fatalf("a summary is content whatever the relevance flag says")
	}
	if (EvidenceExtraction{Relevant: false, Quotes: []string{"ships weekly"}}).Empty() {
		t.Fatalf("a quote is content whatever the relevance flag says")
	}
	if !(EvidenceExtraction{Relevant: true, Summary: "  "}).Empty() {
		t.Fatalf("a relevant extraction with blank content is empty")
	}
	if !(EvidenceExtraction{Relevant: true, Quotes: []string{" "}}).Empty() {
		t.Fatalf("blank quotes are empty")
	}
	if (EvidenceExtraction{Relevant: true, Quotes: []string{"We ship weekly."}}).Empty() {
		t.Fatalf("a quote is not empty")
	}
}
