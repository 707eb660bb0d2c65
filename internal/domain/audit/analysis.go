package audit

import "strings"

// EvidenceExtraction is what the semantic backend found in one text for one
// criterion.
type EvidenceExtraction struct {
	Relevant bool     `json:"has_relevant_content"`
	Summary  string   `json:"summary"`
	Quotes   []string `json:"quotes"`
}

// Empty reports whether there is nothing to persist. Only content counts;
// the relevance flag is the backend's call and is applied by the client.
func (e EvidenceExtraction) Empty() bool {
	if strings.TrimSpace(e.Summary) != "" {
		return false
	}
	for _, q := range e.Quotes {
		if strings.TrimSpace(q) != "" {
			return false
		}
	}
	return true
}

// CompanyAnalysis is the structured profile derived from a company's raw
// evidence buffer.
type CompanyAnalysis struct {
	Description     string   `json:"description"`
	Sector          string   `json:"sector"`
	Size            string   `json:"size"`
	BusinessType    string   `json:"business_type"`
	TechnologyStack string   `json:"technology_stack"`
	AreasOfFocus    []string `json:"areas_of_focus"`
}

const MaxAreasOfFocus = 10

var CompanySizes = []string{"Micro", "Small", "Medium", "Large", "Enterprise"}

var BusinessTypes = []string{
	"Unknown",
	"B2B",
	"B2C",
	"B2B2C",
	"B2G",
	"C2C",
	"G2B",
	"G2C",
	"P2P",
	"Non-Profit Organisation",
	"Public Institution",
	"Cooperative",
	"Social Enterprise",
	"State-Owned Enterprise",
	"Public-Private Partnership",
	"Other",
}

// Normalize snaps enum fields onto their allowed values, drops blank areas
// and caps the area list.
func (a CompanyAnalysis) Normalize() CompanyAnalysis {
	a.Description = strings.TrimSpace(a.Description)
	a.Sector = strings.TrimSpace(a.Sector)
	a.TechnologyStack = strings.TrimSpace(a.TechnologyStack)
	a.Size = matchEnum(a.Size, CompanySizes, "")
	a.BusinessType = matchEnum(a.BusinessType, BusinessTypes, "Unknown")

	areas := make([]string, 0, len(a.AreasOfFocus))
	seen := map[string]bool{}
	for _, area := range a.AreasOfFocus {
		area = strings.TrimSpace(strings.ReplaceAll(area, ",", " "))
		key := strings.ToLower(area)
		if area == "" || seen[key] {
			continue
		}
		seen[key] = true
		areas = append(areas, area)
		if len(areas) == MaxAreasOfFocus {
			break
		}
	}
	a.AreasOfFocus = areas
	return a
}

func matchEnum(v string, allowed []string, fallback string) string {
	v = strings.TrimSpace(v)
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return a
		}
	}
	return fallback
}
