package openai

import (
	"fmt"
	"strings"

	types "github.com/yungbote/auditbridge-backend/internal/domain/audit"
	oai "github.com/yungbote/auditbridge-backend/internal/platform/openai"
)

const (
	auditorVoice = "Always use British English."

	captionSystem = "You are an expert technical and product auditor. " + auditorVoice +
		" Your task is to analyse images for a technical and product audit process."
	captionUser = "Analyse this image for our technical and product audit. If it is irrelevant " +
		"(a logo, decoration or an unrelated picture), respond with 'irrelevant'. Otherwise provide a " +
		"detailed description of the content, especially if it is a system screenshot, architecture " +
		"diagram, process chart or documentation. Focus on factual information without assessing maturity."

	extractSystem = "You are an expert auditor tasked with extracting relevant evidence from documents " +
		"based on specific criteria. " + auditorVoice + " Given the criteria and a document, return a " +
		"summary and relevant quotes from the document that pertain to the criteria. The summary should be " +
		"a concise overview of the relevant content. Quotes should be exact, a sentence to a paragraph long, " +
		"and help an expert auditor assess the maturity of the organisation's technology and product functions."

	questionsSystem = "You are an expert auditor assessing the maturity of an organisation's technical and " +
		"product departments against specific criteria and the available evidence. " + auditorVoice +
		" First decide whether the evidence is sufficient to assess the maturity level. If it is, generate " +
		"questions that dig deeper into the most relevant areas of the evidence. If it is not, generate " +
		"questions that fill the gaps needed for a maturity assessment."

	analyzeSystem = "You are an expert that systematically reads, understands and consolidates company " +
		"information. " + auditorVoice

	summarizeSystemTmpl = "Within the following content find specific company information in these areas. " +
		"Leave out any area you cannot determine accurately from the text. " +
		"What the company is known for and what it offers, focusing on the product rather than its implementation unless that is core to the offering. " +
		"The sector the company operates in. " +
		"The size of the company (unknown, micro, small, medium, large). " +
		"The type of business (B2B, B2C or a mix). " +
		"The main technologies used by the company and its platforms. " +
		"Its areas of focus: the markets it serves and the kinds of business it does. " +
		"The company is called %s and the content comes from a %s file. Only include accurate information."
)

func criterionBlock(c *types.Criterion) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Criteria:\nTitle: %s\nDescription: %s\n", c.Title, c.Description)
	fmt.Fprintf(&b, "Maturity Definitions:\n%s\n", c.FormatLevels())
	return b.String()
}

func extractUser(c *types.Criterion, text string) string {
	return criterionBlock(c) + "\nSource Document Content:\n" + text
}

func questionsUser(c *types.Criterion, evidence string) string {
	return criterionBlock(c) + "\nAvailable Evidence:\n" + evidence
}

func summarizeSystem(companyName, category string) string {
	if strings.TrimSpace(companyName) == "" {
		companyName = "the company"
	}
	if strings.TrimSpace(category) == "" {
		category = "document"
	}
	return fmt.Sprintf(summarizeSystemTmpl, companyName, category)
}

var describeImageTool = oai.Tool{
	Name:        "describe_image",
	Description: "Describes the content of an image relevant to a technical and product audit",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"description": map[string]any{
				"type":        "string",
				"description": "A detailed description of the image content, or 'irrelevant' if the image is not relevant to the audit",
			},
		},
		"required": []string{"description"},
	},
}

var extractEvidenceTool = oai.Tool{
	Name:        "extract_relevant_content",
	Description: "Extracts relevant content from the document that pertains to the criteria.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"has_relevant_content": map[string]any{
				"type":        "boolean",
				"description": "True if the document has relevant content for the criteria.",
			},
			"summary": map[string]any{
				"type":        "string",
				"description": "A concise summary of the relevant content. Empty if has_relevant_content is false.",
			},
			"quotes": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Exact quotes from the source that would help an expert auditor assess maturity. Empty if has_relevant_content is false.",
			},
		},
		"required": []string{"has_relevant_content"},
	},
}

var generateQuestionsTool = oai.Tool{
	Name:        "generate_questions",
	Description: "Generates questions to help assess the maturity level based on the criteria and available evidence.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"evidence_sufficient": map[string]any{
				"type":        "boolean",
				"description": "True if the current evidence is sufficient to assess the maturity level.",
			},
			"questions": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Questions that either dig deeper into existing evidence or fill knowledge gaps.",
			},
		},
		"required": []string{"evidence_sufficient", "questions"},
	},
}

var companyInfoTool = oai.Tool{
	Name:        "extract_company_info",
	Description: "Extracts company information from the provided text. Use 'unknown' where the text does not support an accurate answer.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"description": map[string]any{
				"type": "string",
				"description": "A 100-200 word factual overview of the company's core products, services and value proposition: " +
					"main offering and market position, key products, customer benefits, distinctive capabilities and target segments. " +
					"Present tense, active voice, no marketing language.",
			},
			"sector": map[string]any{
				"type":        "string",
				"description": "Primary economic sector (GICS/NACE top level). For diversified businesses pick the largest revenue sector.",
			},
			"size": map[string]any{
				"type":        "string",
				"description": "Micro (<10 staff), Small (10-49), Medium (50-249), Large (250-999) or Enterprise (1000+).",
				"enum":        types.CompanySizes,
			},
			"business_type": map[string]any{
				"type":        "string",
				"description": "The type of business (B2B, B2C, etc.).",
				"enum":        types.BusinessTypes,
			},
			"technology_stack": map[string]any{
				"type": "string",
				"description": "Key technology components across the organisation: data storage, backend, frontend, mobile, " +
					"infrastructure, security, observability, developer tooling, enterprise SaaS, integration, AI/ML and content management.",
			},
			"areas_of_focus": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Market segments and specialised domains the company serves, each a concise 1-2 word term (e.g. FinTech, Supply Chain, DevOps).",
			},
		},
		"required": []string{"description", "sector", "size", "business_type", "technology_stack", "areas_of_focus"},
	},
}
