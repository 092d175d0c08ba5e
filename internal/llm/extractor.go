package llm

import (
	"fmt"
	"strings"
)

// ExtractionSchema defines the structure for LLM-based content extraction.
type ExtractionSchema struct {
	Name        string        // Schema name (e.g., "CompanyHighlights")
	Description string        // System prompt preamble describing the extraction task
	Fields      []SchemaField // Expected output fields
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint: "string", "[]string"
	Description string // Description for the LLM
	Required    bool   // Whether this field is required
}

// BuildExtractionPrompt constructs the LLM prompt from schema and input text.
func BuildExtractionPrompt(schema ExtractionSchema, inputText string) string {
	var sb strings.Builder

	sb.WriteString(schema.Description)
	sb.WriteString("\n\n")

	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "string"
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		sb.WriteString(fmt.Sprintf("  %q: %s%s", field.Name, typeHint, requiredHint))
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Use only facts stated in the text. Do not invent details.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n\n")

	sb.WriteString("Input text:\n\"\"\"\n")
	sb.WriteString(inputText)
	sb.WriteString("\n\"\"\"\n")

	return sb.String()
}

// CompanyHighlightsSchema extracts the facts about a hiring company that make a recruiting pitch specific.
func CompanyHighlightsSchema() ExtractionSchema {
	return ExtractionSchema{
		Name: "CompanyHighlights",
		Description: `You are a recruiting researcher. Read the text from a company's website and
pull out what a strong engineer would find compelling about working there.`,
		Fields: []SchemaField{
			{
				Name:        "mission",
				Type:        "\"string\"",
				Description: "One sentence on what the company does and why",
				Required:    true,
			},
			{
				Name:        "products",
				Type:        "[\"string\"]",
				Description: "Main products or services",
				Required:    false,
			},
			{
				Name:        "culture",
				Type:        "[\"string\"]",
				Description: "Values, ways of working, benefits stated on the site",
				Required:    false,
			},
			{
				Name:        "recent_news",
				Type:        "[\"string\"]",
				Description: "Funding, launches or milestones mentioned",
				Required:    false,
			},
		},
	}
}
