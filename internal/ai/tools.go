package ai

import (
	"sort"

	"github.com/tmc/langchaingo/prompts"
)

// Tool is one text operation offered to document editors
type Tool struct {
	Name        string
	Description string
	Temperature float64
	// RequiresTarget is set for tools that need a target language
	RequiresTarget bool

	prompt prompts.PromptTemplate
}

const systemPrompt = "You are a writing assistant embedded in a collaborative document editor. " +
	"Answer with the requested output only, without preamble."

var catalogue = buildCatalogue([]Tool{
	{
		Name:        "checkGrammar",
		Description: "Correct grammar, spelling and punctuation",
		Temperature: 0,
		prompt: prompts.NewPromptTemplate(
			"Correct the grammar, spelling and punctuation of the following text. Keep its meaning and tone.\n\n{{.text}}",
			[]string{"text"}),
	},
	{
		Name:        "analyzeTone",
		Description: "Describe the tone of the text",
		Temperature: 0.2,
		prompt: prompts.NewPromptTemplate(
			"Describe the tone of the following text in one short paragraph.\n\n{{.text}}",
			[]string{"text"}),
	},
	{
		Name:        "summarizeText",
		Description: "Summarise the text",
		Temperature: 0.3,
		prompt: prompts.NewPromptTemplate(
			"Summarise the following text in a few sentences.\n\n{{.text}}",
			[]string{"text"}),
	},
	{
		Name:        "rephraseText",
		Description: "Rewrite the text more clearly",
		Temperature: 0.7,
		prompt: prompts.NewPromptTemplate(
			"Rephrase the following text so it reads clearly and naturally.\n\n{{.text}}",
			[]string{"text"}),
	},
	{
		Name:           "translateText",
		Description:    "Translate the text",
		Temperature:    0.1,
		RequiresTarget: true,
		prompt: prompts.NewPromptTemplate(
			"Translate the following text into {{.targetLanguage}}.\n\n{{.text}}",
			[]string{"text", "targetLanguage"}),
	},
	{
		Name:        "extractKeywords",
		Description: "List the key terms of the text",
		Temperature: 0,
		prompt: prompts.NewPromptTemplate(
			"List the most important keywords of the following text as a comma separated list.\n\n{{.text}}",
			[]string{"text"}),
	},
	{
		Name:        "generateTitle",
		Description: "Propose a title for the text",
		Temperature: 0.5,
		prompt: prompts.NewPromptTemplate(
			"Propose one concise title for the following text.\n\n{{.text}}",
			[]string{"text"}),
	},
	{
		Name:        "analyzeReadability",
		Description: "Assess how easy the text is to read",
		Temperature: 0.2,
		prompt: prompts.NewPromptTemplate(
			"Assess the readability of the following text and suggest up to three improvements.\n\n{{.text}}",
			[]string{"text"}),
	},
	{
		Name:        "generateText",
		Description: "Continue or expand the text",
		Temperature: 0.8,
		prompt: prompts.NewPromptTemplate(
			"Continue the following text in the same style.\n\n{{.text}}",
			[]string{"text"}),
	},
})

func buildCatalogue(tools []Tool) map[string]Tool {
	m := make(map[string]Tool, len(tools))
	for _, t := range tools {
		m[t.Name] = t
	}
	return m
}

// LookupTool returns the tool registered under name
func LookupTool(name string) (Tool, bool) {
	t, ok := catalogue[name]
	return t, ok
}

// ToolNames returns every tool name in sorted order
func ToolNames() []string {
	names := make([]string, 0, len(catalogue))
	for name := range catalogue {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Prompt renders the user prompt for text
func (t Tool) Prompt(text, targetLanguage string) (string, error) {
	return t.prompt.Format(map[string]any{
		"text":           text,
		"targetLanguage": targetLanguage,
	})
}
