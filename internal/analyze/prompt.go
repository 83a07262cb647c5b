package analyze

import "strings"

// Worked example shown to the model. It is a literal exemplar, not generated.
const promptExample = `[
  {
    "title": "Random Walk Theory",
    "summary": "The Random Walk Theory posits that stock market prices evolve according to a random walk and thus cannot be predicted. This idea is a cornerstone of the [[Efficient Market Hypothesis]] and challenges the effectiveness of [[Technical Analysis]].",
    "tags": ["market-theory", "stock-prices"]
  },
  {
    "title": "Efficient Market Hypothesis",
    "summary": "The Efficient Market Hypothesis (EMH) asserts that financial markets are 'informationally efficient,' meaning prices fully reflect all available information. This theory is built upon the [[Random Walk Theory]].",
    "tags": ["market-efficiency", "investment-theory"]
  }
]`

var promptGuidelines = []string{
	"Each note should be self-contained and understandable on its own",
	"Use [[wikilinks]] to connect related concepts within summaries",
	"Tags should be lowercase and use hyphens instead of spaces",
	"Focus on the most important and distinct concepts",
	"Avoid creating notes for very basic or common terms unless they're specifically defined in the text",
	"Keep summaries concise but informative (2-4 sentences)",
	"Return only the JSON array, with no commentary before or after it",
}

// BuildPrompt returns the extraction instruction for text.
// It never fails; empty text still yields a complete prompt.
func BuildPrompt(text string) string {
	return BuildPromptFor("", text)
}

// BuildPromptFor is BuildPrompt with the source named in the task framing
func BuildPromptFor(source, text string) string {
	var b strings.Builder

	b.WriteString("You are an AI expert in knowledge management, specifically the Zettelkasten and atomic note-taking method. ")
	if source = strings.TrimSpace(source); source != "" {
		b.WriteString("Your task is to analyze the following text from \"" + source + "\".\n\n")
	} else {
		b.WriteString("Your task is to analyze the following text.\n\n")
	}

	b.WriteString("Perform the following actions:\n\n")
	b.WriteString("1. Read the text and identify all distinct, core concepts, theories, or key terms.\n")
	b.WriteString("2. For each concept, write a concise, self-contained summary (an \"atomic note\").\n")
	b.WriteString("3. Within each summary, identify where other concepts you've found are mentioned and wrap their exact names in [[wikilinks]].\n")
	b.WriteString("4. Return the output as a single JSON array of objects, where each object represents a single atomic note and has three keys: \"title\", \"summary\", and \"tags\".\n\n")

	b.WriteString("Example JSON Output:\n")
	b.WriteString(promptExample)
	b.WriteString("\n\nGuidelines:\n")
	for _, g := range promptGuidelines {
		b.WriteString("- " + g + "\n")
	}

	b.WriteString("\nNow, analyze this text:\n\n")
	b.WriteString(text)

	return b.String()
}
