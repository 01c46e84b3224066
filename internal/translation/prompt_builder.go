package translation

import (
	"fmt"
	"strings"
)

// batchSeparator separates the texts of a batch answer.
const batchSeparator = "|||"

// PromptBuilder constructs system and user prompts for translation.
type PromptBuilder struct{}

// NewPromptBuilder creates a new prompt builder.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

const systemPrompt = `You are a professional video game localizer translating text from Bethesda role-playing games (Skyrim, Fallout 4, Starfield) and their mods from %s to %s.

Rules:
1. Translate the text to %s.
2. Use the established terminology of the official %s release of the game.
3. Preserve ALL placeholders like {{var_1}}, {{var_2}}, etc. and copy them exactly as-is into your translation.
4. Preserve line breaks and punctuation style.
5. Output ONLY the translation, nothing else.
6. Do NOT add explanations, notes, or extra text.
7. Item, spell and location names stay short, like the original.
8. Maintain the same tone and register as the original.`

// SystemPrompt returns the system prompt for a language pair.
func (pb *PromptBuilder) SystemPrompt(src, dst string) string {
	src, dst = languageName(src), languageName(dst)
	return fmt.Sprintf(systemPrompt, src, dst, dst, dst)
}

// BuildUserPrompt constructs the prompt for a single text. Suggestions from
// the translation memory are listed as reference when present.
func (pb *PromptBuilder) BuildUserPrompt(text string, references map[string]string) string {
	var sb strings.Builder
	writeReferences(&sb, references)
	sb.WriteString(fmt.Sprintf("Text to translate:\n%s", text))
	return sb.String()
}

// BuildBatchUserPrompt constructs a prompt for batch translations.
func (pb *PromptBuilder) BuildBatchUserPrompt(texts []string, references map[string]string) string {
	var sb strings.Builder
	writeReferences(&sb, references)

	sb.WriteString("Translate each text below. Return ONLY the translations, separated by " + batchSeparator + " delimiter, in the same order, without the [n] markers.\n\n")
	for i, t := range texts {
		sb.WriteString(fmt.Sprintf("[%d] %s\n", i+1, t))
	}
	return sb.String()
}

func writeReferences(sb *strings.Builder, references map[string]string) {
	if len(references) == 0 {
		return
	}
	sb.WriteString("=== Existing Translations (USE THESE AS REFERENCE) ===\n")
	for src, dst := range references {
		sb.WriteString(fmt.Sprintf("• %s → %s\n", src, dst))
	}
	sb.WriteString("\n")
}

// splitBatch parses a batch answer. Missing entries are empty.
func splitBatch(response string, n int) []string {
	parts := strings.Split(response, batchSeparator)
	out := make([]string, n)
	for i := range out {
		if i < len(parts) {
			out[i] = strings.TrimSpace(parts[i])
		}
	}
	return out
}

func languageName(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
