package recognition

import (
	"fmt"
	"strings"
)

// languageNames maps tesseract language codes to names and BCP-47 tags for
// the engines that take natural-language or BCP-47 hints.
var languageNames = map[string]struct{ name, tag string }{
	"eng":     {"English", "en"},
	"hin":     {"Hindi", "hi"},
	"mar":     {"Marathi", "mr"},
	"ben":     {"Bengali", "bn"},
	"tam":     {"Tamil", "ta"},
	"tel":     {"Telugu", "te"},
	"guj":     {"Gujarati", "gu"},
	"pan":     {"Punjabi", "pa"},
	"urd":     {"Urdu", "ur"},
	"fra":     {"French", "fr"},
	"deu":     {"German", "de"},
	"spa":     {"Spanish", "es"},
	"chi_sim": {"Simplified Chinese", "zh"},
}

// languageHints returns BCP-47 tags for the given tesseract codes. Unknown
// codes are passed through.
func languageHints(langs []string) []string {
	hints := make([]string, 0, len(langs))
	for _, l := range langs {
		if n, ok := languageNames[l]; ok {
			hints = append(hints, n.tag)
			continue
		}
		hints = append(hints, l)
	}
	return hints
}

func languageList(langs []string) string {
	names := make([]string, 0, len(langs))
	for _, l := range langs {
		if n, ok := languageNames[l]; ok {
			names = append(names, n.name)
			continue
		}
		names = append(names, l)
	}
	return strings.Join(names, " and ")
}

// transcribePrompt is the instruction shared by the LLM-backed engines
func transcribePrompt(params Params) string {
	return fmt.Sprintf(`The image is a black and white scan of handwritten notes, already binarized.
Transcribe every handwritten word exactly as written. The notes are written in %s.

Rules:
- Treat the page as a single block of text and keep the original line breaks.
- Do not translate, summarize, correct spelling, or add commentary.
- Keep non-Latin scripts in their original script.
- If the page contains no readable text, reply with an empty message.
- Do not use markdown code blocks.`, languageList(params.Languages))
}

// cleanTranscript strips markdown code fences that models add despite the prompt
func cleanTranscript(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return text
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 && !strings.ContainsAny(trimmed[:nl], " \t") {
		// drop an info string such as ```text
		trimmed = trimmed[nl+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimRight(trimmed, " \t\n"), "```")
	return strings.TrimSpace(trimmed)
}
