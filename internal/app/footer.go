package app

import (
	"strconv"
	"strings"
)

// appendReproFooter records the settings an answer was produced with.
func appendReproFooter(markdown string, model string, baseURL string, numDocs int, llmCacheActive bool) string {
	var b strings.Builder
	b.WriteString(markdown)
	b.WriteString("\n\n---\n")
	b.WriteString("Reproducibility: model=")
	b.WriteString(strings.TrimSpace(model))
	b.WriteString("; llm_base_url=")
	b.WriteString(strings.TrimSpace(baseURL))
	b.WriteString("; documents_used=")
	b.WriteString(strconv.Itoa(numDocs))
	b.WriteString("; llm_cache=")
	b.WriteString(strconv.FormatBool(llmCacheActive))
	b.WriteString("\n")
	return b.String()
}
