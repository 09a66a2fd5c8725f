package budget

import (
    "math"
    "sort"
    "strings"
)

// EstimateTokensFromChars converts a character count into a token estimate
// at roughly four characters per token, rounding up.
func EstimateTokensFromChars(charCount int) int {
    if charCount <= 0 {
        return 0
    }
    return int(math.Ceil(float64(charCount) / 4.0))
}

// EstimateTokens returns the estimated token count of s.
func EstimateTokens(s string) int {
    return EstimateTokensFromChars(len(s))
}

// EstimatePromptTokens estimates a prompt made of a system message, a user
// message and retrieved documents.
func EstimatePromptTokens(system string, user string, docs []string) int {
    total := EstimateTokens(system) + EstimateTokens(user)
    for _, d := range docs {
        total += EstimateTokens(d)
    }
    return total
}

// knownModelMax holds rough context sizes keyed by model family. Azure
// deployment names such as "gpt-4o-2024-05-13-api" match by prefix.
var knownModelMax = map[string]int{
    "gpt-4o":        128_000,
    "gpt-4o-mini":   128_000,
    "gpt-4-turbo":   128_000,
    "gpt-4.1":       1_000_000,
    "gpt-4-32k":     32_768,
    "gpt-4":         8_192,
    "gpt-35-turbo":  16_384,
    "gpt-3.5-turbo": 16_384,
    "llama-3.1":     128_000,
    "llama-3":       8_192,
}

// prefixes sorted longest first so "gpt-4o-mini" wins over "gpt-4o" and "gpt-4".
var knownPrefixes = func() []string {
    keys := make([]string, 0, len(knownModelMax))
    for k := range knownModelMax {
        keys = append(keys, k)
    }
    sort.Slice(keys, func(i, j int) bool {
        if len(keys[i]) != len(keys[j]) {
            return len(keys[i]) > len(keys[j])
        }
        return keys[i] < keys[j]
    })
    return keys
}()

// ModelContextTokens returns an estimated context window for a model or
// deployment name. Unknown models get 8192.
func ModelContextTokens(modelName string) int {
    name := strings.ToLower(strings.TrimSpace(modelName))
    if name == "" {
        return 8192
    }
    for _, p := range knownPrefixes {
        if strings.HasPrefix(name, p) {
            return knownModelMax[p]
        }
    }
    switch {
    case strings.HasSuffix(name, "128k"):
        return 128_000
    case strings.HasSuffix(name, "32k"):
        return 32_768
    }
    return 8192
}

// HeadroomTokens is the larger of 5% of the model context and 512 tokens,
// kept free for tokenizer and message framing overheads.
func HeadroomTokens(modelName string) int {
    dyn := int(math.Ceil(float64(ModelContextTokens(modelName)) * 0.05))
    if dyn < 512 {
        return 512
    }
    return dyn
}

// RemainingContext computes the input tokens left after the prompt, the
// output reservation and the headroom. Never negative.
func RemainingContext(modelName string, reservedForOutput int, promptTokens int) int {
    if reservedForOutput < 0 {
        reservedForOutput = 0
    }
    remaining := ModelContextTokens(modelName) - HeadroomTokens(modelName) - reservedForOutput - promptTokens
    if remaining < 0 {
        return 0
    }
    return remaining
}

// FitDocuments shrinks docs proportionally so that together they take at
// most maxTokens. Order is preserved and no document is dropped; a document
// may become empty when the budget is exhausted.
func FitDocuments(docs []string, maxTokens int) []string {
    total := 0
    for _, d := range docs {
        total += EstimateTokens(d)
    }
    if total <= maxTokens {
        return docs
    }
    out := make([]string, len(docs))
    if maxTokens <= 0 {
        return out
    }
    scale := float64(maxTokens) / float64(total)
    for i, d := range docs {
        out[i] = TrimToBytes(d, int(math.Floor(float64(len(d))*scale)))
    }
    return out
}

// TrimToBytes returns the longest prefix of s of at most maxBytes bytes that
// does not split a UTF-8 sequence.
func TrimToBytes(s string, maxBytes int) string {
    if maxBytes >= len(s) {
        return s
    }
    if maxBytes <= 0 {
        return ""
    }
    end := 0
    for i := range s {
        if i > maxBytes {
            break
        }
        end = i
    }
    return s[:end]
}
