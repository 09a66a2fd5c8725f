package answer

import (
    "context"
    "errors"
    "fmt"
    "math"
    "strings"

    openai "github.com/sashabaranov/go-openai"
    "github.com/rs/zerolog/log"

    "github.com/hyperifyio/wikirag/internal/budget"
    "github.com/hyperifyio/wikirag/internal/cache"
    "github.com/hyperifyio/wikirag/internal/llm"
    "github.com/hyperifyio/wikirag/internal/vectorstore"
)

// DefaultK is the number of documents retrieved per question.
const DefaultK = 5

// DefaultMaxTokens bounds the length of a generated answer.
const DefaultMaxTokens = 800

// ErrEmptyAnswer indicates the model returned no usable text.
var ErrEmptyAnswer = errors.New("empty answer")

// Retriever finds the stored texts closest to a question.
type Retriever struct {
    Store    vectorstore.Store
    Embedder llm.Embedder
    Model    string
    Cache    *cache.LLMCache
}

// Relevant embeds question and returns the texts of the k nearest records,
// closest first. A record's summary wins over its input text.
func (r *Retriever) Relevant(ctx context.Context, question string, k int) ([]string, error) {
    if r.Store == nil || r.Embedder == nil {
        return nil, errors.New("retriever not configured")
    }
    if k <= 0 {
        k = DefaultK
    }
    vec, err := llm.Embed(ctx, r.Embedder, r.Cache, r.Model, question)
    if err != nil {
        return nil, fmt.Errorf("embed question: %w", err)
    }
    matches, err := r.Store.Query(ctx, vec, k)
    if err != nil {
        return nil, fmt.Errorf("query store: %w", err)
    }
    docs := make([]string, 0, len(matches))
    for _, m := range matches {
        text := m.Text()
        if strings.TrimSpace(text) == "" {
            continue
        }
        log.Debug().Str("id", m.ID).Float64("distance", m.Distance).Msg("retrieved")
        docs = append(docs, text)
    }
    return docs, nil
}

// Generator asks the completion model to answer from retrieved context.
type Generator struct {
    Client llm.Client
    Model  string
    Cache  *cache.LLMCache
    // MaxTokens caps the answer; zero means DefaultMaxTokens.
    MaxTokens int
    // SystemPrompt, when non-empty, overrides the default system message.
    SystemPrompt string
}

const defaultSystemPrompt = "You are a helpful assistant answering questions about an internal wiki. Use ONLY the provided context. If the context does not contain the answer, say that you do not know. Keep answers concise and factual."

// Answer returns the model's answer to question given docs.
func (g *Generator) Answer(ctx context.Context, question string, docs []string) (string, error) {
    if g.Client == nil || strings.TrimSpace(g.Model) == "" {
        return "", errors.New("generator not configured")
    }
    system := defaultSystemPrompt
    if strings.TrimSpace(g.SystemPrompt) != "" {
        system = g.SystemPrompt
    }
    maxTokens := g.MaxTokens
    if maxTokens <= 0 {
        maxTokens = DefaultMaxTokens
    }
    docs = g.fitContext(system, question, docs, maxTokens)
    user := buildUserMessage(question, docs)
    key := cache.KeyFrom(g.Model, system+"\n\n"+user)
    if g.Cache != nil {
        var out struct{ Answer string `json:"answer"` }
        if g.Cache.GetJSON(ctx, key, &out) && strings.TrimSpace(out.Answer) != "" {
            log.Debug().Str("key", key).Msg("answer cache hit")
            return out.Answer, nil
        }
    }

    resp, err := g.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
        Model: g.Model,
        Messages: []openai.ChatCompletionMessage{
            {Role: openai.ChatMessageRoleSystem, Content: system},
            {Role: openai.ChatMessageRoleUser, Content: user},
        },
        // go-openai drops a zero temperature from the request
        Temperature: math.SmallestNonzeroFloat32,
        MaxTokens:   maxTokens,
        N:           1,
    })
    if err != nil {
        return "", fmt.Errorf("answer call: %w", err)
    }
    out := llm.FirstContent(resp)
    if out == "" {
        return "", ErrEmptyAnswer
    }
    if g.Cache != nil {
        _ = g.Cache.SaveJSON(ctx, key, map[string]string{"answer": out})
    }
    return out, nil
}

// fitContext shrinks docs so the prompt fits the model's context window with
// room left for the answer.
func (g *Generator) fitContext(system, question string, docs []string, maxTokens int) []string {
    base := budget.EstimateTokens(system) + budget.EstimateTokens(buildUserMessage(question, make([]string, len(docs))))
    avail := budget.RemainingContext(g.Model, maxTokens, base)
    fitted := budget.FitDocuments(docs, avail)
    if len(docs) > 0 && &fitted[0] != &docs[0] {
        log.Warn().Int("available_tokens", avail).Int("documents", len(docs)).Msg("retrieved context truncated to fit the model")
    }
    return fitted
}

func buildUserMessage(question string, docs []string) string {
    var sb strings.Builder
    sb.WriteString("Context:\n")
    if len(docs) == 0 {
        sb.WriteString("(no documents found)\n")
    }
    for i, d := range docs {
        sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, d))
    }
    sb.WriteString("\nQuestion: ")
    sb.WriteString(strings.TrimSpace(question))
    sb.WriteString("\nAnswer:")
    return sb.String()
}
