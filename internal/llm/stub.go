package llm

import (
    "encoding/json"
    "hash/fnv"
    "math"
    "net/http"
    "strings"
    "unicode"

    openai "github.com/sashabaranov/go-openai"
    "github.com/rs/zerolog/log"
)

// StubDimensions is the default vector size served by StubHandler.
const StubDimensions = 64

// HashEmbedding maps text to a deterministic unit vector: every lowercased
// word adds weight to one bucket chosen by its FNV hash. Texts sharing words
// end up close under cosine distance.
func HashEmbedding(text string, dims int) []float32 {
    if dims <= 0 {
        dims = StubDimensions
    }
    vec := make([]float32, dims)
    words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
        return !unicode.IsLetter(r) && !unicode.IsNumber(r)
    })
    for _, w := range words {
        h := fnv.New32a()
        _, _ = h.Write([]byte(w))
        vec[h.Sum32()%uint32(dims)]++
    }
    var norm float64
    for _, v := range vec {
        norm += float64(v) * float64(v)
    }
    if norm == 0 {
        vec[0] = 1
        return vec
    }
    n := float32(math.Sqrt(norm))
    for i := range vec {
        vec[i] /= n
    }
    return vec
}

// StubHandler serves a tiny OpenAI-compatible API for offline runs and tests:
// model listing, hashed embeddings, and chat completions that echo the first
// context document back as the answer. Azure deployment paths are accepted.
func StubHandler(model string, dims int) http.Handler {
    if strings.TrimSpace(model) == "" {
        model = "stub-model"
    }
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        path := r.URL.Path
        switch {
        case strings.HasSuffix(path, "/models"):
            writeJSON(w, openai.ModelsList{Models: []openai.Model{{ID: model, Object: "model"}}})
        case strings.HasSuffix(path, "/embeddings"):
            stubEmbeddings(w, r, dims)
        case strings.HasSuffix(path, "/chat/completions"):
            stubChat(w, r, model)
        default:
            http.NotFound(w, r)
        }
    })
}

func stubEmbeddings(w http.ResponseWriter, r *http.Request, dims int) {
    defer r.Body.Close()
    var req struct {
        Model string          `json:"model"`
        Input json.RawMessage `json:"input"`
    }
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        http.Error(w, "bad request", http.StatusBadRequest)
        return
    }
    var inputs []string
    if err := json.Unmarshal(req.Input, &inputs); err != nil {
        var one string
        if err := json.Unmarshal(req.Input, &one); err != nil {
            http.Error(w, "input must be a string or a list of strings", http.StatusBadRequest)
            return
        }
        inputs = []string{one}
    }
    resp := openai.EmbeddingResponse{Object: "list", Model: openai.EmbeddingModel(req.Model)}
    for i, in := range inputs {
        resp.Data = append(resp.Data, openai.Embedding{Object: "embedding", Index: i, Embedding: HashEmbedding(in, dims)})
    }
    log.Debug().Int("inputs", len(inputs)).Msg("stub embeddings")
    writeJSON(w, resp)
}

func stubChat(w http.ResponseWriter, r *http.Request, model string) {
    defer r.Body.Close()
    var req openai.ChatCompletionRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        http.Error(w, "bad request", http.StatusBadRequest)
        return
    }
    var system, user string
    for _, m := range req.Messages {
        switch m.Role {
        case openai.ChatMessageRoleSystem:
            system = m.Content
        case openai.ChatMessageRoleUser:
            user = m.Content
        }
    }
    content := "I do not know."
    switch {
    case strings.Contains(system, "data analysis"):
        content = "The table lists wiki records with their attributes."
    default:
        for _, line := range strings.Split(user, "\n") {
            if strings.HasPrefix(line, "1. ") {
                content = "According to the wiki: " + strings.TrimPrefix(line, "1. ")
                break
            }
        }
    }
    writeJSON(w, openai.ChatCompletionResponse{
        Object: "chat.completion",
        Model:  model,
        Choices: []openai.ChatCompletionChoice{{
            Index:        0,
            Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
            FinishReason: openai.FinishReasonStop,
        }},
    })
}

func writeJSON(w http.ResponseWriter, v any) {
    w.Header().Set("Content-Type", "application/json")
    _ = json.NewEncoder(w).Encode(v)
}
