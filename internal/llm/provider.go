package llm

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "strings"

    openai "github.com/sashabaranov/go-openai"

    "github.com/hyperifyio/wikirag/internal/cache"
)

// Client is the minimal interface needed to call a chat model. It mirrors
// the go-openai method so any OpenAI-compatible backend can be adapted.
type Client interface {
    CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Embedder turns text into vectors.
type Embedder interface {
    CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// ModelLister is an optional capability that allows listing available models.
type ModelLister interface {
    ListModels(ctx context.Context) (openai.ModelsList, error)
}

// Provider bundles chat and embeddings, as served by one endpoint.
type Provider interface {
    Client
    Embedder
}

// API types accepted by NewOpenAI.
const (
    APITypeOpenAI  = "openai"
    APITypeAzure   = "azure"
    APITypeAzureAD = "azure_ad"
)

// Config selects and authenticates the backend.
type Config struct {
    // APIType is one of openai, azure (api-key header) or azure_ad (bearer
    // token from Entra ID). Empty means openai.
    APIType    string
    BaseURL    string
    APIKey     string
    APIVersion string
    HTTPClient *http.Client
}

// OpenAIProvider adapts *openai.Client to the Provider/ModelLister interfaces.
type OpenAIProvider struct {
    Inner *openai.Client
}

// NewOpenAI builds a provider for an OpenAI-compatible or Azure OpenAI
// endpoint. On Azure the model names are deployment names and are passed
// through unchanged.
func NewOpenAI(cfg Config) (*OpenAIProvider, error) {
    var oc openai.ClientConfig
    switch strings.ToLower(strings.TrimSpace(cfg.APIType)) {
    case "", APITypeOpenAI:
        oc = openai.DefaultConfig(cfg.APIKey)
        if cfg.BaseURL != "" {
            oc.BaseURL = cfg.BaseURL
        }
    case APITypeAzure, APITypeAzureAD:
        if strings.TrimSpace(cfg.BaseURL) == "" {
            return nil, errors.New("azure endpoint is required")
        }
        oc = openai.DefaultAzureConfig(cfg.APIKey, cfg.BaseURL)
        if strings.EqualFold(cfg.APIType, APITypeAzureAD) {
            oc.APIType = openai.APITypeAzureAD
        }
        if cfg.APIVersion != "" {
            oc.APIVersion = cfg.APIVersion
        }
        oc.AzureModelMapperFunc = func(model string) string { return model }
    default:
        return nil, fmt.Errorf("unknown llm api type %q", cfg.APIType)
    }
    if cfg.HTTPClient != nil {
        oc.HTTPClient = cfg.HTTPClient
    }
    return &OpenAIProvider{Inner: openai.NewClientWithConfig(oc)}, nil
}

func (p *OpenAIProvider) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
    return p.Inner.CreateChatCompletion(ctx, request)
}

func (p *OpenAIProvider) CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
    return p.Inner.CreateEmbeddings(ctx, conv)
}

func (p *OpenAIProvider) ListModels(ctx context.Context) (openai.ModelsList, error) {
    return p.Inner.ListModels(ctx)
}

// ErrNoEmbedding is returned when the backend answers without a vector.
var ErrNoEmbedding = errors.New("no embedding returned")

// Embed returns the embedding of a single text. When c is non-nil, vectors
// are cached per model and text.
func Embed(ctx context.Context, e Embedder, c *cache.LLMCache, model string, text string) ([]float32, error) {
    key := cache.KeyFrom("embedding:"+model, text)
    if c != nil {
        var vec []float32
        if c.GetJSON(ctx, key, &vec) && len(vec) > 0 {
            return vec, nil
        }
    }
    resp, err := e.CreateEmbeddings(ctx, openai.EmbeddingRequest{
        Input: []string{text},
        Model: openai.EmbeddingModel(model),
    })
    if err != nil {
        return nil, fmt.Errorf("create embedding: %w", err)
    }
    if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
        return nil, ErrNoEmbedding
    }
    vec := resp.Data[0].Embedding
    if c != nil {
        _ = c.SaveJSON(ctx, key, vec)
    }
    return vec, nil
}

// FirstContent returns the trimmed content of the first choice, or "".
func FirstContent(resp openai.ChatCompletionResponse) string {
    if len(resp.Choices) == 0 {
        return ""
    }
    return strings.TrimSpace(resp.Choices[0].Message.Content)
}
