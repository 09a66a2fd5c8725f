package extract

// Extractor defines a minimal interface for page extraction strategies.
// Implementations can swap content-root heuristics without changing callers.
type Extractor interface {
    // Extract converts raw HTML bytes into a Page.
    // Implementations should be deterministic and avoid side effects.
    Extract(input []byte, contentType string) Page
}

// WikiExtractor pulls content from the wiki's main-content container and
// keeps only tables carrying TableClass (all tables when empty).
type WikiExtractor struct {
    TableClass string
}

func (w WikiExtractor) Extract(input []byte, contentType string) Page {
    return FromHTMLWithOptions(input, Options{TableClass: w.TableClass, ContentType: contentType})
}
