package llm

import (
	"context"
	"fmt"
)

// DefaultMaxToolCalls bounds tool use when a Request does not set its own budget.
const DefaultMaxToolCalls = 8

// Client is an abstraction over LLM providers
type Client interface {
	// GenerateContent generates text content using the specified model tier
	GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error)
	// GenerateJSON generates JSON content using the specified model tier
	GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error)
	// Complete runs a role-scoped request, letting the model call the request's tools
	Complete(ctx context.Context, req Request) (string, error)
	// GetModel returns the underlying provider model for a tier
	GetModel(tier ModelTier) string
	// Close releases any resources held by the client
	Close() error
}

// Request is one role-scoped completion.
// System is the fixed role description, Instructions the ordered rules, and
// Context the run-specific material the model works from.
type Request struct {
	System       string
	Instructions []string
	Context      string
	Tools        []Tool
	// JSON asks for a JSON-only answer
	JSON bool
	// MaxToolCalls bounds tool use; zero means DefaultMaxToolCalls
	MaxToolCalls int
	Tier         ModelTier

	// admit gates every provider request after the first one of a tool loop
	admit func(context.Context) error
}

func (r Request) toolBudget() int {
	if r.MaxToolCalls > 0 {
		return r.MaxToolCalls
	}
	return DefaultMaxToolCalls
}

func (r Request) tier() ModelTier {
	if r.Tier == "" {
		return TierStandard
	}
	return r.Tier
}

// NewClient creates a new LLM client based on configuration.
// apiKey is required for Gemini and ignored for Vertex AI, which uses application default credentials.
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case ProviderGemini, "":
		return NewGeminiClient(ctx, config, apiKey)
	case ProviderVertex:
		return NewVertexClient(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", config.Provider)
	}
}
