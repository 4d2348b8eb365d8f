package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/jonathan/jobscout/internal/logging"
)

// GeminiClient implements Client for Google Gemini
type GeminiClient struct {
	client *genai.Client
	config *Config
	log    *slog.Logger
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, config *Config, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		config: config,
		log:    logging.New("llm.gemini"),
	}, nil
}

func (c *GeminiClient) model(tier ModelTier) (*genai.GenerativeModel, string, error) {
	modelName := c.config.GetModel(tier)
	if modelName == "" {
		return nil, "", fmt.Errorf("no model configured for tier %s", tier)
	}
	model := c.client.GenerativeModel(modelName)
	model.SetTemperature(c.config.Temperature)
	return model, modelName, nil
}

// GenerateContent generates text content using the specified model tier
func (c *GeminiClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	model, name, err := c.model(tier)
	if err != nil {
		return "", err
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", &APICallError{Provider: ProviderGemini, Model: name, Message: "failed to generate content", Cause: err}
	}
	return geminiTurn(resp).text()
}

// GenerateJSON generates JSON content using the specified model tier
func (c *GeminiClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	model, name, err := c.model(tier)
	if err != nil {
		return "", err
	}
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", &APICallError{Provider: ProviderGemini, Model: name, Message: "failed to generate content", Cause: err}
	}
	text, err := geminiTurn(resp).text()
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(text), nil
}

// Complete runs a role-scoped request through a chat session, executing tool calls as the model asks.
func (c *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	model, name, err := c.model(req.tier())
	if err != nil {
		return "", err
	}
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if len(req.Tools) > 0 {
		model.Tools = []*genai.Tool{{FunctionDeclarations: geminiDeclarations(req.Tools)}}
	} else if req.JSON {
		// Function calling and JSON mode cannot be combined
		model.ResponseMIMEType = "application/json"
	}

	s := &geminiSession{chat: model.StartChat(), model: name}
	text, stats, err := runToolLoop(ctx, admitted(s, req.admit), composePrompt(req), req.Tools, req.toolBudget(), c.log)
	c.log.Debug("completion finished", "model", name, "turns", stats.Turns, "tool_calls", stats.ToolCalls, "rejected", stats.Rejected)
	if err != nil {
		return "", err
	}
	if req.JSON {
		return CleanJSONBlock(text), nil
	}
	return text, nil
}

// GetModel returns the model name for a tier
func (c *GeminiClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

type geminiSession struct {
	chat  *genai.ChatSession
	model string
}

func (s *geminiSession) Send(ctx context.Context, text string) (Turn, error) {
	return s.send(ctx, genai.Text(text))
}

func (s *geminiSession) SendToolResults(ctx context.Context, results []ToolResult) (Turn, error) {
	parts := make([]genai.Part, 0, len(results))
	for _, r := range results {
		parts = append(parts, genai.FunctionResponse{
			Name:     r.Name,
			Response: map[string]any{"result": r.Output},
		})
	}
	return s.send(ctx, parts...)
}

func (s *geminiSession) send(ctx context.Context, parts ...genai.Part) (Turn, error) {
	resp, err := s.chat.SendMessage(ctx, parts...)
	if err != nil {
		return Turn{}, &APICallError{Provider: ProviderGemini, Model: s.model, Message: "failed to send message", Cause: err}
	}
	return geminiTurn(resp), nil
}

// geminiTurn converts a response into text and tool calls, taking the first candidate.
func geminiTurn(resp *genai.GenerateContentResponse) Turn {
	var turn Turn
	if resp == nil || len(resp.Candidates) == 0 {
		return turn
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return turn
	}

	var texts []string
	for _, part := range candidate.Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			texts = append(texts, string(p))
		case genai.FunctionCall:
			turn.Calls = append(turn.Calls, ToolCall{Name: p.Name, Args: p.Args})
		}
	}
	turn.Text = strings.Join(texts, "")
	return turn
}

func geminiDeclarations(tools []Tool) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		schema := &genai.Schema{
			Type:       genai.TypeObject,
			Properties: make(map[string]*genai.Schema, len(t.Params)),
		}
		for _, p := range t.Params {
			schema.Properties[p.Name] = &genai.Schema{Type: genai.TypeString, Description: p.Description}
			if p.Required {
				schema.Required = append(schema.Required, p.Name)
			}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  schema,
		})
	}
	return decls
}

func (t Turn) text() (string, error) {
	if strings.TrimSpace(t.Text) == "" {
		return "", ErrNoContent
	}
	return t.Text, nil
}
