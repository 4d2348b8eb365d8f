// Package mcpserver exposes job searches as an MCP tool over stdio.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonathan/jobscout/internal/logging"
	"github.com/jonathan/jobscout/internal/pipeline"
	"github.com/jonathan/jobscout/internal/types"
)

// Executor runs searches. *pipeline.Orchestrator implements it.
type Executor interface {
	Execute(ctx context.Context, text string, opts ...pipeline.CallOption) (*pipeline.Response, error)
	Run(ctx context.Context, q types.Query, opts ...pipeline.CallOption) (*pipeline.Response, error)
}

// Server wraps the MCP SDK server. Tools are registered by NewServer;
// run it with s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{}).
type Server struct {
	MCPServer *sdkmcp.Server
	exec      Executor
	log       *slog.Logger
}

// NewServer creates an MCP server with the find_jobs tool registered.
func NewServer(exec Executor, version string) *Server {
	s := &Server{
		MCPServer: sdkmcp.NewServer(&sdkmcp.Implementation{Name: "jobscout", Version: version}, nil),
		exec:      exec,
		log:       logging.New("mcp"),
	}
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name: "find_jobs",
		Description: "Find companies hiring for a role in a location, one matching opening per company, " +
			"and commute options to each workplace. Give either query or all of location, role and experience_level.",
	}, s.handleFindJobs)
	return s
}

// Run serves over stdin/stdout until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("mcp server starting on stdio")
	return s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}

type findJobsInput struct {
	Query           string `json:"query,omitempty" jsonschema:"free-text search, e.g. Data Scientist jobs in Hyderabad for freshers"`
	Location        string `json:"location,omitempty" jsonschema:"city to search in"`
	Role            string `json:"role,omitempty" jsonschema:"job role or title"`
	ExperienceLevel string `json:"experience_level,omitempty" jsonschema:"fresher or experienced"`
	Strategy        string `json:"strategy,omitempty" jsonschema:"handoff (default) or collaborate"`
}

type findJobsOutput struct {
	Response string `json:"response"`
	RunID    string `json:"run_id"`
	Outcome  string `json:"outcome"`
	Found    int    `json:"found"`
}

func (s *Server) handleFindJobs(ctx context.Context, _ *sdkmcp.CallToolRequest, in findJobsInput) (*sdkmcp.CallToolResult, findJobsOutput, error) {
	strategy, err := pipeline.ParseStrategy(in.Strategy)
	if err != nil {
		return nil, findJobsOutput{}, err
	}
	opts := []pipeline.CallOption{pipeline.WithStrategy(strategy)}

	var resp *pipeline.Response
	if text := strings.TrimSpace(in.Query); text != "" {
		resp, err = s.exec.Execute(ctx, text, opts...)
	} else {
		if in.Location == "" || in.Role == "" || in.ExperienceLevel == "" {
			return nil, findJobsOutput{}, fmt.Errorf("either query or location, role and experience_level are required")
		}
		var q types.Query
		q, err = types.NewQuery(in.Role, in.ExperienceLevel, in.Location)
		if err != nil {
			return nil, findJobsOutput{}, fmt.Errorf("invalid search: %w", err)
		}
		resp, err = s.exec.Run(ctx, q, opts...)
	}
	if err != nil {
		s.log.Error("find_jobs failed", "error", err)
		return nil, findJobsOutput{}, err
	}

	s.log.Info("find_jobs finished", "run_id", resp.RunID, "outcome", resp.Result.Outcome)
	return nil, findJobsOutput{
		Response: resp.FinalText,
		RunID:    resp.RunID,
		Outcome:  string(resp.Result.Outcome),
		Found:    len(resp.Result.FoundOpenings()),
	}, nil
}
