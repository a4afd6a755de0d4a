// Package mcp exposes package search as a Model Context Protocol tool.
package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pkgdex/internal/domain"
	"github.com/kailas-cloud/pkgdex/internal/domain/record"
	"github.com/kailas-cloud/pkgdex/internal/domain/search/filter"
	"github.com/kailas-cloud/pkgdex/internal/domain/search/mode"
	"github.com/kailas-cloud/pkgdex/internal/domain/search/request"
	"github.com/kailas-cloud/pkgdex/internal/domain/search/result"
	"github.com/kailas-cloud/pkgdex/internal/version"
)

// ToolSearchPackages is the registered tool name.
const ToolSearchPackages = "search_packages"

const (
	serverName   = "pkgdex"
	defaultLimit = 10
)

// Searcher runs one search request.
type Searcher interface {
	Search(ctx context.Context, req request.Request) (result.Results, error)
}

// SearchInput is the search_packages argument schema.
type SearchInput struct {
	Query         string `json:"query" jsonschema:"package name or free-text description to search for"`
	Limit         int    `json:"limit,omitempty" jsonschema:"maximum number of packages to return, default 10"`
	Offset        int    `json:"offset,omitempty" jsonschema:"number of leading packages to skip"`
	Mode          string `json:"mode,omitempty" jsonschema:"force a retrieval mode: fts, vector or hybrid"`
	License       string `json:"license,omitempty" jsonschema:"case-insensitive license substring filter"`
	Category      string `json:"category,omitempty" jsonschema:"case-insensitive category substring filter"`
	IncludeBroken bool   `json:"include_broken,omitempty" jsonschema:"include packages marked broken"`
	IncludeUnfree bool   `json:"include_unfree,omitempty" jsonschema:"include packages with unfree licenses"`
}

// SearchOutput is the search_packages result schema.
type SearchOutput struct {
	Query      string          `json:"query"`
	SearchType string          `json:"search_type"`
	TotalCount int             `json:"total_count"`
	Packages   []PackageOutput `json:"packages"`
}

// PackageOutput is one package in SearchOutput.
type PackageOutput struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Version       string  `json:"version"`
	Description   string  `json:"description,omitempty"`
	Homepage      string  `json:"homepage,omitempty"`
	License       string  `json:"license,omitempty"`
	AttributePath string  `json:"attribute_path,omitempty"`
	MainProgram   string  `json:"main_program,omitempty"`
	Score         float64 `json:"score"`
}

// Server wraps an MCP server with the search_packages tool.
type Server struct {
	search Searcher
	mcp    *mcp.Server
	logger *zap.Logger
}

// NewServer creates an MCP server backed by search.
func NewServer(search Searcher, logger *zap.Logger) (*Server, error) {
	if search == nil {
		return nil, errors.New("search service is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{search: search, logger: logger}
	s.mcp = mcp.NewServer(&mcp.Implementation{Name: serverName, Version: version.Version}, nil)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: ToolSearchPackages,
		Description: "Search the package catalogue by name or description. " +
			"Combines keyword and semantic retrieval; returns ranked packages with versions and licenses.",
	}, s.handleSearch)

	return s, nil
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// ServeStdio serves JSON-RPC over stdin/stdout until ctx is done.
func (s *Server) ServeStdio(ctx context.Context) error {
	s.logger.Info("mcp server starting", zap.String("transport", "stdio"))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("mcp server stopped", zap.Error(err))
		return fmt.Errorf("mcp run: %w", err)
	}
	s.logger.Info("mcp server stopped")
	return nil
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	limit := in.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	req, err := request.New(
		in.Query, limit, in.Offset,
		filter.New(in.License, in.Category, in.IncludeBroken, in.IncludeUnfree),
		mode.Parse(in.Mode),
	)
	if err != nil {
		return nil, SearchOutput{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}

	res, err := s.search.Search(ctx, req)
	if err != nil {
		s.logger.Warn("mcp search failed", zap.String("query", req.Query()), zap.Error(err))
		return nil, SearchOutput{}, toolError(err)
	}

	out := SearchOutput{
		Query:      res.Query,
		SearchType: string(res.SearchType),
		TotalCount: res.TotalCount,
		Packages:   make([]PackageOutput, len(res.Packages)),
	}
	for i := range res.Packages {
		out.Packages[i] = toOutput(&res.Packages[i])
	}
	return nil, out, nil
}

// toolError hides internal detail behind the domain sentinel.
func toolError(err error) error {
	for _, sentinel := range []error{
		domain.ErrInvalidRequest,
		domain.ErrNotInitialized,
		domain.ErrQueryFailed,
		domain.ErrRateLimited,
		domain.ErrEmbeddingProviderError,
		context.DeadlineExceeded,
		context.Canceled,
	} {
		if errors.Is(err, sentinel) {
			return fmt.Errorf("search failed: %w", sentinel)
		}
	}
	return errors.New("search failed: internal error")
}

func toOutput(p *record.Package) PackageOutput {
	out := PackageOutput{
		ID:            p.ID,
		Name:          p.Name,
		Version:       p.Version,
		Description:   p.Description,
		Homepage:      p.Homepage,
		License:       p.License,
		AttributePath: p.AttributePath,
		Score:         p.Score,
	}
	if p.Extended != nil {
		out.MainProgram = p.Extended.MainProgram
	}
	return out
}
