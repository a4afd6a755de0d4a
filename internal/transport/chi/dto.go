package chi

import (
	"github.com/kailas-cloud/pkgdex/internal/domain/record"
	"github.com/kailas-cloud/pkgdex/internal/domain/search/result"
)

// ErrorCode is a machine-readable error identifier.
type ErrorCode string

// Error codes returned in ErrorResponse.
const (
	ErrorCodeBadRequest         ErrorCode = "bad_request"
	ErrorCodeValidationFailed   ErrorCode = "validation_failed"
	ErrorCodeRateLimited        ErrorCode = "rate_limited"
	ErrorCodeEmbeddingProvider  ErrorCode = "embedding_provider_error"
	ErrorCodeServiceUnavailable ErrorCode = "service_unavailable"
	ErrorCodeQueryFailed        ErrorCode = "query_failed"
	ErrorCodeTimeout            ErrorCode = "timeout"
	ErrorCodeInternal           ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SearchResponse is the search envelope.
type SearchResponse struct {
	Message     string       `json:"message"`
	Query       string       `json:"query"`
	TotalCount  int          `json:"total_count"`
	QueryTimeMS float64      `json:"query_time_ms"`
	SearchType  string       `json:"search_type"`
	Packages    []PackageDTO `json:"packages"`
}

// PackageDTO is one package in the envelope. Extended fields appear only when known.
type PackageDTO struct {
	PackageID      string  `json:"packageId"`
	PackageName    string  `json:"packageName"`
	Version        string  `json:"version"`
	Description    string  `json:"description"`
	Homepage       string  `json:"homepage"`
	License        string  `json:"license"`
	AttributePath  string  `json:"attributePath"`
	Category       string  `json:"category"`
	Broken         bool    `json:"broken"`
	Unfree         bool    `json:"unfree"`
	Available      bool    `json:"available"`
	RelevanceScore float64 `json:"relevanceScore"`

	LongDescription  string          `json:"longDescription,omitempty"`
	Maintainers      []MaintainerDTO `json:"maintainers,omitempty"`
	Platforms        []string        `json:"platforms,omitempty"`
	MainProgram      string          `json:"mainProgram,omitempty"`
	Position         string          `json:"position,omitempty"`
	OutputsToInstall []string        `json:"outputsToInstall,omitempty"`
	LastUpdated      string          `json:"lastUpdated,omitempty"`
	Insecure         bool            `json:"insecure,omitempty"`
	Unsupported      bool            `json:"unsupported,omitempty"`
	ContentHash      int64           `json:"contentHash,omitempty"`
}

// MaintainerDTO is a package maintainer.
type MaintainerDTO struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	GitHub   string `json:"github,omitempty"`
	GitHubID int64  `json:"githubId,omitempty"`
}

// HealthResponse reports component health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// NewSearchResponse converts search results into the wire envelope.
func NewSearchResponse(res *result.Results) SearchResponse {
	pkgs := make([]PackageDTO, len(res.Packages))
	for i := range res.Packages {
		pkgs[i] = packageToDTO(&res.Packages[i])
	}
	return SearchResponse{
		Message:     "Search completed",
		Query:       res.Query,
		TotalCount:  res.TotalCount,
		QueryTimeMS: res.QueryTimeMS(),
		SearchType:  string(res.SearchType),
		Packages:    pkgs,
	}
}

func packageToDTO(p *record.Package) PackageDTO {
	dto := PackageDTO{
		PackageID:      p.ID,
		PackageName:    p.Name,
		Version:        p.Version,
		Description:    p.Description,
		Homepage:       p.Homepage,
		License:        p.License,
		AttributePath:  p.AttributePath,
		Category:       p.Category,
		Broken:         p.Broken,
		Unfree:         p.Unfree,
		Available:      p.Available,
		RelevanceScore: p.Score,
	}

	ext := p.Extended
	if ext == nil {
		return dto
	}
	dto.LongDescription = ext.LongDescription
	dto.Platforms = ext.Platforms
	dto.MainProgram = ext.MainProgram
	dto.Position = ext.Position
	dto.OutputsToInstall = ext.OutputsToInstall
	dto.LastUpdated = ext.LastUpdated
	dto.Insecure = ext.Insecure
	dto.Unsupported = ext.Unsupported
	dto.ContentHash = ext.ContentHash
	if len(ext.Maintainers) > 0 {
		dto.Maintainers = make([]MaintainerDTO, len(ext.Maintainers))
		for i, m := range ext.Maintainers {
			dto.Maintainers[i] = MaintainerDTO{Name: m.Name, Email: m.Email, GitHub: m.GitHub, GitHubID: m.GitHubID}
		}
	}
	return dto
}
