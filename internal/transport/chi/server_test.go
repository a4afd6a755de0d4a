package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/pkgdex/internal/domain"
	"github.com/kailas-cloud/pkgdex/internal/domain/record"
	"github.com/kailas-cloud/pkgdex/internal/domain/search/mode"
	"github.com/kailas-cloud/pkgdex/internal/domain/search/request"
	"github.com/kailas-cloud/pkgdex/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/pkgdex/internal/usecase/health"
)

func TestSearch_Envelope(t *testing.T) {
	s := &mockSearcher{searchFn: func(_ context.Context, req request.Request) (result.Results, error) {
		return result.Results{
			Query: req.Query(),
			Packages: []record.Package{
				{ID: "nodejs", Name: "nodejs", Version: "20.11.0", License: "MIT", Available: true, Score: 0.5},
				{
					ID: "deno", Name: "deno", Score: 0.25,
					Extended: &record.Extended{
						MainProgram: "deno",
						Maintainers: []record.Maintainer{{Name: "Jane", GitHub: "jane"}},
					},
				},
			},
			TotalCount: 7,
			Elapsed:    2500 * time.Microsecond,
			SearchType: mode.Hybrid,
		}, nil
	}}
	h := newTestRouter(t, s, &mockHealth{})

	rec := doGet(t, h, "/search?q=node&limit=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var resp SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Message != "Search completed" || resp.Query != "node" {
		t.Errorf("envelope = %+v", resp)
	}
	if resp.TotalCount != 7 || resp.SearchType != "hybrid" || resp.QueryTimeMS != 2.5 {
		t.Errorf("envelope = %+v", resp)
	}
	if len(resp.Packages) != 2 || resp.Packages[0].PackageID != "nodejs" || resp.Packages[0].RelevanceScore != 0.5 {
		t.Fatalf("packages = %+v", resp.Packages)
	}
	if resp.Packages[1].MainProgram != "deno" || len(resp.Packages[1].Maintainers) != 1 {
		t.Errorf("extended fields not carried: %+v", resp.Packages[1])
	}
	if strings.Contains(rec.Body.String(), `"maintainers":null`) {
		t.Error("basic records must omit extended fields")
	}
}

func TestSearch_V1Alias(t *testing.T) {
	s := &mockSearcher{}
	rec := doGet(t, newTestRouter(t, s, &mockHealth{}), "/v1/search?q=git")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if s.last.Query() != "git" {
		t.Errorf("query = %q", s.last.Query())
	}
}

func TestSearch_PassesParams(t *testing.T) {
	s := &mockSearcher{}
	h := newTestRouter(t, s, &mockHealth{})

	rec := doGet(t, h, "/search?q=code&limit=5&offset=10&mode=FTS&license=mit&category=editors&include_unfree=yes")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	req := s.last
	if req.Limit() != 5 || req.Offset() != 10 || req.Mode() != mode.FTS {
		t.Errorf("request = limit %d offset %d mode %q", req.Limit(), req.Offset(), req.Mode())
	}
	if !req.Filter().IncludeUnfree() || req.Filter().IncludeBroken() {
		t.Error("include flags not parsed")
	}
}

func TestSearch_InvalidMode(t *testing.T) {
	s := &mockSearcher{}
	rec := doGet(t, newTestRouter(t, s, &mockHealth{}), "/search?q=x&mode=semantic")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var er ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if er.Code != ErrorCodeValidationFailed || !strings.Contains(er.Message, "semantic") {
		t.Errorf("error = %+v", er)
	}
}

func TestSearch_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   ErrorCode
	}{
		{"not initialized", fmt.Errorf("records: %w", domain.ErrNotInitialized), http.StatusServiceUnavailable, ErrorCodeServiceUnavailable},
		{"query failed", fmt.Errorf("%w: bm25: boom", domain.ErrQueryFailed), http.StatusInternalServerError, ErrorCodeQueryFailed},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, ErrorCodeTimeout},
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests, ErrorCodeRateLimited},
		{"provider", domain.ErrEmbeddingProviderError, http.StatusBadGateway, ErrorCodeEmbeddingProvider},
		{"unknown", errors.New("secret dsn leaked"), http.StatusInternalServerError, ErrorCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &mockSearcher{searchFn: func(context.Context, request.Request) (result.Results, error) {
				return result.Results{}, tt.err
			}}
			rec := doGet(t, newTestRouter(t, s, &mockHealth{}), "/search?q=x")
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			var er ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if er.Code != tt.code {
				t.Errorf("code = %q, want %q", er.Code, tt.code)
			}
			if strings.Contains(er.Message, "secret") || strings.Contains(er.Message, "boom") {
				t.Errorf("internal detail leaked: %q", er.Message)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		status healthuc.Status
		want   int
	}{
		{"ok", healthuc.Healthy, http.StatusOK},
		{"degraded", healthuc.Degraded, http.StatusServiceUnavailable},
		{"error", healthuc.Unhealthy, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &mockHealth{report: healthuc.Report{
				Status: tt.status,
				Checks: map[string]healthuc.CheckResult{"lexical": healthuc.CheckOK},
			}}
			rec := doGet(t, newTestRouter(t, &mockSearcher{}, h), "/health")
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			var hr HealthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &hr); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if hr.Status != string(tt.status) || hr.Checks["lexical"] != "ok" {
				t.Errorf("body = %+v", hr)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rec := doGet(t, newTestRouter(t, &mockSearcher{}, &mockHealth{}), "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
