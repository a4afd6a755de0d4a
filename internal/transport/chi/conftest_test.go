package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pkgdex/internal/domain/search/request"
	"github.com/kailas-cloud/pkgdex/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/pkgdex/internal/usecase/health"
)

type mockSearcher struct {
	searchFn func(ctx context.Context, req request.Request) (result.Results, error)
	last     request.Request
}

func (m *mockSearcher) Search(ctx context.Context, req request.Request) (result.Results, error) {
	m.last = req
	if m.searchFn != nil {
		return m.searchFn(ctx, req)
	}
	return result.Results{Query: req.Query()}, nil
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

func newTestRouter(t *testing.T, s Searcher, h HealthChecker) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	NewServer(s, h, zap.NewNop()).Routes(r)
	return r
}

func doGet(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}
