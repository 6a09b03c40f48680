package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	applog "github.com/janisto/greeting-service/internal/platform/logging"
	appmiddleware "github.com/janisto/greeting-service/internal/platform/middleware"
	"github.com/janisto/greeting-service/internal/platform/respond"
)

func newTestAPI() (chi.Router, huma.API) {
	router := chi.NewRouter()
	router.Use(
		appmiddleware.RequestID(),
		chimiddleware.RealIP,
		applog.RequestLogger(""),
		respond.Recoverer(),
	)
	api := humachi.New(router, huma.DefaultConfig("RoutesTest", "test"))
	Register(api)
	return router, api
}

func TestRegisterRoutesGreeting(t *testing.T) {
	router, _ := newTestAPI()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(chimiddleware.RequestIDHeader, "routes-greeting")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if resp.Body.String() != "Hello, World! test2" {
		t.Fatalf("unexpected body %q", resp.Body.String())
	}
}

func TestTableListsOnlyGreeting(t *testing.T) {
	_, api := newTestAPI()

	got := Table(api)
	want := []string{"GET /"}
	if !slices.Equal(got, want) {
		t.Fatalf("expected route table %v, got %v", want, got)
	}
}

func TestTableSkipsHiddenOperations(t *testing.T) {
	_, api := newTestAPI()
	huma.Register(api, huma.Operation{
		OperationID: "internal-probe",
		Method:      http.MethodGet,
		Path:        "/internal",
		Hidden:      true,
	}, func(_ context.Context, _ *struct{}) (*struct{}, error) { return nil, nil })

	if got := Table(api); !slices.Equal(got, []string{"GET /"}) {
		t.Fatalf("expected hidden operation to be omitted, got %v", got)
	}
}
