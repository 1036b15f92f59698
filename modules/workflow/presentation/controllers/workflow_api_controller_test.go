package controllers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/cms-workflow/modules/workflow/presentation/controllers"
	"github.com/iota-uz/cms-workflow/modules/workflow/services"
	"github.com/iota-uz/cms-workflow/pkg/application"
	"github.com/iota-uz/cms-workflow/pkg/eventbus"
	"github.com/iota-uz/cms-workflow/pkg/middleware"
)

func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	app := application.New(&application.ApplicationOptions{
		EventBus: eventbus.NewEventPublisher(log),
		Logger:   log,
	})
	// Collaborators stay nil: these tests only exercise paths that reject
	// the request before any of them is reached.
	app.RegisterServices(services.NewWorkflowRequestService(nil, nil, nil, nil, nil, app.EventPublisher()))

	router := mux.NewRouter()
	controllers.NewWorkflowAPIController(app).Register(router)
	return router
}

func identify(r *http.Request) {
	r.Header.Set(middleware.TenantIDHeader, uuid.New().String())
	r.Header.Set(middleware.ActorIDHeader, uuid.New().String())
	r.Header.Set(middleware.ActorEmailHeader, "author@example.com")
}

func TestAPI_RequiresIdentityHeaders(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/workflow/api/requests", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/workflow/api/requests/"+uuid.New().String(), nil)
	req.Header.Set(middleware.TenantIDHeader, uuid.New().String())
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_CreateRejectsMalformedBody(t *testing.T) {
	router := newTestRouter(t)

	cases := []struct {
		name string
		body string
		code string
	}{
		{"invalid json", `{`, "WORKFLOW_INVALID_JSON"},
		{"bad page id", `{"type":"publication","page_id":"nope"}`, "WORKFLOW_INVALID_PAGE"},
		{"bad publisher id", `{"type":"publication","page_id":"` + uuid.New().String() + `","publishers":["nope"]}`, "WORKFLOW_INVALID_PUBLISHER"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/workflow/api/requests", strings.NewReader(tc.body))
			identify(req)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Contains(t, rec.Body.String(), tc.code)
		})
	}
}

func TestAPI_CreateRejectsUnknownType(t *testing.T) {
	router := newTestRouter(t)

	body := `{"type":"archive","page_id":"` + uuid.New().String() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/workflow/api/requests", strings.NewReader(body))
	identify(req)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "FIELD_REQUIRED")
}

func TestAPI_PathIDValidation(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{
		"/workflow/api/requests/nope",
		"/workflow/api/requests/nope/changes",
		"/workflow/api/pages/by-author/nope",
		"/workflow/api/pages/by-publisher/nope",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		identify(req)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code, path)
		require.Contains(t, rec.Body.String(), "WORKFLOW_INVALID_ID", path)
	}

	req := httptest.NewRequest(http.MethodPost, "/workflow/api/requests/nope/approve", nil)
	identify(req)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_ListRejectsUnknownFilters(t *testing.T) {
	router := newTestRouter(t)
	base := "/workflow/api/pages/by-author/" + uuid.New().String()

	req := httptest.NewRequest(http.MethodGet, base+"?type=archive", nil)
	identify(req)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "WORKFLOW_INVALID_TYPE")

	req = httptest.NewRequest(http.MethodGet, base+"?status=bogus", nil)
	identify(req)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "WORKFLOW_INVALID_STATUS")
}
