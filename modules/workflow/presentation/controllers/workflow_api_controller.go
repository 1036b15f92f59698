package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iota-uz/cms-workflow/modules/workflow/domain/aggregates/workflowrequest"
	"github.com/iota-uz/cms-workflow/modules/workflow/services"
	"github.com/iota-uz/cms-workflow/pkg/application"
	"github.com/iota-uz/cms-workflow/pkg/composables"
	"github.com/iota-uz/cms-workflow/pkg/middleware"
	"github.com/iota-uz/cms-workflow/pkg/serrors"
	"github.com/iota-uz/cms-workflow/pkg/types"
)

type WorkflowAPIController struct {
	app      application.Application
	requests *services.WorkflowRequestService
	basePath string
}

func NewWorkflowAPIController(app application.Application) application.Controller {
	return &WorkflowAPIController{
		app:      app,
		requests: app.Service(services.WorkflowRequestService{}).(*services.WorkflowRequestService),
		basePath: "/workflow/api",
	}
}

func (c *WorkflowAPIController) Key() string {
	return c.basePath
}

func (c *WorkflowAPIController) Register(r *mux.Router) {
	commonMiddleware := []mux.MiddlewareFunc{
		middleware.RequireIdentity(),
	}

	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(commonMiddleware...)
	router.HandleFunc("/requests/{id}", c.GetByID).Methods(http.MethodGet)
	router.HandleFunc("/requests/{id}/changes", c.Changes).Methods(http.MethodGet)
	router.HandleFunc("/pages/by-author/{id}", c.PagesByAuthor).Methods(http.MethodGet)
	router.HandleFunc("/pages/by-publisher/{id}", c.PagesByPublisher).Methods(http.MethodGet)

	writeRouter := r.PathPrefix(c.basePath).Subrouter()
	writeRouter.Use(commonMiddleware...)
	writeRouter.HandleFunc("/requests", c.Create).Methods(http.MethodPost)
	writeRouter.HandleFunc("/requests/{id}/approve", c.Approve).Methods(http.MethodPost)
	writeRouter.HandleFunc("/requests/{id}/deny", c.Deny).Methods(http.MethodPost)
}

type createRequestDTO struct {
	Type       string   `json:"type"`
	PageID     string   `json:"page_id"`
	Publishers []string `json:"publishers"`
}

func (c *WorkflowAPIController) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := composables.UseActor(r.Context())
	if err != nil {
		writeAPIError(w, http.StatusUnauthorized, "WORKFLOW_UNAUTHENTICATED", "no acting user")
		return
	}

	var dto createRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeAPIError(w, http.StatusBadRequest, "WORKFLOW_INVALID_JSON", "invalid json")
		return
	}

	pageID, err := uuid.Parse(dto.PageID)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "WORKFLOW_INVALID_PAGE", "page_id must be a uuid")
		return
	}
	publishers := make([]uuid.UUID, 0, len(dto.Publishers))
	for _, raw := range dto.Publishers {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeAPIError(w, http.StatusBadRequest, "WORKFLOW_INVALID_PUBLISHER", "publishers must be uuids")
			return
		}
		publishers = append(publishers, id)
	}

	wr, err := c.requests.Create(r.Context(), actor, services.CreateParams{
		Type:       workflowrequest.Type(dto.Type),
		PageID:     pageID,
		Publishers: publishers,
	})
	if err != nil && !errors.Is(err, workflowrequest.ErrNotificationFailed) {
		writeWorkflowError(w, err)
		return
	}

	payload := requestToMap(wr)
	if err != nil {
		payload["warning"] = apiError{Code: "WORKFLOW_NOTIFY_FAILED", Message: "request created but notification delivery failed"}
	}
	writeJSON(w, http.StatusCreated, payload)
}

func (c *WorkflowAPIController) Approve(w http.ResponseWriter, r *http.Request) {
	c.decide(w, r, c.requests.Approve)
}

func (c *WorkflowAPIController) Deny(w http.ResponseWriter, r *http.Request) {
	c.decide(w, r, c.requests.Deny)
}

func (c *WorkflowAPIController) decide(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, actor types.Actor, id uuid.UUID) (*workflowrequest.WorkflowRequest, error),
) {
	actor, err := composables.UseActor(r.Context())
	if err != nil {
		writeAPIError(w, http.StatusUnauthorized, "WORKFLOW_UNAUTHENTICATED", "no acting user")
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	wr, err := fn(r.Context(), actor, id)
	if err != nil && !errors.Is(err, workflowrequest.ErrNotificationFailed) {
		writeWorkflowError(w, err)
		return
	}

	payload := requestToMap(wr)
	if err != nil {
		payload["warning"] = apiError{Code: "WORKFLOW_NOTIFY_FAILED", Message: "decision recorded but notification delivery failed"}
	}
	writeJSON(w, http.StatusOK, payload)
}

func (c *WorkflowAPIController) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	wr, err := c.requests.GetByID(r.Context(), id)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, requestToMap(wr))
}

func (c *WorkflowAPIController) Changes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	changes, err := c.requests.Changes(r.Context(), id)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(changes))
	for _, rec := range changes {
		out = append(out, changeToMap(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (c *WorkflowAPIController) PagesByAuthor(w http.ResponseWriter, r *http.Request) {
	params, id, ok := c.pageParams(w, r)
	if !ok {
		return
	}
	params.AuthorID = id
	c.listPages(w, r, params, c.requests.FindPagesByAuthor)
}

func (c *WorkflowAPIController) PagesByPublisher(w http.ResponseWriter, r *http.Request) {
	params, id, ok := c.pageParams(w, r)
	if !ok {
		return
	}
	params.PublisherID = id
	c.listPages(w, r, params, c.requests.FindPagesByPublisher)
}

func (c *WorkflowAPIController) pageParams(w http.ResponseWriter, r *http.Request) (*workflowrequest.FindParams, uuid.UUID, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return nil, uuid.Nil, false
	}

	requestType := workflowrequest.Type(r.URL.Query().Get("type"))
	if requestType != "" && !requestType.Valid() {
		writeAPIError(w, http.StatusBadRequest, "WORKFLOW_INVALID_TYPE", "unknown request type")
		return nil, uuid.Nil, false
	}
	var statuses []workflowrequest.Status
	for _, raw := range r.URL.Query()["status"] {
		status := workflowrequest.Status(raw)
		if !status.Valid() {
			writeAPIError(w, http.StatusBadRequest, "WORKFLOW_INVALID_STATUS", "unknown status")
			return nil, uuid.Nil, false
		}
		statuses = append(statuses, status)
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			offset = parsed
		}
	}

	return &workflowrequest.FindParams{
		Type:     requestType,
		Statuses: statuses,
		Limit:    limit,
		Offset:   offset,
	}, id, true
}

func (c *WorkflowAPIController) listPages(
	w http.ResponseWriter,
	r *http.Request,
	params *workflowrequest.FindParams,
	fn func(ctx context.Context, params *workflowrequest.FindParams) ([]*workflowrequest.PageResult, error),
) {
	results, err := fn(r.Context(), params)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(results))
	for _, res := range results {
		out = append(out, map[string]any{
			"page_id":     res.PageID,
			"title":       res.Title,
			"last_edited": res.LastEdited.Format(time.RFC3339),
			"request_id":  res.RequestID,
			"type":        res.Type,
			"status":      res.Status,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "WORKFLOW_INVALID_ID", "id must be a uuid")
		return uuid.Nil, false
	}
	return id, true
}

func writeWorkflowError(w http.ResponseWriter, err error) {
	var base *serrors.Base
	if errors.As(err, &base) {
		switch base.Code {
		case "WORKFLOW_NOT_FOUND":
			writeAPIError(w, http.StatusNotFound, base.Code, base.Message)
		case "WORKFLOW_FORBIDDEN":
			writeAPIError(w, http.StatusForbidden, base.Code, base.Message)
		case "WORKFLOW_ALREADY_OPEN", "WORKFLOW_ALREADY_CLOSED":
			writeAPIError(w, http.StatusConflict, base.Code, base.Message)
		case "FIELD_REQUIRED":
			writeAPIError(w, http.StatusUnprocessableEntity, base.Code, base.Message)
		default:
			writeAPIError(w, http.StatusInternalServerError, base.Code, base.Message)
		}
		return
	}
	writeAPIError(w, http.StatusInternalServerError, "WORKFLOW_INTERNAL", "internal error")
}

func requestToMap(wr *workflowrequest.WorkflowRequest) map[string]any {
	out := map[string]any{
		"id":         wr.ID,
		"type":       wr.Type,
		"page_id":    wr.PageID,
		"author_id":  wr.AuthorID,
		"status":     wr.Status,
		"created_at": wr.CreatedAt.Format(time.RFC3339),
		"updated_at": wr.UpdatedAt.Format(time.RFC3339),
	}
	if wr.PublisherID != uuid.Nil {
		out["publisher_id"] = wr.PublisherID
	}
	return out
}

func changeToMap(rec *workflowrequest.ChangeRecord) map[string]any {
	out := map[string]any{
		"id":         rec.ID,
		"request_id": rec.RequestID,
		"author_id":  rec.AuthorID,
		"status":     rec.Status,
		"created_at": rec.CreatedAt.Format(time.RFC3339),
	}
	if rec.DraftVersion != nil {
		out["draft_version"] = *rec.DraftVersion
	}
	if rec.LiveVersion != nil {
		out["live_version"] = *rec.LiveVersion
	}
	return out
}
