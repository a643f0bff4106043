package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tasklane/server/internal/middleware"
	"github.com/tasklane/server/internal/model"
	"github.com/tasklane/server/internal/repo"
)

// TodoHandler handles the /to-dos endpoints. Every operation is scoped to
// the authenticated user; a to-do owned by someone else is indistinguishable
// from one that does not exist.
type TodoHandler struct {
	todos repo.TodoRepo
}

// NewTodoHandler creates a new to-do handler.
func NewTodoHandler(todos repo.TodoRepo) *TodoHandler {
	return &TodoHandler{todos: todos}
}

// HandleList handles GET /to-dos, ordered by due date ascending.
func (h *TodoHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	todos, err := h.todos.ListByUser(r.Context(), user.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list to-dos: "+err.Error())
		return
	}

	items := make([]todoResponse, 0, len(todos))
	for _, todo := range todos {
		items = append(items, toTodoResponse(todo))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "To-do list retrieved successfully",
		"to_dos":  items,
	})
}

type createTodoRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"due_date"`
	Priority    string  `json:"priority"`
	Status      string  `json:"status"`
}

// HandleCreate handles POST /to-dos. The owner is always the authenticated
// user; a client-supplied user_id is never trusted.
func (h *TodoHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	errs := map[string]string{}
	validateTitle(errs, req.Title)
	if !model.ValidPriority(model.Priority(req.Priority)) {
		errs["priority"] = "priority must be one of: low, medium, high"
	}
	if !model.ValidStatus(model.Status(req.Status)) {
		errs["status"] = "status must be one of: pending, in_progress, completed, archived, not_started, cancelled"
	}
	dueDate := parseDueDate(errs, req.DueDate)
	if len(errs) > 0 {
		respondValidationErrors(w, errs)
		return
	}

	todo := model.ToDo{
		UserID:      user.ID,
		Title:       req.Title,
		Description: req.Description,
		Completed:   false,
		DueDate:     dueDate,
		Priority:    model.Priority(req.Priority),
		Status:      model.Status(req.Status),
	}

	created, err := h.todos.Create(r.Context(), todo)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create to-do: "+err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"message": "To-do created successfully",
		"to_do":   toTodoResponse(created),
	})
}

// HandleGet handles GET /to-dos/{id}.
func (h *TodoHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "To-do not found")
		return
	}

	todo, err := h.todos.GetByID(r.Context(), user.ID, id)
	if err != nil {
		h.respondTodoError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "To-do retrieved successfully",
		"to_do":   toTodoResponse(todo),
	})
}

type updateTodoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"due_date"`
	Priority    *string `json:"priority"`
	Status      *string `json:"status"`
	Completed   *bool   `json:"completed"`
}

// HandleUpdate handles PUT /to-dos/{id}. Partial semantics: only supplied
// fields are validated and applied, the rest keep their prior values.
func (h *TodoHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "To-do not found")
		return
	}

	var req updateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	errs := map[string]string{}
	if req.Title != nil {
		validateTitle(errs, *req.Title)
	}
	if req.Priority != nil && !model.ValidPriority(model.Priority(*req.Priority)) {
		errs["priority"] = "priority must be one of: low, medium, high"
	}
	if req.Status != nil && !model.ValidStatus(model.Status(*req.Status)) {
		errs["status"] = "status must be one of: pending, in_progress, completed, archived, not_started, cancelled"
	}
	dueDate := parseDueDate(errs, req.DueDate)
	if len(errs) > 0 {
		respondValidationErrors(w, errs)
		return
	}

	todo, err := h.todos.GetByID(r.Context(), user.ID, id)
	if err != nil {
		h.respondTodoError(w, err)
		return
	}

	if req.Title != nil {
		todo.Title = *req.Title
	}
	if req.Description != nil {
		todo.Description = req.Description
	}
	if req.DueDate != nil {
		todo.DueDate = dueDate
	}
	if req.Priority != nil {
		todo.Priority = model.Priority(*req.Priority)
	}
	if req.Status != nil {
		todo.Status = model.Status(*req.Status)
	}
	if req.Completed != nil {
		todo.Completed = *req.Completed
	}

	updated, err := h.todos.Update(r.Context(), todo)
	if err != nil {
		h.respondTodoError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "To-do updated successfully",
		"to_do":   toTodoResponse(updated),
	})
}

// HandleDelete handles DELETE /to-dos/{id}.
func (h *TodoHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "To-do not found")
		return
	}

	if err := h.todos.Delete(r.Context(), user.ID, id); err != nil {
		h.respondTodoError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "To-do deleted successfully"})
}

func (h *TodoHandler) respondTodoError(w http.ResponseWriter, err error) {
	if errors.Is(err, repo.ErrNotFound) {
		respondError(w, http.StatusNotFound, "To-do not found")
		return
	}
	respondError(w, http.StatusInternalServerError, "To-do operation failed: "+err.Error())
}

func validateTitle(errs map[string]string, title string) {
	if strings.TrimSpace(title) == "" {
		errs["title"] = "title is required"
	} else if len(title) > 255 {
		errs["title"] = "title must not exceed 255 characters"
	}
}

// parseDueDate parses an optional RFC 3339 timestamp; a nil input stays nil.
func parseDueDate(errs map[string]string, raw *string) *time.Time {
	if raw == nil {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		errs["due_date"] = "due_date must be an RFC 3339 timestamp"
		return nil
	}
	return &t
}
