package handlers_test

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTodo(t *testing.T, baseURL, token string, payload map[string]any) map[string]any {
	t.Helper()
	status, body := doJSON(t, http.MethodPost, baseURL+"/to-dos", token, payload)
	require.Equal(t, http.StatusCreated, status)
	return body["to_do"].(map[string]any)
}

func TestTodoCrudRoundTrip(t *testing.T) {
	server, _ := newTestServer(t)
	base := server.URL
	token := registerAndVerify(t, base, "A", "a@x.com", "pw12345678")

	created := createTodo(t, base, token, map[string]any{
		"title":       "water plants",
		"description": "the ones on the balcony",
		"due_date":    "2026-09-01T09:00:00Z",
		"priority":    "medium",
		"status":      "pending",
	})
	id := created["id"].(string)
	assert.Equal(t, "water plants", created["title"])
	assert.Equal(t, false, created["completed"], "new to-dos start incomplete")

	status, body := doJSON(t, http.MethodGet, base+"/to-dos/"+id, token, nil)
	require.Equal(t, http.StatusOK, status)
	todo := body["to_do"].(map[string]any)
	assert.Equal(t, "the ones on the balcony", todo["description"])
	assert.Equal(t, "medium", todo["priority"])

	status, body = doJSON(t, http.MethodPut, base+"/to-dos/"+id, token, map[string]any{
		"status":    "completed",
		"completed": true,
	})
	require.Equal(t, http.StatusOK, status)
	todo = body["to_do"].(map[string]any)
	assert.Equal(t, "completed", todo["status"])
	assert.Equal(t, true, todo["completed"])
	assert.Equal(t, "water plants", todo["title"], "unsupplied fields keep prior values")
	assert.Equal(t, "medium", todo["priority"])

	status, _ = doJSON(t, http.MethodDelete, base+"/to-dos/"+id, token, nil)
	require.Equal(t, http.StatusOK, status)

	status, body = doJSON(t, http.MethodGet, base+"/to-dos/"+id, token, nil)
	require.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "To-do not found", body["message"])
}

func TestTodoCreateValidation(t *testing.T) {
	server, _ := newTestServer(t)
	base := server.URL
	token := registerAndVerify(t, base, "A", "a@x.com", "pw12345678")

	status, body := doJSON(t, http.MethodPost, base+"/to-dos", token, map[string]any{
		"title":    "   ",
		"due_date": "tomorrow",
		"priority": "urgent",
		"status":   "done",
	})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	errs := body["errors"].(map[string]any)
	assert.Contains(t, errs, "title")
	assert.Contains(t, errs, "due_date")
	assert.Contains(t, errs, "priority")
	assert.Contains(t, errs, "status")
}

func TestTodoOwnershipIsolation(t *testing.T) {
	server, _ := newTestServer(t)
	base := server.URL
	tokenA := registerAndVerify(t, base, "A", "a@x.com", "pw12345678")
	tokenB := registerAndVerify(t, base, "B", "b@x.com", "pw12345678")

	created := createTodo(t, base, tokenA, map[string]any{
		"title": "a's secret", "priority": "high", "status": "pending",
	})
	id := created["id"].(string)

	// Another user sees the same 404 a nonexistent id would give.
	status, body := doJSON(t, http.MethodGet, base+"/to-dos/"+id, tokenB, nil)
	require.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "To-do not found", body["message"])

	status, _ = doJSON(t, http.MethodPut, base+"/to-dos/"+id, tokenB, map[string]any{"title": "hijacked"})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doJSON(t, http.MethodDelete, base+"/to-dos/"+id, tokenB, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = doJSON(t, http.MethodGet, base+"/to-dos", tokenB, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["to_dos"].([]any))

	// The owner still has it, untouched.
	status, body = doJSON(t, http.MethodGet, base+"/to-dos/"+id, tokenA, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "a's secret", body["to_do"].(map[string]any)["title"])
}

func TestTodoListOrderedByDueDate(t *testing.T) {
	server, _ := newTestServer(t)
	base := server.URL
	token := registerAndVerify(t, base, "A", "a@x.com", "pw12345678")

	createTodo(t, base, token, map[string]any{
		"title": "later", "due_date": "2026-12-01T00:00:00Z",
		"priority": "low", "status": "pending",
	})
	createTodo(t, base, token, map[string]any{
		"title": "undated", "priority": "low", "status": "pending",
	})
	createTodo(t, base, token, map[string]any{
		"title": "sooner", "due_date": "2026-09-01T00:00:00Z",
		"priority": "low", "status": "pending",
	})

	status, body := doJSON(t, http.MethodGet, base+"/to-dos", token, nil)
	require.Equal(t, http.StatusOK, status)
	items := body["to_dos"].([]any)
	require.Len(t, items, 3)

	titles := make([]string, 0, len(items))
	for _, item := range items {
		titles = append(titles, item.(map[string]any)["title"].(string))
	}
	assert.Equal(t, []string{"sooner", "later", "undated"}, titles, "due dates ascending, undated last")
}

func TestTodoInvalidIDIsNotFound(t *testing.T) {
	server, _ := newTestServer(t)
	base := server.URL
	token := registerAndVerify(t, base, "A", "a@x.com", "pw12345678")

	status, body := doJSON(t, http.MethodGet, base+"/to-dos/not-a-uuid", token, nil)
	require.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "To-do not found", body["message"])

	status, _ = doJSON(t, http.MethodDelete, base+"/to-dos/"+uuid.NewString(), token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestTodoEndpointsRequireAuth(t *testing.T) {
	server, _ := newTestServer(t)
	base := server.URL

	status, _ := doJSON(t, http.MethodGet, base+"/to-dos", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doJSON(t, http.MethodPost, base+"/to-dos", "garbage-token", map[string]any{
		"title": "x", "priority": "low", "status": "pending",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}
