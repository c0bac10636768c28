package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCreateTask(t *testing.T, token, name string) map[string]interface{} {
	t.Helper()

	app := newTestApp()
	resp, body := doJSON(t, app, "POST", "/api/tasks/", token, map[string]string{
		"name": name,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return body
}

func listTasks(t *testing.T, token, query string) ([]interface{}, int) {
	t.Helper()

	app := newTestApp()
	resp, body := doJSON(t, app, "GET", "/api/tasks/"+query, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	tasks, ok := body["tasks"].([]interface{})
	require.True(t, ok, "expected tasks array, got %v", body)
	total := int(body["total"].(float64))
	return tasks, total
}

func TestCreateTask(t *testing.T) {
	app := newTestApp()
	token, userID, _ := signupAndLogin(t, app)

	resp, body := doJSON(t, app, "POST", "/api/tasks/", token, map[string]string{
		"name": "  Write report  ",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Write report", body["name"])
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, userID, int(body["userId"].(float64)))
	assert.NotNil(t, body["id"])
}

func TestCreateTaskEmptyName(t *testing.T) {
	app := newTestApp()
	token, _, _ := signupAndLogin(t, app)

	resp, body := doJSON(t, app, "POST", "/api/tasks/", token, map[string]string{
		"name": "   ",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Task name is required", body["message"])
}

func TestListTasksPagination(t *testing.T) {
	app := newTestApp()
	token, _, _ := signupAndLogin(t, app)

	for i := 1; i <= 5; i++ {
		mustCreateTask(t, token, fmt.Sprintf("Task %d", i))
	}

	tasks, total := listTasks(t, token, "?page=1&limit=3")
	assert.Len(t, tasks, 3)
	assert.Equal(t, 5, total)

	// Newest first: page 1 starts with the last task created
	first := tasks[0].(map[string]interface{})
	assert.Equal(t, "Task 5", first["name"])

	tasks, total = listTasks(t, token, "?page=2&limit=3")
	assert.Len(t, tasks, 2)
	assert.Equal(t, 5, total)

	// A page beyond the end is empty, not an error
	tasks, total = listTasks(t, token, "?page=9&limit=3")
	assert.Empty(t, tasks)
	assert.Equal(t, 5, total)

	// Garbage pagination input falls back to page=1, limit=3
	tasks, total = listTasks(t, token, "?page=zero&limit=-4")
	assert.Len(t, tasks, 3)
	assert.Equal(t, 5, total)
}

func TestListTasksSearch(t *testing.T) {
	app := newTestApp()
	token, _, _ := signupAndLogin(t, app)

	mustCreateTask(t, token, "Write report")
	mustCreateTask(t, token, "Buy groceries")

	tasks, total := listTasks(t, token, "?search=REPORT")
	require.Len(t, tasks, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Write report", tasks[0].(map[string]interface{})["name"])

	tasks, total = listTasks(t, token, "?search=nomatch")
	assert.Empty(t, tasks)
	assert.Equal(t, 0, total)
}

func TestListTasksStatusFilter(t *testing.T) {
	app := newTestApp()
	token, _, _ := signupAndLogin(t, app)

	mustCreateTask(t, token, "Stays pending")
	started := mustCreateTask(t, token, "Gets started")
	done := mustCreateTask(t, token, "Gets finished")

	resp, _ := doJSON(t, app, "PATCH", fmt.Sprintf("/api/tasks/%v", started["id"]), token,
		map[string]string{"status": "in_progress"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, app, "PATCH", fmt.Sprintf("/api/tasks/%v", done["id"]), token,
		map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	tasks, total := listTasks(t, token, "?status=completed")
	require.Len(t, tasks, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Gets finished", tasks[0].(map[string]interface{})["name"])

	tasks, total = listTasks(t, token, "?status=pending,completed")
	assert.Len(t, tasks, 2)
	assert.Equal(t, 2, total)

	// The legacy "in progress" spelling is normalized at the boundary
	tasks, total = listTasks(t, token, "?status=in+progress")
	require.Len(t, tasks, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Gets started", tasks[0].(map[string]interface{})["name"])
}

func TestUpdateStatusRoundTrip(t *testing.T) {
	app := newTestApp()
	token, _, _ := signupAndLogin(t, app)

	task := mustCreateTask(t, token, "Round trip")
	target := fmt.Sprintf("/api/tasks/%v", task["id"])

	for _, status := range []string{"in_progress", "completed", "pending"} {
		resp, body := doJSON(t, app, "PATCH", target, token, map[string]string{"status": status})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, status, body["status"])
	}

	// An unknown value fails validation and leaves the row untouched
	resp, body := doJSON(t, app, "PATCH", target, token, map[string]string{"status": "done"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid status", body["message"])

	tasks, _ := listTasks(t, token, "?search=Round+trip")
	require.Len(t, tasks, 1)
	assert.Equal(t, "pending", tasks[0].(map[string]interface{})["status"])
}

func TestTaskOwnership(t *testing.T) {
	app := newTestApp()
	ownerToken, _, _ := signupAndLogin(t, app)
	otherToken, _, _ := signupAndLogin(t, app)

	task := mustCreateTask(t, ownerToken, "Private task")
	target := fmt.Sprintf("/api/tasks/%v", task["id"])

	// A foreign task is indistinguishable from a missing one
	resp, body := doJSON(t, app, "PATCH", target, otherToken, map[string]string{"status": "completed"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Task not found", body["message"])

	resp, body = doJSON(t, app, "DELETE", target, otherToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Task not found", body["message"])

	tasks, total := listTasks(t, otherToken, "")
	assert.Empty(t, tasks)
	assert.Equal(t, 0, total)

	// The owner still sees it untouched
	tasks, _ = listTasks(t, ownerToken, "")
	require.Len(t, tasks, 1)
	assert.Equal(t, "pending", tasks[0].(map[string]interface{})["status"])
}

func TestDeleteTaskIdempotence(t *testing.T) {
	app := newTestApp()
	token, _, _ := signupAndLogin(t, app)

	task := mustCreateTask(t, token, "Short lived")
	target := fmt.Sprintf("/api/tasks/%v", task["id"])

	resp, body := doJSON(t, app, "DELETE", target, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Task deleted", body["message"])

	resp, _ = doJSON(t, app, "DELETE", target, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	tasks, total := listTasks(t, token, "?search=Short")
	assert.Empty(t, tasks)
	assert.Equal(t, 0, total)
}

func TestTasksRequireToken(t *testing.T) {
	app := newTestApp()

	resp, body := doJSON(t, app, "GET", "/api/tasks/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "No token provided", body["message"])
}
