package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dvrmln/taskdeck-be/internal/auth"
	"github.com/dvrmln/taskdeck-be/internal/models"
	"github.com/dvrmln/taskdeck-be/internal/services"
)

// TaskHandler handles HTTP requests for task management. Every route it
// serves sits behind the token middleware, so a principal is always
// present in the request context.
type TaskHandler struct {
	service services.TaskServiceProvider
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(service services.TaskServiceProvider) *TaskHandler {
	return &TaskHandler{service: service}
}

// taskPayload is the wire form of a task to create.
type taskPayload struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	DueDate     *string  `json:"dueDate"`
	Priority    string   `json:"priority"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
}

// taskUpdatePayload is the wire form of a partial update. Absent fields
// stay nil and are not applied.
type taskUpdatePayload struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	DueDate     *string   `json:"dueDate"`
	Priority    *string   `json:"priority"`
	Category    *string   `json:"category"`
	Tags        *[]string `json:"tags"`
	IsCompleted *bool     `json:"isCompleted"`
}

// List returns a filtered, sorted page of the caller's tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := mustClaims(w, r)
	if claims == nil {
		return
	}

	q := r.URL.Query()
	opts := services.TaskListOptions{
		Status:   q.Get("status"),
		Priority: q.Get("priority"),
		Sort:     q.Get("sort"),
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		opts.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		opts.Page = v
	}

	page, err := h.service.List(r.Context(), claims.UserID, opts)
	if err != nil {
		serviceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"message":    "Tasks fetched successfully.",
		"tasks":      page.Tasks,
		"pagination": page.Pagination,
	})
}

// Create accepts a single task object or an array of them. Validation of
// the whole batch happens before any insert.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := mustClaims(w, r)
	if claims == nil {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	var payloads []taskPayload
	if isJSONArray(body) {
		if err := json.Unmarshal(body, &payloads); err != nil {
			fail(w, http.StatusBadRequest, "Invalid request body.")
			return
		}
	} else {
		var single taskPayload
		if err := json.Unmarshal(body, &single); err != nil {
			fail(w, http.StatusBadRequest, "Invalid request body.")
			return
		}
		payloads = []taskPayload{single}
	}

	inputs := make([]services.TaskInput, 0, len(payloads))
	for _, p := range payloads {
		dueDate, err := parseDueDate(p.DueDate)
		if err != nil {
			fail(w, http.StatusBadRequest, "Invalid due date. Use YYYY-MM-DD or RFC 3339.")
			return
		}
		inputs = append(inputs, services.TaskInput{
			Title:       p.Title,
			Description: p.Description,
			DueDate:     dueDate,
			Priority:    p.Priority,
			Category:    p.Category,
			Tags:        p.Tags,
		})
	}

	tasks, err := h.service.CreateBatch(r.Context(), claims.UserID, inputs)
	if err != nil {
		serviceError(w, err)
		return
	}

	message := "Task created successfully!"
	if len(tasks) > 1 {
		message = fmt.Sprintf("%d tasks created successfully!", len(tasks))
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": message,
		"tasks":   tasks,
	})
}

// Update applies a partial update to the task named by the taskId query
// parameter. A body with no recognized fields toggles completion; the
// variant is resolved here, once, not in the service.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := mustClaims(w, r)
	if claims == nil {
		return
	}

	taskID := r.URL.Query().Get("taskId")
	if taskID == "" {
		fail(w, http.StatusBadRequest, "No task ID provided.")
		return
	}

	var payload taskUpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && err != io.EOF {
		fail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	dueDate, err := parseDueDate(payload.DueDate)
	if err != nil {
		fail(w, http.StatusBadRequest, "Invalid due date. Use YYYY-MM-DD or RFC 3339.")
		return
	}
	upd := services.TaskUpdate{
		Title:       payload.Title,
		Description: payload.Description,
		DueDate:     dueDate,
		Priority:    payload.Priority,
		Category:    payload.Category,
		Tags:        payload.Tags,
		IsCompleted: payload.IsCompleted,
	}

	var task models.Task
	touchedCompletion := upd.IsCompleted != nil
	if upd.HasFields() {
		task, err = h.service.UpdateFields(r.Context(), claims.UserID, taskID, upd)
	} else {
		touchedCompletion = true
		task, err = h.service.ToggleCompletion(r.Context(), claims.UserID, taskID)
	}
	if err != nil {
		serviceError(w, err)
		return
	}

	message := "Task updated successfully!"
	if touchedCompletion {
		if task.IsCompleted {
			message = "Task marked as completed!"
		} else {
			message = "Task marked as pending!"
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": message,
		"task":    task,
	})
}

// Delete permanently removes the task named by the taskId query parameter.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := mustClaims(w, r)
	if claims == nil {
		return
	}

	taskID := r.URL.Query().Get("taskId")
	if taskID == "" {
		fail(w, http.StatusBadRequest, "No task ID provided.")
		return
	}

	if err := h.service.Delete(r.Context(), claims.UserID, taskID); err != nil {
		serviceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Task deleted successfully!",
	})
}

// Stats returns the caller's task counts.
func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	claims := mustClaims(w, r)
	if claims == nil {
		return
	}

	stats, err := h.service.Stats(r.Context(), claims.UserID)
	if err != nil {
		serviceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Stats fetched successfully.",
		"stats":   stats,
	})
}

// mustClaims pulls the verified principal from the request context. The
// token middleware guarantees it is there; a miss means a wiring bug.
func mustClaims(w http.ResponseWriter, r *http.Request) *auth.Claims {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		fail(w, http.StatusInternalServerError, "Could not retrieve user from token.")
		return nil
	}
	return claims
}

func isJSONArray(body []byte) bool {
	trimmed := strings.TrimLeftFunc(string(body), func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	return strings.HasPrefix(trimmed, "[")
}

// parseDueDate accepts an RFC 3339 timestamp or a plain date.
func parseDueDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, *s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized date format %q", *s)
}
