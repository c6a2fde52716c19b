package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dvrmln/taskdeck-be/internal/models"
)

// Default list parameters.
const (
	DefaultListLimit = 50
	DefaultSort      = "-createdAt"
)

// sortColumns whitelists the fields a client may sort by.
var sortColumns = map[string]string{
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
	"dueDate":     "due_date",
	"priority":    "priority",
	"title":       "title",
	"completedAt": "completed_at",
}

// TaskListOptions narrows and orders a task listing.
type TaskListOptions struct {
	Status   string // "all", "completed" or "pending"
	Priority string // "", "low", "medium" or "high"
	Sort     string // field name, "-" prefix for descending
	Limit    int
	Page     int
}

// TaskPage is one page of a task listing.
type TaskPage struct {
	Tasks      []models.Task
	Pagination models.Pagination
}

// TaskInput is the payload for creating a task.
type TaskInput struct {
	Title       string
	Description string
	DueDate     *time.Time
	Priority    string
	Category    string
	Tags        []string
}

// TaskUpdate is a partial update; nil fields are left untouched.
type TaskUpdate struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Priority    *string
	Category    *string
	Tags        *[]string
	IsCompleted *bool
}

// HasFields reports whether the update names any field at all. An empty
// update is resolved by the API boundary into a completion toggle instead.
func (u TaskUpdate) HasFields() bool {
	return u.Title != nil || u.Description != nil || u.DueDate != nil ||
		u.Priority != nil || u.Category != nil || u.Tags != nil || u.IsCompleted != nil
}

// TaskServiceProvider defines the interface for task services. Every
// operation is scoped to ownerID; a task belonging to someone else is
// indistinguishable from a missing one.
type TaskServiceProvider interface {
	List(ctx context.Context, ownerID string, opts TaskListOptions) (TaskPage, error)
	CreateBatch(ctx context.Context, ownerID string, inputs []TaskInput) ([]models.Task, error)
	UpdateFields(ctx context.Context, ownerID, taskID string, upd TaskUpdate) (models.Task, error)
	ToggleCompletion(ctx context.Context, ownerID, taskID string) (models.Task, error)
	Delete(ctx context.Context, ownerID, taskID string) error
	Stats(ctx context.Context, ownerID string) (models.TaskStats, error)
}

// TaskService provides business logic for task management.
type TaskService struct {
	db *sql.DB
}

// NewTaskService creates a new TaskService.
func NewTaskService(db *sql.DB) *TaskService {
	return &TaskService{db: db}
}

// List returns one page of the owner's tasks plus pagination metadata.
func (s *TaskService) List(ctx context.Context, ownerID string, opts TaskListOptions) (TaskPage, error) {
	where := "WHERE user_id = ?"
	args := []interface{}{ownerID}

	switch opts.Status {
	case "completed":
		where += " AND is_completed = 1"
	case "pending":
		where += " AND is_completed = 0"
	}
	if opts.Priority != "" {
		where += " AND priority = ?"
		args = append(args, opts.Priority)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM tasks "+where, args...).Scan(&total); err != nil {
		return TaskPage{}, fmt.Errorf("counting tasks: %w", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	page := opts.Page
	if page < 1 {
		page = 1
	}

	query := "SELECT " + taskColumns + " FROM tasks " + where +
		" ORDER BY " + orderClause(opts.Sort) + " LIMIT ? OFFSET ?"
	args = append(args, limit, (page-1)*limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return TaskPage{}, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return TaskPage{}, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return TaskPage{}, err
	}

	pages := (total + limit - 1) / limit
	if pages < 1 {
		pages = 1
	}
	return TaskPage{
		Tasks: tasks,
		Pagination: models.Pagination{
			Total: total,
			Page:  page,
			Limit: limit,
			Pages: pages,
		},
	}, nil
}

// CreateBatch validates every input before touching the store, then
// inserts all of them in a single transaction. The owner and the initial
// pending state are forced regardless of the payload.
func (s *TaskService) CreateBatch(ctx context.Context, ownerID string, inputs []TaskInput) ([]models.Task, error) {
	if len(inputs) == 0 {
		return nil, validationErr("At least one task is required.")
	}

	tasks := make([]models.Task, 0, len(inputs))
	now := time.Now().UTC()
	for _, in := range inputs {
		task, err := buildTask(ownerID, in, now)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tasks (id, user_id, title, description, due_date, priority, is_completed, category, tags_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?)`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	for _, task := range tasks {
		tagsJSON, err := json.Marshal(task.Tags)
		if err != nil {
			return nil, err
		}
		_, err = stmt.ExecContext(ctx, task.ID, task.UserID, task.Title, task.Description,
			nullableTime(task.DueDate), task.Priority, task.Category, string(tagsJSON),
			task.CreatedAt, task.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("inserting task: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// buildTask validates one input and fills in defaults and identity.
func buildTask(ownerID string, in TaskInput, now time.Time) (models.Task, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)

	if title == "" || description == "" {
		return models.Task{}, validationErr("Each task must have a title and description.")
	}
	if len(title) > 100 {
		return models.Task{}, validationErr("Title cannot be more than 100 characters.")
	}

	priority := models.Priority(in.Priority)
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !models.ValidPriority(priority) {
		return models.Task{}, validationErr("Priority must be one of: low, medium, high.")
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = "general"
	}

	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}

	return models.Task{
		ID:          uuid.New().String(),
		UserID:      ownerID,
		Title:       title,
		Description: description,
		DueDate:     in.DueDate,
		Priority:    priority,
		IsCompleted: false,
		Category:    category,
		Tags:        tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// UpdateFields applies a partial update to one of the owner's tasks.
// Setting isCompleted manages completedAt: true stamps it, false clears it.
func (s *TaskService) UpdateFields(ctx context.Context, ownerID, taskID string, upd TaskUpdate) (models.Task, error) {
	set := []string{}
	args := []interface{}{}

	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return models.Task{}, validationErr("Title cannot be empty.")
		}
		if len(title) > 100 {
			return models.Task{}, validationErr("Title cannot be more than 100 characters.")
		}
		set, args = append(set, "title = ?"), append(args, title)
	}
	if upd.Description != nil {
		description := strings.TrimSpace(*upd.Description)
		if description == "" {
			return models.Task{}, validationErr("Description cannot be empty.")
		}
		set, args = append(set, "description = ?"), append(args, description)
	}
	if upd.DueDate != nil {
		set, args = append(set, "due_date = ?"), append(args, *upd.DueDate)
	}
	if upd.Priority != nil {
		if !models.ValidPriority(models.Priority(*upd.Priority)) {
			return models.Task{}, validationErr("Priority must be one of: low, medium, high.")
		}
		set, args = append(set, "priority = ?"), append(args, *upd.Priority)
	}
	if upd.Category != nil {
		category := strings.TrimSpace(*upd.Category)
		if category == "" {
			category = "general"
		}
		set, args = append(set, "category = ?"), append(args, category)
	}
	if upd.Tags != nil {
		tagsJSON, err := json.Marshal(*upd.Tags)
		if err != nil {
			return models.Task{}, err
		}
		set, args = append(set, "tags_json = ?"), append(args, string(tagsJSON))
	}
	if upd.IsCompleted != nil {
		set, args = append(set, "is_completed = ?"), append(args, *upd.IsCompleted)
		if *upd.IsCompleted {
			set, args = append(set, "completed_at = ?"), append(args, time.Now().UTC())
		} else {
			set = append(set, "completed_at = NULL")
		}
	}
	if len(set) == 0 {
		return models.Task{}, validationErr("No updatable fields provided.")
	}

	set, args = append(set, "updated_at = ?"), append(args, time.Now().UTC())
	args = append(args, taskID, ownerID)

	res, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET "+strings.Join(set, ", ")+" WHERE id = ? AND user_id = ?", args...)
	if err != nil {
		return models.Task{}, fmt.Errorf("updating task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.Task{}, err
	}
	if affected == 0 {
		return models.Task{}, ErrTaskNotFound
	}

	return s.getTask(ctx, ownerID, taskID)
}

// ToggleCompletion flips the task's completion state, stamping or
// clearing completedAt to match.
func (s *TaskService) ToggleCompletion(ctx context.Context, ownerID, taskID string) (models.Task, error) {
	task, err := s.getTask(ctx, ownerID, taskID)
	if err != nil {
		return models.Task{}, err
	}
	flipped := !task.IsCompleted
	return s.UpdateFields(ctx, ownerID, taskID, TaskUpdate{IsCompleted: &flipped})
}

// Delete permanently removes one of the owner's tasks.
func (s *TaskService) Delete(ctx context.Context, ownerID, taskID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ? AND user_id = ?", taskID, ownerID)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// Stats recomputes the owner's task counts on every call.
func (s *TaskService) Stats(ctx context.Context, ownerID string) (models.TaskStats, error) {
	var stats models.TaskStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(1),
			COALESCE(SUM(is_completed), 0),
			COALESCE(SUM(1 - is_completed), 0),
			COALESCE(SUM(CASE WHEN priority = 'high' THEN 1 ELSE 0 END), 0)
		FROM tasks WHERE user_id = ?`, ownerID).
		Scan(&stats.Total, &stats.Completed, &stats.Pending, &stats.HighPriority)
	if err != nil {
		return models.TaskStats{}, fmt.Errorf("computing stats: %w", err)
	}
	return stats, nil
}

const taskColumns = "id, user_id, title, description, due_date, priority, is_completed, completed_at, category, tags_json, created_at, updated_at"

// getTask fetches a task by the combined {id, owner} predicate. There is
// deliberately no separate existence check.
func (s *TaskService) getTask(ctx context.Context, ownerID, taskID string) (models.Task, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE id = ? AND user_id = ?", taskID, ownerID)
	task, err := scanTask(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Task{}, ErrTaskNotFound
		}
		return models.Task{}, err
	}
	return task, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (models.Task, error) {
	var (
		task        models.Task
		dueDate     sql.NullTime
		completedAt sql.NullTime
		tagsJSON    string
	)
	err := row.Scan(&task.ID, &task.UserID, &task.Title, &task.Description,
		&dueDate, &task.Priority, &task.IsCompleted, &completedAt,
		&task.Category, &tagsJSON, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return models.Task{}, err
	}
	if dueDate.Valid {
		task.DueDate = &dueDate.Time
	}
	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}
	if err := json.Unmarshal([]byte(tagsJSON), &task.Tags); err != nil {
		return models.Task{}, fmt.Errorf("decoding tags: %w", err)
	}
	if task.Tags == nil {
		task.Tags = []string{}
	}
	return task, nil
}

// orderClause maps a client sort expression onto a safe ORDER BY clause.
// Unknown fields fall back to the default of newest first.
func orderClause(sort string) string {
	if sort == "" {
		sort = DefaultSort
	}
	dir := "ASC"
	if strings.HasPrefix(sort, "-") {
		dir = "DESC"
		sort = sort[1:]
	}
	col, ok := sortColumns[sort]
	if !ok {
		return "created_at DESC"
	}
	return col + " " + dir
}

// nullableTime converts an optional time into a driver-friendly value.
func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
