package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"taskman/internal/config"
	"taskman/internal/models"
	"taskman/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// taskPage is the list response shape and the unit cached in Redis.
type taskPage struct {
	Tasks []models.Task `json:"tasks"`
	Total int           `json:"total"`
}

// parsePositive coerces untrusted pagination input, falling back to def
// for anything that is not a positive integer.
func parsePositive(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func taskCacheKey(userID, page, limit int, search string, statuses []string) string {
	return fmt.Sprintf("tasks:%d:p%d:l%d:s%s:f%s",
		userID, page, limit, search, strings.Join(statuses, ","))
}

func taskCacheSet(userID int) string {
	return fmt.Sprintf("taskkeys:%d", userID)
}

// invalidateTaskCache drops every cached list page for a user. Keys are
// tracked in a per-user set so no SCAN is needed. Cache failures are
// logged and ignored, the database stays the source of truth.
func invalidateTaskCache(userID int) {
	setKey := taskCacheSet(userID)
	keys, err := config.RedisClient.SMembers(config.Ctx, setKey).Result()
	if err != nil {
		logger.ErrorLogger.Error("Error reading task cache set", zap.Error(err))
		return
	}
	if len(keys) > 0 {
		if err := config.RedisClient.Del(config.Ctx, keys...).Err(); err != nil {
			logger.ErrorLogger.Error("Error invalidating task cache", zap.Error(err))
		}
	}
	if err := config.RedisClient.Del(config.Ctx, setKey).Err(); err != nil {
		logger.ErrorLogger.Error("Error deleting task cache set", zap.Error(err))
	}
}

// CreateTask inserts a task for the authenticated caller. New tasks
// always start as pending.
func CreateTask(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	type TaskRequest struct {
		Name string `json:"name"`
	}

	var req TaskRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in create task", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
		})
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		logger.AuditLogger.Warn("Empty task name in create task", zap.Int("user_id", userID))
		return c.Status(400).JSON(fiber.Map{
			"message": "Task name is required",
		})
	}

	var task models.Task
	err := config.DB.QueryRow(
		`INSERT INTO tasks (user_id, name, status) VALUES ($1, $2, $3)
		 RETURNING id, user_id, name, status, created_at, updated_at`,
		userID, name, models.StatusPending,
	).Scan(&task.ID, &task.UserID, &task.Name, &task.Status, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		logger.ErrorLogger.Error("Error creating task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error creating task",
		})
	}

	invalidateTaskCache(userID)

	logger.AuditLogger.Info("Task created", zap.Int("task_id", task.ID), zap.Int("user_id", userID))
	return c.Status(201).JSON(task)
}

// ListTasks returns the caller's tasks, newest first, windowed by
// page/limit, optionally narrowed by a case-insensitive name substring
// and a comma-separated status filter. total counts matches before
// windowing so the client can paginate.
func ListTasks(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	page := parsePositive(c.Query("page"), 1)
	limit := parsePositive(c.Query("limit"), 3)
	if limit > 100 {
		limit = 100
	}
	search := c.Query("search")

	var statuses []string
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if normalized := models.NormalizeStatus(s); normalized != "" {
				statuses = append(statuses, normalized)
			}
		}
	}

	// Serve from cache when this exact page was listed before
	cacheKey := taskCacheKey(userID, page, limit, search, statuses)
	if cached, err := config.RedisClient.Get(config.Ctx, cacheKey).Result(); err == nil {
		var result taskPage
		if err := json.Unmarshal([]byte(cached), &result); err == nil {
			return c.JSON(result)
		}
	}

	where := "user_id = $1"
	args := []interface{}{userID}
	if search != "" {
		args = append(args, "%"+search+"%")
		where += fmt.Sprintf(" AND name ILIKE $%d", len(args))
	}
	if len(statuses) > 0 {
		args = append(args, pq.Array(statuses))
		where += fmt.Sprintf(" AND status = ANY($%d)", len(args))
	}

	var total int
	err := config.DB.QueryRow("SELECT COUNT(*) FROM tasks WHERE "+where, args...).Scan(&total)
	if err != nil {
		logger.ErrorLogger.Error("Error counting tasks", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error fetching tasks",
		})
	}

	query := fmt.Sprintf(
		`SELECT id, user_id, name, status, created_at, updated_at FROM tasks
		 WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	args = append(args, limit, (page-1)*limit)

	rows, err := config.DB.Query(query, args...)
	if err != nil {
		logger.ErrorLogger.Error("Error fetching tasks", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error fetching tasks",
		})
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		var task models.Task
		err := rows.Scan(&task.ID, &task.UserID, &task.Name, &task.Status, &task.CreatedAt, &task.UpdatedAt)
		if err != nil {
			logger.ErrorLogger.Error("Error scanning tasks", zap.Error(err))
			return c.Status(500).JSON(fiber.Map{
				"message": "Error fetching tasks",
			})
		}
		tasks = append(tasks, task)
	}
	if err = rows.Err(); err != nil {
		logger.ErrorLogger.Error("Error iterating over tasks", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error fetching tasks",
		})
	}

	result := taskPage{Tasks: tasks, Total: total}

	if jsonData, err := json.Marshal(result); err == nil {
		if err := config.RedisClient.SetEX(config.Ctx, cacheKey, jsonData, time.Hour).Err(); err != nil {
			logger.ErrorLogger.Error("Error caching tasks", zap.Error(err))
		} else if err := config.RedisClient.SAdd(config.Ctx, taskCacheSet(userID), cacheKey).Err(); err != nil {
			logger.ErrorLogger.Error("Error tracking task cache key", zap.Error(err))
		}
	}

	return c.JSON(result)
}

// UpdateTaskStatus changes a task's status. The update is scoped to the
// caller's own tasks; a foreign or missing task id surfaces as 404
// either way so existence is never confirmed to non-owners.
func UpdateTaskStatus(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	taskID, err := c.ParamsInt("id")
	if err != nil {
		logger.ErrorLogger.Error("Invalid task ID", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid task ID",
		})
	}

	type UpdateTaskRequest struct {
		Status string `json:"status"`
	}

	var req UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in update task", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
		})
	}

	status := models.NormalizeStatus(req.Status)
	if !models.ValidStatus(status) {
		logger.AuditLogger.Warn("Invalid status in update task",
			zap.String("status", req.Status), zap.Int("user_id", userID))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid status",
		})
	}

	var task models.Task
	err = config.DB.QueryRow(
		`UPDATE tasks SET status = $1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $2 AND user_id = $3
		 RETURNING id, user_id, name, status, created_at, updated_at`,
		status, taskID, userID,
	).Scan(&task.ID, &task.UserID, &task.Name, &task.Status, &task.CreatedAt, &task.UpdatedAt)
	if err == sql.ErrNoRows {
		logger.SecurityLogger.Warn("Update on missing or foreign task",
			zap.Int("task_id", taskID), zap.Int("user_id", userID))
		return c.Status(404).JSON(fiber.Map{
			"message": "Task not found",
		})
	}
	if err != nil {
		logger.ErrorLogger.Error("Error updating task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error updating task",
		})
	}

	invalidateTaskCache(userID)

	logger.AuditLogger.Info("Task status updated",
		zap.Int("task_id", taskID), zap.String("status", status))
	return c.JSON(task)
}

// DeleteTask removes a task owned by the caller. Hard delete, no
// tombstone; deleting again yields 404.
func DeleteTask(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	taskID, err := c.ParamsInt("id")
	if err != nil {
		logger.ErrorLogger.Error("Invalid task ID", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid task ID",
		})
	}

	result, err := config.DB.Exec(
		"DELETE FROM tasks WHERE id = $1 AND user_id = $2", taskID, userID)
	if err != nil {
		logger.ErrorLogger.Error("Error deleting task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error deleting task",
		})
	}
	affected, err := result.RowsAffected()
	if err != nil {
		logger.ErrorLogger.Error("Error deleting task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error deleting task",
		})
	}
	if affected == 0 {
		logger.SecurityLogger.Warn("Delete on missing or foreign task",
			zap.Int("task_id", taskID), zap.Int("user_id", userID))
		return c.Status(404).JSON(fiber.Map{
			"message": "Task not found",
		})
	}

	invalidateTaskCache(userID)

	logger.AuditLogger.Info("Task deleted", zap.Int("task_id", taskID), zap.Int("user_id", userID))
	return c.JSON(fiber.Map{
		"message": "Task deleted",
	})
}
