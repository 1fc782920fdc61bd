package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"taskboard/internal/domain"
	"taskboard/internal/repository"
)

// TaskHandler mantiene dependencias para endpoints de tareas.
type TaskHandler struct {
	logger   *zap.Logger
	tasks    repository.TaskRepository
	projects repository.ProjectRepository
	users    repository.UserRepository
}

func NewTaskHandler(logger *zap.Logger, tasks repository.TaskRepository, projects repository.ProjectRepository, users repository.UserRepository) *TaskHandler {
	return &TaskHandler{
		logger:   logger,
		tasks:    tasks,
		projects: projects,
		users:    users,
	}
}

type taskRequest struct {
	Name        string    `json:"name" binding:"required"`
	Status      string    `json:"status"`
	IsCompleted bool      `json:"is_completed"`
	StartDate   time.Time `json:"start_date" binding:"required"`
	EndDate     time.Time `json:"end_date" binding:"required"`
	UserID      int64     `json:"user_id" binding:"required"`
	ProjectID   int64     `json:"project_id" binding:"required"`
}

// AddTask maneja POST /tasks/addtask (solo admin).
func (h *TaskHandler) AddTask(c *gin.Context) {
	admin, ok := CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Name, start_date, end_date, user_id and project_id are required")
		return
	}

	if !h.userExists(c, req.UserID) || !h.projectExists(c, req.ProjectID) {
		return
	}

	task, err := h.tasks.Create(c.Request.Context(), domain.Task{
		AdminID:     admin.ID,
		ProjectID:   req.ProjectID,
		Name:        req.Name,
		Status:      req.Status,
		IsCompleted: req.IsCompleted,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		UserID:      req.UserID,
	})
	if err != nil {
		h.logger.Error("create task failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "Error creating the task")
		return
	}

	okData(c, http.StatusCreated, task)
}

// GetTask maneja GET /tasks/gettask/:id.
func (h *TaskHandler) GetTask(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "Invalid task id")
		return
	}

	task, err := h.tasks.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			fail(c, http.StatusNotFound, "Task not found")
			return
		}
		h.logger.Error("get task failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	okData(c, http.StatusOK, task)
}

// UpdateTask maneja PUT /tasks/updatetask/:id (solo admin).
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "Invalid task id")
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Name, start_date, end_date, user_id and project_id are required")
		return
	}

	existing, err := h.tasks.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			fail(c, http.StatusNotFound, "Task not found")
			return
		}
		h.logger.Error("get task failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	if !h.userExists(c, req.UserID) {
		return
	}

	existing.Name = req.Name
	existing.Status = req.Status
	existing.IsCompleted = req.IsCompleted
	existing.StartDate = req.StartDate
	existing.EndDate = req.EndDate
	existing.UserID = req.UserID

	updated, err := h.tasks.Update(c.Request.Context(), existing)
	if err != nil {
		h.logger.Error("update task failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	okData(c, http.StatusOK, updated)
}

func (h *TaskHandler) userExists(c *gin.Context, userID int64) bool {
	_, err := h.users.GetByID(c.Request.Context(), userID)
	if err == nil {
		return true
	}
	if errors.Is(err, pgx.ErrNoRows) {
		fail(c, http.StatusNotFound, "User not found")
	} else {
		h.logger.Error("lookup user failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "Internal server error")
	}
	return false
}

func (h *TaskHandler) projectExists(c *gin.Context, projectID int64) bool {
	_, err := h.projects.GetByID(c.Request.Context(), projectID)
	if err == nil {
		return true
	}
	if errors.Is(err, pgx.ErrNoRows) {
		fail(c, http.StatusNotFound, "Project not found")
	} else {
		h.logger.Error("lookup project failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "Internal server error")
	}
	return false
}
