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

// ProjectHandler mantiene dependencias para endpoints de proyectos.
type ProjectHandler struct {
	logger   *zap.Logger
	projects repository.ProjectRepository
	users    repository.UserRepository
}

func NewProjectHandler(logger *zap.Logger, projects repository.ProjectRepository, users repository.UserRepository) *ProjectHandler {
	return &ProjectHandler{
		logger:   logger,
		projects: projects,
		users:    users,
	}
}

type projectRequest struct {
	Name        string    `json:"name" binding:"required"`
	Description string    `json:"description" binding:"required"`
	StartDate   time.Time `json:"start_date" binding:"required"`
	EndDate     time.Time `json:"end_date" binding:"required"`
	UserID      int64     `json:"user_id" binding:"required"`
}

// AddProject maneja POST /projects/addprojects (solo admin).
func (h *ProjectHandler) AddProject(c *gin.Context) {
	admin, ok := CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "All fields are required.")
		return
	}

	// Solo chequeo de existencia del asignado, sin logica de asignacion.
	if !h.userExists(c, req.UserID) {
		return
	}

	project, err := h.projects.Create(c.Request.Context(), domain.Project{
		AdminID:     admin.ID,
		Name:        req.Name,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		UserID:      req.UserID,
	})
	if err != nil {
		h.logger.Error("create project failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "Error creating the project.")
		return
	}

	okData(c, http.StatusCreated, project)
}

// GetProjects maneja GET /projects/getprojects (solo admin).
func (h *ProjectHandler) GetProjects(c *gin.Context) {
	projects, err := h.projects.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list projects failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "Error fetching projects.")
		return
	}
	okData(c, http.StatusOK, projects)
}

// UpdateProject maneja PUT /projects/updateprojects/:id (solo admin).
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "Invalid project id")
		return
	}

	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "All fields are required.")
		return
	}

	existing, err := h.projects.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			fail(c, http.StatusNotFound, "Project not found")
			return
		}
		h.logger.Error("get project failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	if !h.userExists(c, req.UserID) {
		return
	}

	existing.Name = req.Name
	existing.Description = req.Description
	existing.StartDate = req.StartDate
	existing.EndDate = req.EndDate
	existing.UserID = req.UserID

	updated, err := h.projects.Update(c.Request.Context(), existing)
	if err != nil {
		h.logger.Error("update project failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	okData(c, http.StatusOK, updated)
}

// DeleteProject maneja DELETE /projects/deleteprojects/:id (solo admin).
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "Invalid project id")
		return
	}

	removed, err := h.projects.Delete(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("delete project failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !removed {
		fail(c, http.StatusNotFound, "Project not found")
		return
	}

	okMessage(c, http.StatusOK, "Project deleted successfully")
}

func (h *ProjectHandler) userExists(c *gin.Context, userID int64) bool {
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
