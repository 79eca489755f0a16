package projects

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"bakehouse-backend/internal/cascade"
	"bakehouse-backend/internal/config"
	"bakehouse-backend/internal/database"
	apperrors "bakehouse-backend/internal/errors"
	"bakehouse-backend/internal/membership"
	"bakehouse-backend/internal/models"
	"bakehouse-backend/internal/quotas"
	"bakehouse-backend/pkg/utils"
)

var (
	authority   *membership.Authority
	enforcer    *quotas.Enforcer
	provisioner *cascade.Cascade
	uriTemplate string
)

// Init wires the access, quota and cascade components into this package.
// template is a fmt pattern with two %s verbs: organization, project.
func Init(a *membership.Authority, e *quotas.Enforcer, p *cascade.Cascade, template string) {
	authority = a
	enforcer = e
	provisioner = p
	uriTemplate = template
}

// HandleCreateProject creates a project in an organization (admins only)
func HandleCreateProject(c *gin.Context) {
	username := c.GetString("username")
	organization := c.Param("organization")

	if !authority.HasRole(organization, username, membership.RoleAdmin) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin privileges required"})
		return
	}

	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Project name is required"})
		return
	}

	name := strings.ToLower(strings.TrimSpace(req.Name))
	if !utils.IsValidSlug(name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Project name must be a lowercase slug"})
		return
	}

	if !enforcer.CanCreate(organization, config.QuotaMaxProjects) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Project quota exceeded"})
		return
	}

	project := models.Project{
		Name:      name,
		Owner:     organization,
		URI:       fmt.Sprintf(uriTemplate, organization, name),
		Deletable: true,
	}
	if err := database.DB.Create(&project).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A project with this name already exists"})
		return
	}

	provisioner.ProjectCreated(c.Request.Context(), &project)
	log.Printf("✅ Created project %s.%s", organization, name)
	c.JSON(http.StatusCreated, project)
}

// HandleListProjects lists an organization's projects (members only)
func HandleListProjects(c *gin.Context) {
	username := c.GetString("username")
	organization := c.Param("organization")

	if !authority.IsMember(organization, username) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not a member of this organization"})
		return
	}

	var rows []models.Project
	if err := database.DB.Where("owner = ?", organization).Order("date_created DESC").Find(&rows).Error; err != nil {
		utils.SendErrorResponse(c, http.StatusInternalServerError, &apperrors.AppError{
			Code:    "DATABASE_ERROR",
			Message: "Failed to list projects",
			Err:     err,
		})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// HandleGetProject returns one project (members only)
func HandleGetProject(c *gin.Context) {
	username := c.GetString("username")
	organization := c.Param("organization")
	name := c.Param("name")

	if !authority.IsMember(organization, username) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not a member of this organization"})
		return
	}

	var project models.Project
	if err := database.DB.Where("name = ? AND owner = ?", name, organization).First(&project).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}
	c.JSON(http.StatusOK, project)
}

// HandleDeleteProject removes a project (admins only)
func HandleDeleteProject(c *gin.Context) {
	username := c.GetString("username")
	organization := c.Param("organization")
	name := c.Param("name")

	if !authority.HasRole(organization, username, membership.RoleAdmin) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin privileges required"})
		return
	}

	var project models.Project
	err := database.DB.Where("name = ? AND owner = ?", name, organization).First(&project).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}
		utils.SendErrorResponse(c, http.StatusInternalServerError, &apperrors.AppError{
			Code:    "DATABASE_ERROR",
			Message: "Failed to query project",
			Err:     err,
		})
		return
	}

	if !project.Deletable {
		c.JSON(http.StatusForbidden, gin.H{"error": "This project cannot be deleted"})
		return
	}

	if err := database.DB.Delete(&project).Error; err != nil {
		utils.SendErrorResponse(c, http.StatusInternalServerError, &apperrors.AppError{
			Code:    "DATABASE_ERROR",
			Message: "Failed to delete project",
			Err:     err,
		})
		return
	}

	provisioner.ProjectDeleted(c.Request.Context(), &project)
	log.Printf("✅ Deleted project %s.%s", organization, name)
	c.Status(http.StatusNoContent)
}
