package builds

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "bakehouse-backend/internal/errors"
	"bakehouse-backend/internal/membership"
	"bakehouse-backend/internal/rpcclient"
	"bakehouse-backend/pkg/utils"
)

var (
	authority *membership.Authority
	service   rpcclient.Service
)

// Init wires the membership authority and the builds service client
func Init(a *membership.Authority, s rpcclient.Service) {
	authority = a
	service = s
}

// HandleListBuilds proxies a page of an organization's builds
func HandleListBuilds(c *gin.Context) {
	username := c.GetString("username")
	organization := c.Param("organization")

	if !authority.IsMember(organization, username) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}

	offset, limit := pagination(c)
	raw, err := service.List(c.Request.Context(), organization, offset, limit)
	if err != nil {
		utils.SendErrorResponse(c, http.StatusInternalServerError, &apperrors.AppError{
			Code:    apperrors.ErrUpstream.Code,
			Message: "Builds service unavailable",
			Err:     err,
		})
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}

// HandleGetBuild proxies one build by uid
func HandleGetBuild(c *gin.Context) {
	username := c.GetString("username")
	organization := c.Param("organization")

	uid, ok := rpcclient.NormalizeUID(c.Param("uid"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid build uid"})
		return
	}

	if !authority.IsMember(organization, username) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}

	raw, err := service.Detail(c.Request.Context(), organization, uid)
	if err != nil {
		utils.SendErrorResponse(c, http.StatusInternalServerError, &apperrors.AppError{
			Code:    apperrors.ErrUpstream.Code,
			Message: "Builds service unavailable",
			Err:     err,
		})
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}

func pagination(c *gin.Context) (offset, limit int) {
	offset = 0
	limit = 10
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v >= 0 {
		offset = v
	}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = v
	}
	return offset, limit
}
