package handlers

import (
	"net/http"
	"strconv"

	"github.com/noneedcode-dev/fiscalist-api/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// respondError maps an AppError to its HTTP status, anything else to 500
func respondError(c *gin.Context, err error) {
	if appErr, ok := err.(*errors.AppError); ok {
		c.JSON(appErr.Status, errors.ErrorResponse{
			Error:   appErr.Code,
			Message: appErr.Message,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, errors.ErrorResponse{
		Error:   errors.ErrInternalServer.Code,
		Message: "Internal server error",
	})
}

// currentUserID returns the authenticated user's id from the JWT claims
func currentUserID(c *gin.Context) *uuid.UUID {
	idStr := c.GetString("user_id")
	if idStr == "" {
		return nil
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil
	}
	return &id
}

// claimClientID returns the tenant bound to the token, nil for staff
func claimClientID(c *gin.Context) *uuid.UUID {
	idStr := c.GetString("client_id")
	if idStr == "" {
		return nil
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil
	}
	return &id
}

// scopedClientID resolves the tenant a request operates on. Client-bound
// tokens are pinned to their own tenant; staff must name one explicitly.
func scopedClientID(c *gin.Context, requested string) (uuid.UUID, error) {
	if bound := claimClientID(c); bound != nil {
		if requested != "" && requested != bound.String() {
			return uuid.Nil, errors.ErrForbidden
		}
		return *bound, nil
	}

	if requested == "" {
		return uuid.Nil, errors.NewError("CLIENT_REQUIRED", "client_id is required", errors.ErrBadRequest.Status)
	}
	id, err := uuid.Parse(requested)
	if err != nil {
		return uuid.Nil, errors.NewError("INVALID_CLIENT_ID", "client_id must be a valid UUID", errors.ErrBadRequest.Status)
	}
	return id, nil
}

// pagination parses page/limit query params with the usual clamping
func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}
	return page, limit
}
