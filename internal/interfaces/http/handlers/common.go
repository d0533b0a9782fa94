// Package handlers implements the HTTP API: editor sessions, resolution and
// analysis, saved sketches, and operational endpoints.
package handlers

import (
	goerrors "errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kFady/stereo-site-1/internal/interfaces/http/middleware"
	"github.com/kFady/stereo-site-1/pkg/errors"
	"github.com/kFady/stereo-site-1/pkg/types/common"
)

// respond writes the standard success envelope.
func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, common.APIResponse[interface{}]{
		Success:   true,
		Data:      data,
		RequestID: middleware.GetRequestID(c),
		Timestamp: common.NewTimestamp(),
	})
}

// respondPage writes a success envelope carrying pagination metadata.
func respondPage(c *gin.Context, data interface{}, p common.Pagination) {
	c.JSON(http.StatusOK, common.APIResponse[interface{}]{
		Success:    true,
		Data:       data,
		Pagination: &p,
		RequestID:  middleware.GetRequestID(c),
		Timestamp:  common.NewTimestamp(),
	})
}

// respondError maps an error to its HTTP status via the application error
// code and writes the error envelope.  Non-AppError values become 500s with
// a generic message so internals never leak.
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)

	message := errors.DefaultMessageForCode(code)
	var ae *errors.AppError
	if goerrors.As(err, &ae) && ae.Message != "" {
		message = ae.Message
	}

	resp := common.APIResponse[interface{}]{
		Success: false,
		Error: &common.ErrorDetail{
			Code:    string(code),
			Message: message,
		},
		RequestID: middleware.GetRequestID(c),
		Timestamp: common.NewTimestamp(),
	}
	if ae != nil && ae.Detail != "" {
		resp.Error.Details = map[string]interface{}{"detail": ae.Detail}
	}
	c.AbortWithStatusJSON(status, resp)
}

// bindJSON decodes the request body, converting decode failures into the
// standard validation error.
func bindJSON(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "invalid request body")
	}
	return nil
}

// parsePagination reads ?page and ?page_size with the usual defaults.
func parsePagination(c *gin.Context) common.Pagination {
	p := common.Pagination{Page: 1, PageSize: 20}
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v >= 1 {
		p.Page = v
	}
	if v, err := strconv.Atoi(c.Query("page_size")); err == nil && v >= 1 && v <= 100 {
		p.PageSize = v
	}
	return p
}
