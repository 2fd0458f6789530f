package crud

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snapq/snapq-go/internal/apperror"
	"github.com/snapq/snapq-go/internal/querybuilder"
)

// RegisterRoutes mounts the list/get/create/update/delete handlers for one
// resource type under the given route group. Each handler declares fresh
// T / []T values per request so concurrent requests never share state.
func RegisterRoutes[T any](group *gin.RouterGroup, resource *Resource) {
	group.GET("", func(c *gin.Context) {
		query, err := querybuilder.ParseFromRequest(c)
		if err != nil {
			apperror.Abort(c, apperror.Validation(err.Error()))
			return
		}

		var rows []T
		result, err := resource.List(query, &rows)
		if err != nil {
			apperror.Abort(c, apperror.As(err))
			return
		}
		c.JSON(http.StatusOK, apperror.DataEnvelope(result.Rows, map[string]interface{}{
			"total":  result.Total,
			"limit":  query.Limit,
			"offset": query.Offset,
		}))
	})

	group.GET("/:id", func(c *gin.Context) {
		var row T
		if err := resource.Get(c.Param("id"), &row); err != nil {
			apperror.Abort(c, apperror.As(err))
			return
		}
		c.JSON(http.StatusOK, apperror.DataEnvelope(row, nil))
	})

	group.POST("", func(c *gin.Context) {
		var row T
		if err := c.ShouldBindJSON(&row); err != nil {
			apperror.Abort(c, apperror.Validation(err.Error()))
			return
		}
		if err := resource.Create(&row); err != nil {
			apperror.Abort(c, apperror.As(err))
			return
		}
		c.JSON(http.StatusCreated, apperror.DataEnvelope(row, nil))
	})

	group.PATCH("/:id", func(c *gin.Context) {
		var updates map[string]interface{}
		if err := c.ShouldBindJSON(&updates); err != nil {
			apperror.Abort(c, apperror.Validation(err.Error()))
			return
		}
		var row T
		if err := resource.Update(c.Param("id"), &row, updates); err != nil {
			apperror.Abort(c, apperror.As(err))
			return
		}
		c.JSON(http.StatusOK, apperror.DataEnvelope(row, nil))
	})

	group.DELETE("/:id", func(c *gin.Context) {
		hard := c.Query("hard") == "true"
		var row T
		if err := resource.Delete(c.Param("id"), &row, hard); err != nil {
			apperror.Abort(c, apperror.As(err))
			return
		}
		c.Status(http.StatusNoContent)
	})
}
