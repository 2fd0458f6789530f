package apperror

import "github.com/gin-gonic/gin"

// Handler is the single error hook. Register it ahead of the middleware
// and handlers it covers: they call c.Error(err) and return, and once the
// rest of the chain has returned this renders the envelope.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		appErr := As(c.Errors.Last().Err)
		c.JSON(appErr.Status(), ErrorEnvelope(appErr))
	}
}

// Abort records err on the context and stops the handler chain; the
// Handler middleware registered earlier in the chain renders the response.
func Abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
