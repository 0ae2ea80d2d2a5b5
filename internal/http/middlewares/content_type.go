package middlewares

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireBodyType rejects write requests whose body is neither JSON nor an
// urlencoded form.
func RequireBodyType() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			mt, _, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
			if err != nil || (mt != gin.MIMEJSON && mt != gin.MIMEPOSTForm) {
				abortWithError(c, http.StatusUnsupportedMediaType, "unsupported_media_type",
					"Content-Type must be application/json or application/x-www-form-urlencoded")
				return
			}
		}
		c.Next()
	}
}
