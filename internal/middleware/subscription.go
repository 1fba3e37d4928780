package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prepaconcours/prepa-backend/internal/response"
)

// RequireExamAccess lets free accounts open mock exams numbered up to
// freeLimit; higher numbers need a premium plan. Must run after a JWT middleware.
func RequireExamAccess(freeLimit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		n, err := strconv.Atoi(c.Param("exam_number"))
		if err != nil || n < 1 {
			response.AbortFail(c, http.StatusBadRequest, response.ErrValidation)
			return
		}

		if n > freeLimit && !claims.Premium() {
			response.AbortFail(c, http.StatusForbidden, response.ErrSubscriptionRequired)
			return
		}

		c.Next()
	}
}
