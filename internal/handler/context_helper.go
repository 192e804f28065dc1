package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/haperez86/EduPay/internal/middleware"
	"github.com/haperez86/EduPay/internal/models"
	appErrors "github.com/haperez86/EduPay/pkg/errors"
	"github.com/haperez86/EduPay/pkg/response"
)

// actorFromContext returns the authenticated actor or writes a 401 and reports false.
func actorFromContext(c *gin.Context) (models.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Actor{}, false
	}
	return actor, true
}

func optionalQuery(c *gin.Context, key string) *string {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil
	}
	return &value
}

// optionalYear parses the year query parameter. A missing value yields nil.
func optionalYear(c *gin.Context) (*int, error) {
	raw := strings.TrimSpace(c.Query("year"))
	if raw == "" {
		return nil, nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, "year must be numeric")
	}
	return &year, nil
}
