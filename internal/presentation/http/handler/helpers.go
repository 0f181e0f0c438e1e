package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sangkips/storefront-api/internal/application/service"
	"github.com/sangkips/storefront-api/internal/presentation/http/dto/response"
	"github.com/sangkips/storefront-api/internal/presentation/http/middleware"
	"github.com/sangkips/storefront-api/pkg/apperror"
)

// GetUserID extracts the user ID from the Gin context
func GetUserID(c *gin.Context) *uuid.UUID {
	userIDVal, exists := c.Get(middleware.ContextUserID)
	if !exists {
		return nil
	}
	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		return nil
	}
	return &userID
}

// GetUserRoles extracts the user roles from the Gin context
func GetUserRoles(c *gin.Context) []string {
	roles, exists := c.Get(middleware.ContextUserRoles)
	if !exists {
		return nil
	}
	list, _ := roles.([]string)
	return list
}

// GetActor builds the service actor from the authenticated claims. The zero
// Actor stands for an anonymous caller.
func GetActor(c *gin.Context) service.Actor {
	var actor service.Actor
	if id := GetUserID(c); id != nil {
		actor.UserID = *id
	}
	actor.Roles = GetUserRoles(c)
	return actor
}

// parseIDParam reads a uuid path parameter, writing a 400 when malformed
func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, fmt.Sprintf("Invalid %s", strings.ReplaceAll(name, "_", " ")))
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON decodes the body, writing a validation error response on failure
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, bindingError(err))
		return false
	}
	return true
}

func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperror.NewBadRequestError("Invalid request body")
	}
	fieldErrors := make([]apperror.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fieldErrors = append(fieldErrors, apperror.FieldError{
			Field:   jsonFieldName(fe),
			Message: validationMessage(fe),
		})
	}
	return apperror.NewValidationError(fieldErrors)
}

func jsonFieldName(fe validator.FieldError) string {
	// Namespace is Struct.Field.Sub; drop the struct name
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return toSnake(ns)
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && s[i-1] != '.' && s[i-1] != '[' {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Must be a valid e-mail address"
	case "min":
		return "Must be at least " + fe.Param()
	case "max":
		return "Must be at most " + fe.Param()
	case "eqfield":
		return "Does not match " + toSnake(fe.Param())
	}
	return "Invalid value"
}
