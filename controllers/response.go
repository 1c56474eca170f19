package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/college-canteen/canteen-api/logger"
	"github.com/college-canteen/canteen-api/models"
	"github.com/college-canteen/canteen-api/services"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		// Report json field names instead of Go struct field names
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return field.Name
			}
			return name
		})
		_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
			return models.Role(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("user_status", func(fl validator.FieldLevel) bool {
			return models.UserStatus(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
			return models.Category(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("order_status", func(fl validator.FieldLevel) bool {
			return models.OrderStatus(fl.Field().String()).Valid()
		})
	}
}

// FieldError is one entry of a validation failure response
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"message": message,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// respondServiceError maps domain errors onto their status and code. Anything
// else is logged and hidden behind a generic 500.
func respondServiceError(c *gin.Context, err error) {
	if se, ok := services.AsServiceError(err); ok {
		if se.Kind == services.KindGateway || se.Kind == services.KindInternal {
			logger.FromContext(c).Error("request failed", "code", se.Code, "error", err)
		}
		respondError(c, se.Kind.HTTPStatus(), se.Code, se.Message)
		return
	}

	logger.FromContext(c).Error("unexpected error", "path", c.Request.URL.Path, "error", err)
	respondError(c, http.StatusInternalServerError, services.CodeInternal, "Internal server error")
}

func respondValidationError(c *gin.Context, err error) {
	fields := []FieldError{}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, fe := range validationErrs {
			fields = append(fields, FieldError{Field: fe.Field(), Message: validationMessage(fe)})
		}
	} else {
		fields = append(fields, FieldError{Field: "body", Message: "Request body is not valid JSON"})
	}

	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": "Invalid request data",
		"errors":  fields,
	})
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Please enter a valid email"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "dive":
		return fmt.Sprintf("%s contains an invalid entry", fe.Field())
	case "role", "user_status", "category", "order_status":
		return fmt.Sprintf("%s is not a valid %s", fe.Field(), strings.ReplaceAll(fe.Tag(), "_", " "))
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// pageRequest reads the page and limit query parameters; invalid values fall
// back to the service defaults
func pageRequest(c *gin.Context) services.PageRequest {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return services.PageRequest{Page: page, Limit: limit}
}

// uintParam parses a numeric path parameter, writing a 400 when it is not one
func uintParam(c *gin.Context, name, what string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondError(c, http.StatusBadRequest, "INVALID_ID", fmt.Sprintf("Invalid %s ID", what))
		return 0, false
	}
	return uint(id), true
}
