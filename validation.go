package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"worktrack/models"
)

var (
	hhmmPattern  = regexp.MustCompile(`^([01]?\d|2[0-3]):[0-5]\d$`)
	colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
	validateOnce sync.Once
)

// registerValidators installs the custom tags on gin's validator and makes
// field errors report json names.
func registerValidators() {
	validateOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
			_, err := models.ParseDate(fl.Field().String())
			return err == nil
		})
		// empty means the time was left out
		_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return s == "" || hhmmPattern.MatchString(s)
		})
		_ = v.RegisterValidation("hexcolor6", func(fl validator.FieldLevel) bool {
			return colorPattern.MatchString(fl.Field().String())
		})
	})
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		respondValidation(c, verrs)
		return
	}
	_ = c.Error(err)
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("%s has the wrong type", typeErr.Field))
		return
	}
	respondError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
}

func respondValidation(c *gin.Context, verrs validator.ValidationErrors) {
	out := make([]fieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fieldError{Field: fe.Field(), Message: validationMessage(fe)})
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "errors": out})
}

// respondFieldError reports a single rule checked outside the validator.
func respondFieldError(c *gin.Context, field, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":  "validation failed",
		"errors": []fieldError{{Field: field, Message: message}},
	})
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "isodate":
		return "must be a valid date (YYYY-MM-DD)"
	case "hhmm":
		return "must be a time in HH:MM format"
	case "hexcolor6":
		return "must be a color like #RRGGBB"
	case "dive":
		return "contains an invalid value"
	}
	return "is invalid"
}
