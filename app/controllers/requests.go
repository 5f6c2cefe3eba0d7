package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"postwall/app/models"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

const maxBodyBytes = 1 << 20

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=256"`
	Email    string `json:"email" validate:"required,email,min=6,max=256"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email,min=6,max=256"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// createPostRequest leaves emptiness to the engine so the messages match
// across transports.
type createPostRequest struct {
	Title   string `json:"title"`
	Topic   string `json:"topic"`
	Message string `json:"message"`
}

type commentRequest struct {
	Text string `json:"text"`
}

// decode reads a JSON body into dst and runs its validate tags.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return models.Validation("invalid JSON body")
	}
	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return models.Validation(err.Error())
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return models.Validation(field + " is required")
	case "email":
		return models.Validation(field + " must be a valid email")
	case "min":
		return models.Validation(field + " must be at least " + fe.Param() + " characters")
	case "max":
		return models.Validation(field + " must be at most " + fe.Param() + " characters")
	default:
		return models.Validation(field + " is invalid")
	}
}
