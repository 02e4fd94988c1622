package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/amaravindhan/backend-pet/internal/repository"
	"github.com/amaravindhan/backend-pet/internal/service"
	"github.com/amaravindhan/backend-pet/internal/validation"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const maxPageSize = 100

var (
	errUnauthorized  = errors.New("unauthorized")
	errInvalidUserID = errors.New("invalid user id")
)

type errorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func decodeJSON(c echo.Context, target any) error {
	decoder := json.NewDecoder(c.Request().Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

// bind decodes the body and runs the struct rules, answering 400 itself.
// A nil error with ok=false means the response is already written.
func bind(c echo.Context, v *validator.Validate, target any) (bool, error) {
	if err := decodeJSON(c, target); err != nil {
		return false, writeError(c, http.StatusBadRequest, err)
	}
	if v == nil {
		return true, nil
	}
	if err := validation.Translate(v.Struct(target)); err != nil {
		return false, writeServiceError(c, err)
	}
	return true, nil
}

func writeError(c echo.Context, status int, err error) error {
	return c.JSON(status, errorResponse{Message: err.Error()})
}

func writeServiceError(c echo.Context, err error) error {
	var fields validation.FieldErrors
	if errors.As(err, &fields) {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: validation.ErrInvalid.Error(), Errors: fields})
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrEmailRequired):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrInactiveUser):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrUserAlreadyExists), errors.Is(err, service.ErrAlreadyVerified):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInvalidCode):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrNotConfigured):
		status = http.StatusServiceUnavailable
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrPermissionNotFound),
		errors.Is(err, service.ErrGroupNotFound):
		status = http.StatusNotFound
	case errors.Is(err, repository.ErrUnknownDatabase):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		c.Logger().Error(err)
		return c.JSON(status, errorResponse{Message: http.StatusText(status)})
	}
	return writeError(c, status, err)
}

func parseLimitOffset(c echo.Context) (int, int) {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if limit <= 0 || limit > maxPageSize {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// parseBool reads an optional boolean query parameter.
func parseBool(c echo.Context, name string) (*bool, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func pathUserID(c echo.Context) (uuid.UUID, error) {
	return uuid.Parse(c.Param("id"))
}

func stringPtr(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}
