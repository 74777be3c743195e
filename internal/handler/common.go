package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/stall-rental/internal/middleware"
	"github.com/iliyamo/stall-rental/internal/service"
)

const dateLayout = "2006-01-02"

// Validator adapts go-playground/validator to echo.Validator.
type Validator struct{ v *validator.Validate }

func NewValidator() *Validator { return &Validator{v: validator.New(validator.WithRequiredStructEnabled())} }

func (cv *Validator) Validate(i any) error { return cv.v.Struct(i) }

// base carries what every handler needs: a logger for 500s and the upper
// bound for one request's database work.
type base struct {
	log     *zap.Logger
	timeout time.Duration
}

func newBase(log *zap.Logger, timeout time.Duration) base {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return base{log: log, timeout: timeout}
}

func (b base) ctx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), b.timeout)
}

// fail maps a service error to its HTTP status. Unknown errors are logged
// and answered with a generic 500.
func (b base) fail(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInconsistent):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status >= http.StatusInternalServerError {
		b.log.Error("request failed",
			zap.String("method", c.Request().Method), zap.String("route", c.Path()), zap.Error(err))
		return c.JSON(status, echo.Map{"error": "internal error"})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}

// bind decodes and validates the body into dst. On failure the 400 is
// already written and ok is false.
func bind(c echo.Context, dst any) (ok bool, err error) {
	if err := c.Bind(dst); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(dst); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": validationMessage(err)})
	}
	return true, nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return "invalid " + fe.Field() + ": failed " + fe.Tag()
	}
	return err.Error()
}

// pathID parses the :id parameter. On failure the 400 is already written.
func pathID(c echo.Context) (uint64, bool, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	return id, true, nil
}

// queryID parses an optional numeric query parameter; absent means 0.
func queryID(c echo.Context, name string) (uint64, bool, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, true, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid " + name})
	}
	return id, true, nil
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}

// callerID returns the id stored by the JWT middleware.
func callerID(c echo.Context) (uint64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, service.ErrUnauthenticated
	}
	return id, nil
}
