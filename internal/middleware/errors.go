package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/intervention-api/internal/apperr"
)

// Policy selects how validation failures are rendered for a route group.
type Policy int

const (
	// PolicyProblem renders a problem document.  It is the default.
	PolicyProblem Policy = iota
	// PolicyDetailed renders the business errors as a bare JSON array.
	PolicyDetailed
)

const policyKey = "error_policy"

// ErrorPolicy declares the rendering policy of every route in a group.
func ErrorPolicy(p Policy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(policyKey, p)
			return next(c)
		}
	}
}

func policyOf(c echo.Context) Policy {
	p, _ := c.Get(policyKey).(Policy)
	return p
}

// Problem is the error document returned to API clients.
type Problem struct {
	Title  string         `json:"title"`
	Status int            `json:"status"`
	Detail string         `json:"detail,omitempty"`
	Errors []ProblemError `json:"errors,omitempty"`
}

// ProblemError is one business error inside a Problem.
type ProblemError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const genericMessage = "An unexpected error occurred. Please try again later."

// ErrorHandler is the single place errors become HTTP responses.  Every
// error is logged before anything is written, and a response that has
// already been committed is left alone.
func ErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		status, body := classify(log, err, c)
		if c.Response().Committed {
			return
		}
		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			log.Error("write error response", "err", werr, "route", c.Path())
		}
	}
}

func classify(log *slog.Logger, err error, c echo.Context) (int, any) {
	var (
		ve *apperr.ValidationError
		nf *apperr.NotFoundError
		he *echo.HTTPError
	)
	switch {
	case errors.As(err, &ve):
		log.Warn("validation failed", "route", c.Path(), "user", Username(c), "object", ve.ObjectType, "errors", len(ve.Errors))
		if policyOf(c) == PolicyDetailed {
			return http.StatusBadRequest, ve.Errors
		}
		p := Problem{Title: "BadRequest", Status: http.StatusBadRequest, Detail: ve.Error()}
		for _, be := range ve.Errors {
			p.Errors = append(p.Errors, ProblemError{Code: be.Code.String(), Message: be.Message})
		}
		return http.StatusBadRequest, p

	case errors.As(err, &nf):
		log.Warn("resource not found", "route", c.Path(), "user", Username(c), "err", nf.Error())
		return http.StatusNotFound, Problem{Title: "NotFound", Status: http.StatusNotFound, Detail: nf.Error()}

	case errors.As(err, &he):
		if he.Code >= http.StatusInternalServerError {
			logChain(log, err, c)
		}
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok {
			msg = s
		} else if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
		return he.Code, echo.Map{"error": msg}
	}

	logChain(log, err, c)
	return http.StatusInternalServerError, Problem{
		Title:  "InternalServerError",
		Status: http.StatusInternalServerError,
		Detail: genericMessage,
	}
}

// logChain logs the error with every wrapped cause.
func logChain(log *slog.Logger, err error, c echo.Context) {
	var chain []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		chain = append(chain, e.Error())
	}
	log.Error("unhandled error",
		"err", err.Error(),
		"chain", chain,
		"method", c.Request().Method,
		"route", c.Path(),
		"user", Username(c),
		"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
	)
}
