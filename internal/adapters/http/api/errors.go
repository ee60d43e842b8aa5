package api

import (
	"errors"
	"net/http"

	"github.com/okian/commskill/internal/adapters/coach"
	"github.com/okian/commskill/internal/adapters/provider"
	repository "github.com/okian/commskill/internal/adapters/repository"
	service "github.com/okian/commskill/internal/app"
	"github.com/okian/commskill/internal/domain/annotations"
	"github.com/okian/commskill/pkg/auth"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTooLarge     = errors.New("upload too large")
	ErrBackpressure = errors.New("backpressure")
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("unavailable")
)

// Error annotates an underlying error with the operation that failed and
// the kind used to pick the response status.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return e.Op + ": " + e.Kind.Error()
	case e.Kind == nil:
		return e.Op + ": " + e.Err.Error()
	default:
		return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
	}
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Wrap annotates err with op and classifies it.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: classify(err), Err: err}
}

// WrapKind annotates err with op and an explicit kind.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// NewKind returns an error of the given kind with no further cause.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// classify maps errors from the lower layers onto API kinds.
func classify(err error) error {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return ErrTooLarge
	case errors.Is(err, service.ErrBackpressure):
		return ErrBackpressure
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, coach.ErrConversationNotFound):
		return ErrNotFound
	case errors.Is(err, provider.ErrUpstream),
		errors.Is(err, coach.ErrUpstream):
		return provider.ErrUpstream
	case errors.Is(err, auth.ErrInvalidToken):
		return ErrUnauthorized
	case errors.Is(err, service.ErrInvalidScores),
		errors.Is(err, service.ErrMissingVideoURL),
		errors.Is(err, service.ErrEmptyVideo),
		errors.Is(err, coach.ErrEmptyMessage),
		errors.Is(err, annotations.ErrMalformed):
		return ErrBadRequest
	case errors.Is(err, service.ErrNoAnnotator),
		errors.Is(err, service.ErrCoachUnavailable),
		errors.Is(err, service.ErrNotStarted):
		return ErrUnavailable
	default:
		return nil
	}
}

// statusFor returns the response status and code for err.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, provider.ErrUpstream):
		return http.StatusBadGateway, "upstream_failed"
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
