package auth

import (
	"errors"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Error kinds. Callers classify with errors.Is; everything else is context.
var (
	// ErrValidation is returned when input fails structural or semantic checks
	ErrValidation = errors.New("invalid input data")
	// ErrAuth is returned when credentials do not match
	ErrAuth = errors.New("incorrect email or password")
	// ErrUnauthenticated is returned when a request carries no usable session
	ErrUnauthenticated = errors.New("you are not logged in, please log in to get access")
	// ErrForbidden is returned when the caller's role is not allowed
	ErrForbidden = errors.New("you do not have permission to perform this action")
	// ErrResetTokenInvalid covers unknown, expired and consumed reset tokens
	ErrResetTokenInvalid = errors.New("token is invalid or has expired")
	// ErrDelivery is returned when an outbound message could not be sent
	ErrDelivery = errors.New("there was an error sending the email, try again later")
	// ErrConflict is returned when a unique attribute is already taken
	ErrConflict = errors.New("an account with this email already exists")
	// ErrRecordNotFound is returned by stores when nothing matches
	ErrRecordNotFound = errors.New("record not found")
)

// Refinements of the kinds above. Each one matches its kind through errors.Is.
var (
	ErrInvalidToken         = newKindError(ErrUnauthenticated, "invalid token, please log in again")
	ErrExpiredToken         = newKindError(ErrUnauthenticated, "your token has expired, please log in again")
	ErrMissingToken         = newKindError(ErrUnauthenticated, "you are not logged in, please log in to get access")
	ErrTokenUserGone        = newKindError(ErrUnauthenticated, "the user belonging to this token no longer exists")
	ErrPasswordChanged      = newKindError(ErrUnauthenticated, "user recently changed password, please log in again")
	ErrWrongCurrentPassword = newKindError(ErrAuth, "your current password is wrong")
	ErrPasswordRoute        = newKindError(ErrValidation, "this route is not for password updates, please use /updateMyPassword")

	ErrNoEmptyString             = newKindError(ErrValidation, "password can not be empty")
	ErrMismatchedHashAndPassword = newKindError(ErrAuth, "password does not match")
	ErrInvalidRole               = newKindError(ErrValidation, "invalid role")
)

const (
	textCodeValidation    = "AUTH_VALIDATION"
	textCodeAuth          = "AUTH_CREDENTIALS"
	textCodeToken         = "AUTH_TOKEN"
	textCodeResetToken    = "AUTH_RESET_TOKEN"
	textCodeDelivery      = "AUTH_DELIVERY"
	textCodeConflict      = "AUTH_CONFLICT"
	textCodeStore         = "AUTH_STORE"
	textCodeInternal      = "AUTH_INTERNAL"
	textCodeForbidden     = "AUTH_FORBIDDEN"
	textCodeUnauthorized  = "AUTH_UNAUTHENTICATED"
	textCodeInvalidConfig = "AUTH_CONFIG"
)

const genericErrorMessage = "something went wrong"

type kindError struct {
	kind error
	msg  string
}

func newKindError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// ValidationError carries per field failures from ozzo validation.
type ValidationError struct {
	Fields  validation.Errors
	Message string
}

// NewValidationError wraps err so it classifies as ErrValidation.
func NewValidationError(err error) error {
	if err == nil {
		return nil
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		return err
	}

	var fields validation.Errors
	if errors.As(err, &fields) {
		return &ValidationError{Fields: fields, Message: fields.Error()}
	}

	return &ValidationError{Message: err.Error()}
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return ErrValidation.Error()
	}
	return ErrValidation.Error() + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

type publicError struct {
	err    error
	status int
}

// Ordered from most to least specific, first match wins.
var publicErrors = []publicError{
	{ErrExpiredToken, http.StatusUnauthorized},
	{ErrInvalidToken, http.StatusUnauthorized},
	{ErrMissingToken, http.StatusUnauthorized},
	{ErrTokenUserGone, http.StatusUnauthorized},
	{ErrPasswordChanged, http.StatusUnauthorized},
	{ErrUnauthenticated, http.StatusUnauthorized},
	{ErrWrongCurrentPassword, http.StatusUnauthorized},
	{ErrAuth, http.StatusUnauthorized},
	{ErrForbidden, http.StatusForbidden},
	{ErrResetTokenInvalid, http.StatusBadRequest},
	{ErrConflict, http.StatusConflict},
	{ErrDelivery, http.StatusInternalServerError},
	{ErrRecordNotFound, http.StatusNotFound},
}

// Classify maps err to a response status and a message that is safe to show
// to clients. Unknown errors collapse to a generic 500.
func Classify(err error) (int, string) {
	if err == nil {
		return http.StatusOK, ""
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, verr.Error()
	}

	for _, pe := range publicErrors {
		if errors.Is(err, pe.err) {
			return pe.status, pe.err.Error()
		}
	}

	if errors.Is(err, ErrValidation) {
		return http.StatusBadRequest, validationMessage(err)
	}

	return http.StatusInternalServerError, genericErrorMessage
}

func validationMessage(err error) string {
	for _, known := range []error{ErrPasswordRoute, ErrNoEmptyString, ErrInvalidRole} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return ErrValidation.Error()
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrExpiredToken) || strings.Contains(err.Error(), "token is expired")
}

// isUniqueViolation recognizes unique index failures from sqlite and postgres.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
