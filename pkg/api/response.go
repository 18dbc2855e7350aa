package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "dispatch-system/pkg/errors"
)

type Response[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Body    T      `json:"body,omitempty"`
}

type ListBody[T any] struct {
	List       []T             `json:"list"`
	Pagination *PaginationMeta `json:"pagination"`
}

type PaginationMeta struct {
	TotalCount uint64 `json:"total_count"`
	TotalPages int    `json:"total_pages"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
}

// ErrorBody - структурированный контекст ошибки для клиента.
type ErrorBody struct {
	Kind    string      `json:"kind"`
	Details interface{} `json:"details,omitempty"`
}

// SuccessOne - для возврата одного объекта
func SuccessOne[T any](c echo.Context, code int, message string, data T) error {
	return c.JSON(code, Response[T]{
		Status:  true,
		Message: message,
		Body:    data,
	})
}

func SuccessList[T any](c echo.Context, message string, list []T, total uint64, page, limit int) error {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + uint64(limit) - 1) / uint64(limit))
	}

	if list == nil {
		list = make([]T, 0)
	}

	body := ListBody[T]{
		List: list,
		Pagination: &PaginationMeta{
			TotalCount: total,
			TotalPages: totalPages,
			Page:       page,
			Limit:      limit,
		},
	}

	return c.JSON(http.StatusOK, Response[ListBody[T]]{
		Status:  true,
		Message: message,
		Body:    body,
	})
}

func ErrorResponse(c echo.Context, err error) error {
	code, body := Classify(err)
	msg := err.Error()

	var httpErr *apperrors.HttpError
	if errors.As(err, &httpErr) {
		msg = httpErr.Message
	}

	return c.JSON(code, Response[ErrorBody]{
		Status:  false,
		Message: msg,
		Body:    body,
	})
}

// Classify сопоставляет ошибку домена с HTTP-кодом.
func Classify(err error) (int, ErrorBody) {
	var (
		validationErr  *apperrors.ValidationError
		conflictErr    *apperrors.ConflictError
		transitionErr  *apperrors.InvalidTransitionError
		eligibilityErr *apperrors.EligibilityError
		notFoundErr    *apperrors.NotFoundError
		storageErr     *apperrors.StorageError
		httpErr        *apperrors.HttpError
		echoErr        *echo.HTTPError
	)

	switch {
	case errors.As(err, &httpErr):
		return httpErr.Code, ErrorBody{Kind: "http", Details: httpErr.Details}
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, ErrorBody{Kind: "validation", Details: map[string]string{"field": validationErr.Field}}
	case errors.As(err, &conflictErr):
		return http.StatusConflict, ErrorBody{Kind: "conflict", Details: conflictErr}
	case errors.As(err, &transitionErr):
		return http.StatusConflict, ErrorBody{Kind: "invalid_transition", Details: transitionErr}
	case errors.As(err, &eligibilityErr):
		return http.StatusUnprocessableEntity, ErrorBody{Kind: "eligibility", Details: eligibilityErr.Failures}
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound, ErrorBody{Kind: "not_found", Details: notFoundErr}
	case errors.As(err, &storageErr):
		return http.StatusServiceUnavailable, ErrorBody{Kind: "storage"}
	case errors.As(err, &echoErr):
		return echoErr.Code, ErrorBody{Kind: "http"}
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden, ErrorBody{Kind: "forbidden"}
	case errors.Is(err, apperrors.ErrUnauthorized),
		errors.Is(err, apperrors.ErrEmptyAuthHeader),
		errors.Is(err, apperrors.ErrInvalidAuthHeader),
		errors.Is(err, apperrors.ErrInvalidToken),
		errors.Is(err, apperrors.ErrTokenExpired),
		errors.Is(err, apperrors.ErrTokenIsNotAccess),
		errors.Is(err, apperrors.ErrActorNotFoundInContext):
		return http.StatusUnauthorized, ErrorBody{Kind: "unauthorized"}
	}
	return http.StatusInternalServerError, ErrorBody{Kind: "internal"}
}
