package http

import (
	"errors"
	"net/http"

	"github.com/sony/gobreaker/v2"

	"github.com/utafrali/reviewregistry/internal/domain"
	apperrors "github.com/utafrali/reviewregistry/pkg/errors"
)

var rejectionStatus = map[error]int{
	domain.ErrNotAuthorized:         http.StatusForbidden,
	domain.ErrInvalidRating:         http.StatusBadRequest,
	domain.ErrInvalidCommentLength:  http.StatusBadRequest,
	domain.ErrInvalidPurchaseToken:  http.StatusUnprocessableEntity,
	domain.ErrBusinessNotRegistered: http.StatusUnprocessableEntity,
	domain.ErrPurchaseTokenUsed:     http.StatusConflict,
	domain.ErrReviewAlreadyExists:   http.StatusConflict,
	domain.ErrReviewNotFound:        http.StatusNotFound,
	domain.ErrMaxReviewsExceeded:    http.StatusConflict,
	domain.ErrInvalidStatus:         http.StatusConflict,
}

// toAppError translates registry rejections into AppErrors carrying the
// symbolic code and the numeric wire code. Other errors pass through,
// except an open circuit breaker which becomes a 503.
func toAppError(err error) error {
	for sentinel, status := range rejectionStatus {
		if !errors.Is(err, sentinel) {
			continue
		}
		wire, _ := domain.WireCode(sentinel)
		appErr := &apperrors.AppError{
			Code:    domain.Kind(sentinel),
			Message: sentinel.Error(),
			Status:  status,
			Err:     err,
		}
		return appErr.WithWireCode(wire)
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &apperrors.AppError{
			Code:    "SERVICE_UNAVAILABLE",
			Message: "purchase service is unavailable",
			Status:  http.StatusServiceUnavailable,
			Err:     errors.Join(apperrors.ErrServiceUnavail, err),
		}
	}
	return err
}
