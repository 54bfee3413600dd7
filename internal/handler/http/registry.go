package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/reviewregistry/internal/domain"
	"github.com/utafrali/reviewregistry/internal/registry"
	apperrors "github.com/utafrali/reviewregistry/pkg/errors"
	"github.com/utafrali/reviewregistry/pkg/httputil"
	"github.com/utafrali/reviewregistry/pkg/middleware"
	"github.com/utafrali/reviewregistry/pkg/pagination"
	"github.com/utafrali/reviewregistry/pkg/validator"
)

// HeightHeader carries the logical time of a mutation. Without it the
// server clock in Unix seconds is used.
const HeightHeader = "X-Block-Height"

const maxBodyBytes = 16 << 10

// ReviewService is the registry surface the handlers need.
// *service.ReviewService satisfies it.
type ReviewService interface {
	SetAuthority(ctx context.Context, caller domain.Caller, principal string) bool
	SetReviewFee(ctx context.Context, caller domain.Caller, amount uint64) bool
	SubmitReview(ctx context.Context, caller domain.Caller, in registry.SubmitInput) (uint64, error)
	UpdateReview(ctx context.Context, caller domain.Caller, id uint64, rating int, comment string) error
	GetReview(ctx context.Context, id uint64) (domain.Review, error)
	LatestUpdate(ctx context.Context, id uint64) (domain.ReviewUpdate, error)
	ReviewCount(ctx context.Context) uint64
	ReviewExists(ctx context.Context, purchaseTokenID uint64) bool
	Aggregate(ctx context.Context, businessID uint64) domain.BusinessAggregate
	ListBusinessReviews(ctx context.Context, businessID uint64, p pagination.Params) pagination.Result[domain.Review]
	Settings(ctx context.Context) domain.Settings
}

// RegistryHandler handles HTTP requests for the review registry.
type RegistryHandler struct {
	service ReviewService
	logger  *slog.Logger
	now     func() time.Time
}

// NewRegistryHandler creates a registry HTTP handler.
func NewRegistryHandler(svc ReviewService, logger *slog.Logger) *RegistryHandler {
	return &RegistryHandler{service: svc, logger: logger, now: time.Now}
}

// --- Request DTOs ---

// SetAuthorityRequest is the body of POST /api/v1/registry/authority.
type SetAuthorityRequest struct {
	Principal string `json:"principal" validate:"required,principal"`
}

// SetFeeRequest is the body of PUT /api/v1/registry/fee.
type SetFeeRequest struct {
	Amount *uint64 `json:"amount" validate:"required"`
}

// SubmitReviewRequest is the body of POST /api/v1/reviews. Rating and
// comment bounds are left to the registry so rejections keep their order.
type SubmitReviewRequest struct {
	PurchaseTokenID *uint64 `json:"purchase_token_id" validate:"required"`
	BusinessID      *uint64 `json:"business_id" validate:"required"`
	Rating          int     `json:"rating"`
	Comment         string  `json:"comment"`
}

// UpdateReviewRequest is the body of PUT /api/v1/reviews/{id}.
type UpdateReviewRequest struct {
	Rating  *int   `json:"rating" validate:"required"`
	Comment string `json:"comment"`
}

// --- Response DTOs ---

// UpdatedResponse reports whether a setting or review changed.
type UpdatedResponse struct {
	Updated bool `json:"updated"`
}

// IDResponse carries the id of a created review.
type IDResponse struct {
	ID uint64 `json:"id"`
}

// CountResponse carries the review counter.
type CountResponse struct {
	Count uint64 `json:"count"`
}

// ExistsResponse reports whether a purchase token was redeemed.
type ExistsResponse struct {
	Exists bool `json:"exists"`
}

// --- Handlers ---

// SetAuthority handles POST /api/v1/registry/authority
func (h *RegistryHandler) SetAuthority(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req SetAuthorityRequest
	if !h.decode(w, r, &req) {
		return
	}

	updated := h.service.SetAuthority(r.Context(), caller, req.Principal)
	httputil.WriteData(w, http.StatusOK, UpdatedResponse{Updated: updated})
}

// SetReviewFee handles PUT /api/v1/registry/fee
func (h *RegistryHandler) SetReviewFee(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req SetFeeRequest
	if !h.decode(w, r, &req) {
		return
	}

	updated := h.service.SetReviewFee(r.Context(), caller, *req.Amount)
	httputil.WriteData(w, http.StatusOK, UpdatedResponse{Updated: updated})
}

// GetSettings handles GET /api/v1/registry/settings
func (h *RegistryHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, h.service.Settings(r.Context()))
}

// SubmitReview handles POST /api/v1/reviews
func (h *RegistryHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req SubmitReviewRequest
	if !h.decode(w, r, &req) {
		return
	}

	id, err := h.service.SubmitReview(r.Context(), caller, registry.SubmitInput{
		PurchaseTokenID: *req.PurchaseTokenID,
		BusinessID:      *req.BusinessID,
		Rating:          req.Rating,
		Comment:         req.Comment,
	})
	if err != nil {
		httputil.WriteError(w, r, toAppError(err), h.logger)
		return
	}

	w.Header().Set("Location", "/api/v1/reviews/"+strconv.FormatUint(id, 10))
	httputil.WriteData(w, http.StatusCreated, IDResponse{ID: id})
}

// GetReviewCount handles GET /api/v1/reviews/count
func (h *RegistryHandler) GetReviewCount(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, CountResponse{Count: h.service.ReviewCount(r.Context())})
}

// GetReview handles GET /api/v1/reviews/{id}
func (h *RegistryHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUint(w, "review id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	review, err := h.service.GetReview(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, toAppError(err), h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, review)
}

// UpdateReview handles PUT /api/v1/reviews/{id}
func (h *RegistryHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUint(w, "review id", chi.URLParam(r, "id"))
	if !ok {
		return
	}
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req UpdateReviewRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.UpdateReview(r.Context(), caller, id, *req.Rating, req.Comment); err != nil {
		httputil.WriteError(w, r, toAppError(err), h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, UpdatedResponse{Updated: true})
}

// GetLatestUpdate handles GET /api/v1/reviews/{id}/latest-update
func (h *RegistryHandler) GetLatestUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUint(w, "review id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	update, err := h.service.LatestUpdate(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, toAppError(err), h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, update)
}

// CheckReviewExists handles GET /api/v1/purchases/{tokenId}/review
func (h *RegistryHandler) CheckReviewExists(w http.ResponseWriter, r *http.Request) {
	tokenID, ok := httputil.ParseUint(w, "purchase token id", chi.URLParam(r, "tokenId"))
	if !ok {
		return
	}
	httputil.WriteData(w, http.StatusOK, ExistsResponse{Exists: h.service.ReviewExists(r.Context(), tokenID)})
}

// GetBusinessAggregate handles GET /api/v1/businesses/{businessId}/aggregate
func (h *RegistryHandler) GetBusinessAggregate(w http.ResponseWriter, r *http.Request) {
	businessID, ok := httputil.ParseUint(w, "business id", chi.URLParam(r, "businessId"))
	if !ok {
		return
	}
	httputil.WriteData(w, http.StatusOK, h.service.Aggregate(r.Context(), businessID))
}

// ListBusinessReviews handles GET /api/v1/businesses/{businessId}/reviews.
func (h *RegistryHandler) ListBusinessReviews(w http.ResponseWriter, r *http.Request) {
	businessID, ok := httputil.ParseUint(w, "business id", chi.URLParam(r, "businessId"))
	if !ok {
		return
	}
	params, err := pagination.FromRequest(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.service.ListBusinessReviews(r.Context(), businessID, params))
}

// caller resolves who is calling and at which height. Mutations need an
// identified principal.
func (h *RegistryHandler) caller(w http.ResponseWriter, r *http.Request) (domain.Caller, bool) {
	principal := middleware.PrincipalFromContext(r.Context())
	if principal == "" {
		httputil.WriteError(w, r, apperrors.Unauthorized("caller principal is required"), h.logger)
		return domain.Caller{}, false
	}

	height := uint64(h.now().Unix())
	if v := r.Header.Get(HeightHeader); v != "" {
		parsed, ok := httputil.ParseUint(w, HeightHeader, v)
		if !ok {
			return domain.Caller{}, false
		}
		height = parsed
	}
	return domain.Caller{Principal: principal, Height: height}, true
}

func (h *RegistryHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := validator.DecodeAndValidate(r, dst); err != nil {
		httputil.WriteValidationError(w, err)
		return false
	}
	return true
}
