package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"vehirent-backend/internal/domain"
	"vehirent-backend/internal/service"
)

type ReviewHandler struct {
	reviews service.ReviewService
}

func NewReviewHandler(reviews service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

type submitReviewRequest struct {
	Direction string `json:"direction"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

// Submit handles POST /reservations/{reservationId}/reviews. A second submission for the
// same direction answers 200 with alreadySubmitted set.
func (h *ReviewHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondError(w, domain.ErrPermissionDenied)
		return
	}
	var body submitReviewRequest
	if err := decode(r, &body); err != nil {
		respondError(w, err)
		return
	}
	review, err := h.reviews.Submit(r.Context(), userID, mux.Vars(r)["reservationId"],
		domain.ReviewDirection(body.Direction), body.Rating, body.Comment)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, review)
}

// List handles GET /reservations/{reservationId}/reviews
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondError(w, domain.ErrPermissionDenied)
		return
	}
	reviews, err := h.reviews.ListForReservation(r.Context(), userID, mux.Vars(r)["reservationId"])
	if err != nil {
		respondError(w, err)
		return
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}
	respond(w, http.StatusOK, map[string]any{"reviews": reviews})
}
