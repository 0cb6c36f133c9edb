package controllers

import (
	"net/http"

	"github.com/backstagehn/storefront-backend/api/middleware"
	"github.com/backstagehn/storefront-backend/api/responses"
	"github.com/backstagehn/storefront-backend/api/validators"
	checkoutsvc "github.com/backstagehn/storefront-backend/internal/checkout"
	pkgerrors "github.com/backstagehn/storefront-backend/pkg/errors"
	"github.com/backstagehn/storefront-backend/pkg/logger"
)

// Checkout places a direct order for the authenticated shopper, validating
// the whole cart and reserving stock atomically.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID <= 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var payload checkoutsvc.CheckoutInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.PlaceOrder(r.Context(), userID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
