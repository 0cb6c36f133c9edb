package controllers

import (
	"net/http"

	"github.com/backstagehn/storefront-backend/api/middleware"
	"github.com/backstagehn/storefront-backend/api/responses"
	"github.com/backstagehn/storefront-backend/api/validators"
	checkoutsvc "github.com/backstagehn/storefront-backend/internal/checkout"
	paymentsvc "github.com/backstagehn/storefront-backend/internal/payments"
	pkgerrors "github.com/backstagehn/storefront-backend/pkg/errors"
	"github.com/backstagehn/storefront-backend/pkg/logger"
)

// CreatePaymentSession opens a hosted payment page for the shopper's cart.
// Stock is not reserved here; the webhook settles the order once the
// provider confirms payment.
func CreatePaymentSession(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
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

		sess, err := svc.CreateSession(r.Context(), userID, middleware.EmailFromContext(r.Context()), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, sess)
	}
}
