package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/backstagehn/storefront-backend/api/responses"
	"github.com/backstagehn/storefront-backend/api/validators"
	productsvc "github.com/backstagehn/storefront-backend/internal/products"
	pkgerrors "github.com/backstagehn/storefront-backend/pkg/errors"
	"github.com/backstagehn/storefront-backend/pkg/logger"
)

type createProductRequest struct {
	Name        string          `json:"name" validate:"required,min=2,max=200"`
	Brand       string          `json:"brand" validate:"required,min=1,max=120"`
	Category    string          `json:"category" validate:"required,min=1,max=120"`
	Price       decimal.Decimal `json:"price" validate:"required"`
	Stock       int             `json:"stock" validate:"min=0"`
	Description string          `json:"description" validate:"max=5000"`
	ImageURL    string          `json:"image_url" validate:"omitempty,url"`
}

type updateProductRequest struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,min=2,max=200"`
	Brand       *string          `json:"brand,omitempty" validate:"omitempty,min=1,max=120"`
	Category    *string          `json:"category,omitempty" validate:"omitempty,min=1,max=120"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Stock       *int             `json:"stock,omitempty" validate:"omitempty,min=0"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=5000"`
	ImageURL    *string          `json:"image_url,omitempty" validate:"omitempty,url"`
}

type setStockRequest struct {
	Stock int `json:"stock" validate:"min=0"`
}

// AdminCreateProduct handles catalog additions from the dashboard.
func AdminCreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.CreateProduct(r.Context(), productsvc.CreateProductInput{
			Name:        strings.TrimSpace(payload.Name),
			Brand:       strings.TrimSpace(payload.Brand),
			Category:    strings.TrimSpace(payload.Category),
			Price:       payload.Price,
			Stock:       payload.Stock,
			Description: strings.TrimSpace(payload.Description),
			ImageURL:    strings.TrimSpace(payload.ImageURL),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

func AdminUpdateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := validators.PathID(chi.URLParam(r, "productID"), "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.UpdateProduct(r.Context(), id, productsvc.UpdateProductInput{
			Name:        trimmedPtr(payload.Name),
			Brand:       trimmedPtr(payload.Brand),
			Category:    trimmedPtr(payload.Category),
			Price:       payload.Price,
			Stock:       payload.Stock,
			Description: trimmedPtr(payload.Description),
			ImageURL:    trimmedPtr(payload.ImageURL),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

func AdminDeleteProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := validators.PathID(chi.URLParam(r, "productID"), "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteProduct(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// AdminSetStock replaces the stock level, used for restocks and corrections.
func AdminSetStock(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := validators.PathID(chi.URLParam(r, "productID"), "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.SetStock(r.Context(), id, payload.Stock)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}
