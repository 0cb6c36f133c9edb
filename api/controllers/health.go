package controllers

import (
	"context"
	"net/http"

	"github.com/backstagehn/storefront-backend/api/responses"
	"github.com/backstagehn/storefront-backend/pkg/config"
	pkgerrors "github.com/backstagehn/storefront-backend/pkg/errors"
	"github.com/backstagehn/storefront-backend/pkg/logger"
)

type dependencyPinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Backstage-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness only when the database and cache respond.
func HealthReady(cfg *config.Config, dbPinger, cachePinger dependencyPinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Backstage-Env", cfg.App.Env)

		if dbPinger != nil {
			if err := dbPinger.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unavailable"))
				return
			}
		}
		if cachePinger != nil {
			if err := cachePinger.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cache unavailable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
