package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"scoreboard/internal/apperr"
	"scoreboard/internal/model"
)

// @Summary Create a tenant
// @Tags Admin
// @Security ApiKeyAuth
// @Param name formData string true "Tenant name"
// @Param display_name formData string true "Display name"
// @Produce json
// @Router /api/admin/tenants/add [post]
func (a *API) AddTenant(w http.ResponseWriter, r *http.Request) {
	name := r.PostFormValue("name")
	displayName := r.PostFormValue("display_name")

	tenant, err := a.TenantMgr.CreateTenant(r.Context(), name, displayName)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, map[string]any{"tenant": model.TenantBilling{
		ID:          tenant.ID,
		Name:        tenant.Name,
		DisplayName: tenant.DisplayName,
	}})
}

// @Summary Billing totals of every tenant
// @Tags Admin
// @Security ApiKeyAuth
// @Param before query int false "Only tenants with a smaller id"
// @Produce json
// @Router /api/admin/tenants/billing [get]
func (a *API) TenantsBilling(w http.ResponseWriter, r *http.Request) {
	var before *int64
	if v := r.URL.Query().Get("before"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			a.writeError(w, r, apperr.Validation("before", "not an integer: %q", v))
			return
		}
		before = &n
	}

	tenants, err := a.Fanout.TenantsBilling(r.Context(), before)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, map[string]any{"tenants": tenants})
}

type ConcurrencyConfig struct {
	Workers int `json:"workers"`
}

// @Summary Update a tenant's recompute worker pool concurrency
// @Tags Admin
// @Security ApiKeyAuth
// @Param tenant_id path int true "Tenant ID"
// @Param body body ConcurrencyConfig true "Concurrency config"
// @Success 200
// @Router /api/admin/tenants/{tenant_id}/config/concurrency [put]
func (a *API) UpdateConcurrency(w http.ResponseWriter, r *http.Request) {
	tenantID, err := strconv.ParseInt(chi.URLParam(r, "tenant_id"), 10, 64)
	if err != nil {
		a.writeError(w, r, apperr.Validation("tenant_id", "not an integer: %q", chi.URLParam(r, "tenant_id")))
		return
	}

	var body ConcurrencyConfig
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.writeError(w, r, apperr.Validation("body", "bad request body: %v", err))
		return
	}

	if err := a.TenantMgr.SetWorkerCount(tenantID, body.Workers); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, body)
}
