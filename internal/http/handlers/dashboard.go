package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/salesops/leadhub/internal/config"
	"github.com/salesops/leadhub/internal/dashboard"
	"github.com/salesops/leadhub/internal/domain/lead"
	"github.com/salesops/leadhub/internal/http/middlewares"
	"github.com/salesops/leadhub/internal/policy"
)

type DashboardHandler struct {
	leads LeadsStore
}

func NewDashboardHandler(leads LeadsStore) *DashboardHandler {
	return &DashboardHandler{leads: leads}
}

// Stats recomputes the dashboard from the actor's visible lead set on
// every call. Correctness over latency: nothing is cached.
func (h *DashboardHandler) Stats(ctx *gin.Context) {
	actor, ok := middlewares.ActorFrom(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	scoped, err := policy.LeadScope(actor, policy.ActionList, lead.ListFilter{})

	if err != nil {
		RespondForbidden(ctx, "Not authorized")
		return
	}

	cctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	leads, err := h.leads.List(cctx, scoped)

	if err != nil {
		RespondInternal(ctx, "Could not compute dashboard stats")
		return
	}

	ctx.JSON(http.StatusOK, dashboard.Compute(leads))
}
