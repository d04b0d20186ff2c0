package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/salesops/leadhub/internal/config"
	"github.com/salesops/leadhub/internal/domain/lead"
	"github.com/salesops/leadhub/internal/http/middlewares"
	"github.com/salesops/leadhub/internal/observability"
	"github.com/salesops/leadhub/internal/policy"
	"github.com/salesops/leadhub/internal/tabular"
)

const maxUploadBytes = 8 << 20 // 8 MiB

type LeadsStore interface {
	Create(ctx context.Context, l lead.Lead) (lead.Lead, error)
	GetByID(ctx context.Context, id string) (lead.Lead, error)
	List(ctx context.Context, filter lead.ListFilter) ([]lead.Lead, error)
	Update(ctx context.Context, id string, req lead.UpdateLeadRequest) (lead.Lead, error)
	UpdateStatus(ctx context.Context, id string, status lead.Status, notes *string) (lead.Lead, error)
	Delete(ctx context.Context, id string) error
}

type LeadsHandler struct {
	repo    LeadsStore
	metrics *observability.Prom
}

func NewLeadsHandler(repo LeadsStore, metrics *observability.Prom) *LeadsHandler {
	return &LeadsHandler{repo: repo, metrics: metrics}
}

func (h *LeadsHandler) CreateLead(ctx *gin.Context) {
	actor, ok := middlewares.ActorFrom(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	if policy.Decide(actor.Role, policy.ResourceLead, policy.ActionCreate) != policy.Allow {
		RespondForbidden(ctx, "Not authorized")
		return
	}

	var req lead.CreateLeadRequest

	if !BindJSON(ctx, &req) {
		return
	}

	l := lead.NewFromCreateRequest(req, actor.ID)

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	created, err := h.repo.Create(cctx, l)

	if err != nil {
		RespondInternal(ctx, "Could not create lead")
		return
	}

	ctx.JSON(http.StatusCreated, created)
}

func (h *LeadsHandler) ListLeads(ctx *gin.Context) {
	actor, ok := middlewares.ActorFrom(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	filter, ok := h.bindListFilter(ctx)

	if !ok {
		return
	}

	filter.Limit, filter.Offset = pagination(ctx)

	// the role scope always wins over the caller's assignee filter
	scoped, err := policy.LeadScope(actor, policy.ActionList, filter)

	if err != nil {
		RespondForbidden(ctx, "Not authorized")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	leads, err := h.repo.List(cctx, scoped)

	if err != nil {
		RespondInternal(ctx, "Could not list leads")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": leads,
		"count": len(leads),
	})
}

func (h *LeadsHandler) GetLead(ctx *gin.Context) {
	actor, ok := middlewares.ActorFrom(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	// existence before authorization: a missing id is not-found even
	// for an actor who could never see it
	l, err := h.repo.GetByID(cctx, ctx.Param("id"))

	if err != nil {
		if errors.Is(err, lead.ErrNotFound) {
			RespondNotFound(ctx, "Lead not found")
			return
		}

		RespondInternal(ctx, "Could not fetch lead")
		return
	}

	if err := policy.CheckLead(actor, policy.ActionRead, l); err != nil {
		RespondForbidden(ctx, "Not authorized")
		return
	}

	ctx.JSON(http.StatusOK, l)
}

func (h *LeadsHandler) UpdateLead(ctx *gin.Context) {
	h.mutateLead(ctx, policy.ActionUpdate, func(cctx context.Context, id string) (lead.Lead, error) {
		var req lead.UpdateLeadRequest

		if !BindJSON(ctx, &req) {
			return lead.Lead{}, errHandled
		}

		return h.repo.Update(cctx, id, req)
	})
}

func (h *LeadsHandler) UpdateLeadStatus(ctx *gin.Context) {
	h.mutateLead(ctx, policy.ActionUpdateStatus, func(cctx context.Context, id string) (lead.Lead, error) {
		var req lead.StatusUpdateRequest

		if !BindJSON(ctx, &req) {
			return lead.Lead{}, errHandled
		}

		return h.repo.UpdateStatus(cctx, id, req.Status, req.Notes)
	})
}

// errHandled marks a mutation the callback already responded to.
var errHandled = errors.New("response already written")

func (h *LeadsHandler) mutateLead(ctx *gin.Context, act policy.Action, fn func(context.Context, string) (lead.Lead, error)) {
	actor, ok := middlewares.ActorFrom(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	existing, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, lead.ErrNotFound) {
			RespondNotFound(ctx, "Lead not found")
			return
		}

		RespondInternal(ctx, "Could not fetch lead")
		return
	}

	if err := policy.CheckLead(actor, act, existing); err != nil {
		RespondForbidden(ctx, "Not authorized")
		return
	}

	updated, err := fn(cctx, id)

	if err != nil {
		if errors.Is(err, errHandled) {
			return
		}

		if errors.Is(err, lead.ErrNotFound) {
			// deleted between the fetch and the update
			RespondNotFound(ctx, "Lead not found")
			return
		}

		RespondInternal(ctx, "Could not update lead")
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

func (h *LeadsHandler) DeleteLead(ctx *gin.Context) {
	actor, ok := middlewares.ActorFrom(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	existing, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, lead.ErrNotFound) {
			RespondNotFound(ctx, "Lead not found")
			return
		}

		RespondInternal(ctx, "Could not fetch lead")
		return
	}

	if err := policy.CheckLead(actor, policy.ActionDelete, existing); err != nil {
		RespondForbidden(ctx, "Not authorized")
		return
	}

	if err := h.repo.Delete(cctx, id); err != nil {
		if errors.Is(err, lead.ErrNotFound) {
			RespondNotFound(ctx, "Lead not found")
			return
		}

		RespondInternal(ctx, "Could not delete lead")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Lead deleted successfully"})
}

// UploadLeads imports a CSV/XLSX batch. Bad rows are skipped and
// reported rather than aborting the batch.
func (h *LeadsHandler) UploadLeads(ctx *gin.Context) {
	actor, ok := middlewares.ActorFrom(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	if policy.Decide(actor.Role, policy.ResourceLead, policy.ActionCreate) != policy.Allow {
		RespondForbidden(ctx, "Not authorized")
		return
	}

	fileHeader, err := ctx.FormFile("file")

	if err != nil {
		RespondBadRequest(ctx, "Missing upload file", nil)
		return
	}

	if fileHeader.Size > maxUploadBytes {
		RespondBadRequest(ctx, "Upload file too large", nil)
		return
	}

	file, err := fileHeader.Open()

	if err != nil {
		RespondInternal(ctx, "Could not read upload")
		return
	}

	defer file.Close()

	data, err := io.ReadAll(file)

	if err != nil {
		RespondInternal(ctx, "Could not read upload")
		return
	}

	rows, rowErrs, err := tabular.ParseLeads(fileHeader.Filename, data)

	if err != nil {
		switch {
		case errors.Is(err, tabular.ErrUnsupportedFormat):
			RespondBadRequest(ctx, "File must be CSV or Excel format", nil)
		case errors.Is(err, tabular.ErrMissingColumns):
			RespondBadRequest(ctx, err.Error(), nil)
		default:
			RespondError(ctx, http.StatusInternalServerError, "internal_error",
				fmt.Sprintf("Error processing file: %v", err), nil)
		}
		return
	}

	cctx, cancel := config.WithTimeout(30 * time.Second)
	defer cancel()

	inserted := 0

	for i, req := range rows {
		l := lead.NewFromCreateRequest(req, actor.ID)

		if _, err := h.repo.Create(cctx, l); err != nil {
			rowErrs = append(rowErrs, tabular.RowError{Row: i + 1, Reason: err.Error()})
			continue
		}

		inserted++
	}

	if h.metrics != nil {
		h.metrics.ImportRows.WithLabelValues("inserted").Add(float64(inserted))
		h.metrics.ImportRows.WithLabelValues("skipped").Add(float64(len(rowErrs)))
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Successfully uploaded %d leads", inserted),
		"count":   inserted,
		"errors":  rowErrs,
	})
}

func (h *LeadsHandler) ExportLeads(ctx *gin.Context) {
	actor, ok := middlewares.ActorFrom(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	filter, ok := h.bindListFilter(ctx)

	if !ok {
		return
	}

	scoped, err := policy.LeadScope(actor, policy.ActionExport, filter)

	if err != nil {
		RespondForbidden(ctx, "Not authorized")
		return
	}

	cctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	// export reads the full visible set, no pagination
	leads, err := h.repo.List(cctx, scoped)

	if err != nil {
		RespondInternal(ctx, "Could not export leads")
		return
	}

	payload, err := tabular.ExportXLSX(leads)

	if err != nil {
		RespondInternal(ctx, "Could not build export file")
		return
	}

	ctx.Header("Content-Disposition", `attachment; filename=leads_export.xlsx`)
	ctx.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", payload)
}

func (h *LeadsHandler) bindListFilter(ctx *gin.Context) (lead.ListFilter, bool) {
	var filter lead.ListFilter

	if raw := strQuery(ctx, "status"); raw != nil {
		status := lead.Status(*raw)

		if !status.Valid() {
			RespondBadRequest(ctx, "Invalid status filter", nil)
			return filter, false
		}

		filter.Status = &status
	}

	if raw := strQuery(ctx, "source"); raw != nil {
		source := lead.Source(*raw)

		if !source.Valid() {
			RespondBadRequest(ctx, "Invalid source filter", nil)
			return filter, false
		}

		filter.Source = &source
	}

	filter.DistrictID = strQuery(ctx, "district_id")
	filter.AssignedTo = strQuery(ctx, "assigned_to")

	return filter, true
}
