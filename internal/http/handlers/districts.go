package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/salesops/leadhub/internal/cache"
	"github.com/salesops/leadhub/internal/config"
	"github.com/salesops/leadhub/internal/domain/district"
	"github.com/salesops/leadhub/internal/http/middlewares"
	"github.com/salesops/leadhub/internal/policy"
)

const districtListCacheKey = "districts:list"

type DistrictsStore interface {
	Create(ctx context.Context, req district.CreateDistrictRequest) (district.District, error)
	List(ctx context.Context) ([]district.District, error)
	GetByID(ctx context.Context, id string) (district.District, error)
	Delete(ctx context.Context, id string) error
}

type DistrictsHandler struct {
	repo  DistrictsStore
	cache *cache.Cache
}

func NewDistrictsHandler(repo DistrictsStore, listCache *cache.Cache) *DistrictsHandler {
	return &DistrictsHandler{repo: repo, cache: listCache}
}

func (h *DistrictsHandler) CreateDistrict(ctx *gin.Context) {
	actor, ok := middlewares.ActorFrom(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	if err := policy.CheckDistrict(actor, policy.ActionCreate); err != nil {
		RespondForbidden(ctx, "Not authorized")
		return
	}

	var req district.CreateDistrictRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	d, err := h.repo.Create(cctx, req)

	if err != nil {
		RespondInternal(ctx, "Could not create district")
		return
	}

	h.cache.Delete(districtListCacheKey)

	ctx.JSON(http.StatusCreated, d)
}

func (h *DistrictsHandler) ListDistricts(ctx *gin.Context) {
	actor, ok := middlewares.ActorFrom(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	if err := policy.CheckDistrict(actor, policy.ActionList); err != nil {
		RespondForbidden(ctx, "Not authorized")
		return
	}

	if cached, ok := h.cache.Get(districtListCacheKey); ok {
		if districts, ok := cached.([]district.District); ok {
			ctx.JSON(http.StatusOK, gin.H{
				"items": districts,
				"count": len(districts),
			})
			return
		}
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	districts, err := h.repo.List(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list districts")
		return
	}

	h.cache.Set(districtListCacheKey, districts)

	ctx.JSON(http.StatusOK, gin.H{
		"items": districts,
		"count": len(districts),
	})
}

func (h *DistrictsHandler) GetDistrict(ctx *gin.Context) {
	actor, ok := middlewares.ActorFrom(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	if err := policy.CheckDistrict(actor, policy.ActionRead); err != nil {
		RespondForbidden(ctx, "Not authorized")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	d, err := h.repo.GetByID(cctx, ctx.Param("id"))

	if err != nil {
		if errors.Is(err, district.ErrNotFound) {
			RespondNotFound(ctx, "District not found")
			return
		}

		RespondInternal(ctx, "Could not fetch district")
		return
	}

	ctx.JSON(http.StatusOK, d)
}

func (h *DistrictsHandler) DeleteDistrict(ctx *gin.Context) {
	actor, ok := middlewares.ActorFrom(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	if err := policy.CheckDistrict(actor, policy.ActionDelete); err != nil {
		RespondForbidden(ctx, "Not authorized")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	err := h.repo.Delete(cctx, ctx.Param("id"))

	if err != nil {
		if errors.Is(err, district.ErrNotFound) {
			RespondNotFound(ctx, "District not found")
			return
		}

		RespondInternal(ctx, "Could not delete district")
		return
	}

	h.cache.Delete(districtListCacheKey)

	ctx.JSON(http.StatusOK, gin.H{"message": "District deleted successfully"})
}
