package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 100
	maxPageSize     = 500
)

func intQuery(ctx *gin.Context, name string, fallback int) int {
	raw := ctx.Query(name)

	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)

	if err != nil || v < 0 {
		return fallback
	}

	return v
}

func pagination(ctx *gin.Context) (limit, offset int) {
	limit = intQuery(ctx, "limit", defaultPageSize)

	if limit == 0 || limit > maxPageSize {
		limit = defaultPageSize
	}

	offset = intQuery(ctx, "skip", 0)

	return limit, offset
}

func strQuery(ctx *gin.Context, name string) *string {
	if v := ctx.Query(name); v != "" {
		return &v
	}
	return nil
}
