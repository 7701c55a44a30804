package public

import (
	"errors"
	"strconv"

	"github.com/investorsdeaal/referral-engine/internal/http/response"
	"github.com/investorsdeaal/referral-engine/internal/service"

	"github.com/gin-gonic/gin"
)

// GetMyNetworkTree 获取当前经纪人的推荐网络树
func (h *Handler) GetMyNetworkTree(c *gin.Context) {
	id, ok := getAssociateID(c)
	if !ok {
		return
	}

	depth, _ := strconv.Atoi(c.DefaultQuery("depth", "0"))
	tree, err := h.ReferralService.NetworkTree(id, depth)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "error.associate_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.network_fetch_failed", err)
		return
	}
	response.Success(c, tree)
}

// GetMyNetworkStats 获取当前经纪人的推荐网络统计
func (h *Handler) GetMyNetworkStats(c *gin.Context) {
	id, ok := getAssociateID(c)
	if !ok {
		return
	}

	stats, err := h.ReferralService.NetworkStats(id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "error.associate_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.network_fetch_failed", err)
		return
	}
	response.Success(c, stats)
}
