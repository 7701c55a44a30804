package public

import (
	"errors"

	"github.com/investorsdeaal/referral-engine/internal/http/response"
	"github.com/investorsdeaal/referral-engine/internal/service"

	"github.com/gin-gonic/gin"
)

// AssociateRegisterRequest 经纪人注册请求
type AssociateRegisterRequest struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required"`
	Phone       string `json:"phone"`
	Password    string `json:"password" binding:"required"`
	SponsorCode string `json:"sponsor_code"`
}

// AssociateRegister 经纪人注册（可携带推荐码挂载推荐关系）
func (h *Handler) AssociateRegister(c *gin.Context) {
	var req AssociateRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	associate, err := h.ReferralService.Register(service.RegisterAssociateInput{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Password:    req.Password,
		SponsorCode: req.SponsorCode,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			respondError(c, response.CodeBadRequest, "error.register_invalid", nil)
		case errors.Is(err, service.ErrReferralCodeInvalid):
			respondError(c, response.CodeBadRequest, "error.sponsor_code_invalid", nil)
		case errors.Is(err, service.ErrDuplicateSponsor):
			respondError(c, response.CodeBadRequest, "error.sponsor_exists", nil)
		default:
			respondError(c, response.CodeInternal, "error.register_failed", err)
		}
		return
	}

	response.Success(c, gin.H{
		"id":            associate.ID,
		"name":          associate.Name,
		"email":         associate.Email,
		"referral_code": associate.ReferralCode,
		"status":        associate.Status,
	})
}

// AssociateLoginRequest 经纪人登录请求
type AssociateLoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AssociateLoginResponse 经纪人登录响应
type AssociateLoginResponse struct {
	Token     string                 `json:"token"`
	Associate map[string]interface{} `json:"associate"`
	ExpiresAt string                 `json:"expires_at"`
}

// AssociateLogin 经纪人登录
func (h *Handler) AssociateLogin(c *gin.Context) {
	var req AssociateLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	associate, token, expiresAt, err := h.AuthService.AssociateLogin(req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			respondError(c, response.CodeUnauthorized, "error.login_invalid", nil)
		case errors.Is(err, service.ErrAssociateInactive):
			respondError(c, response.CodeForbidden, "error.associate_inactive", nil)
		default:
			respondError(c, response.CodeInternal, "error.login_failed", err)
		}
		return
	}

	response.Success(c, AssociateLoginResponse{
		Token: token,
		Associate: map[string]interface{}{
			"id":            associate.ID,
			"name":          associate.Name,
			"email":         associate.Email,
			"referral_code": associate.ReferralCode,
			"status":        associate.Status,
		},
		ExpiresAt: expiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// GetMyProfile 获取当前经纪人信息
func (h *Handler) GetMyProfile(c *gin.Context) {
	id, ok := getAssociateID(c)
	if !ok {
		return
	}

	associate, err := h.AssociateRepo.GetByID(id)
	if err != nil {
		respondError(c, response.CodeInternal, "error.associate_fetch_failed", err)
		return
	}
	if associate == nil {
		respondError(c, response.CodeNotFound, "error.associate_not_found", nil)
		return
	}

	view := gin.H{
		"id":            associate.ID,
		"name":          associate.Name,
		"email":         associate.Email,
		"phone":         associate.Phone,
		"referral_code": associate.ReferralCode,
		"status":        associate.Status,
		"joined_at":     associate.JoinedAt,
		"activated_at":  associate.ActivatedAt,
	}
	edge, err := h.AssociateRepo.GetEdgeByChildID(id)
	if err != nil {
		respondError(c, response.CodeInternal, "error.associate_fetch_failed", err)
		return
	}
	if edge != nil {
		view["sponsor_id"] = edge.SponsorID
	}
	response.Success(c, view)
}
