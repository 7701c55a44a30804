package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/investorsdeaal/referral-engine/internal/models"
)

const authStateCacheTTL = 10 * time.Minute

// AssociateAuthState 经纪人鉴权快照
// 仅用于服务端 Redis 缓存，避免每次请求回查数据库
type AssociateAuthState struct {
	AssociateID  uint   `json:"associate_id"`
	Status       string `json:"status"`
	TokenVersion uint64 `json:"token_version"`
	UpdatedAt    int64  `json:"updated_at"`
}

// AdminAuthState 管理员鉴权快照
type AdminAuthState struct {
	AdminID            uint   `json:"admin_id"`
	Username           string `json:"username"`
	TokenVersion       uint64 `json:"token_version"`
	TokenInvalidBefore int64  `json:"token_invalid_before"`
	IsSuper            bool   `json:"is_super"`
	UpdatedAt          int64  `json:"updated_at"`
}

func associateAuthStateKey(associateID uint) string {
	return fmt.Sprintf("auth:associate:%d", associateID)
}

func adminAuthStateKey(adminID uint) string {
	return fmt.Sprintf("auth:admin:%d", adminID)
}

// BuildAssociateAuthState 从经纪人模型构建鉴权快照
func BuildAssociateAuthState(associate *models.Associate) *AssociateAuthState {
	if associate == nil {
		return nil
	}
	return &AssociateAuthState{
		AssociateID:  associate.ID,
		Status:       associate.Status,
		TokenVersion: associate.TokenVersion,
		UpdatedAt:    time.Now().Unix(),
	}
}

// BuildAdminAuthState 从管理员模型构建鉴权快照
func BuildAdminAuthState(admin *models.Admin) *AdminAuthState {
	if admin == nil {
		return nil
	}
	state := &AdminAuthState{
		AdminID:      admin.ID,
		Username:     admin.Username,
		TokenVersion: admin.TokenVersion,
		IsSuper:      admin.IsSuper,
		UpdatedAt:    time.Now().Unix(),
	}
	if admin.TokenInvalidBefore != nil {
		state.TokenInvalidBefore = admin.TokenInvalidBefore.Unix()
	}
	return state
}

// GetAssociateAuthState 获取经纪人鉴权快照
func GetAssociateAuthState(ctx context.Context, associateID uint) (*AssociateAuthState, bool, error) {
	if associateID == 0 {
		return nil, false, nil
	}
	var state AssociateAuthState
	hit, err := GetJSON(ctx, associateAuthStateKey(associateID), &state)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &state, true, nil
}

// SetAssociateAuthState 写入经纪人鉴权快照
func SetAssociateAuthState(ctx context.Context, state *AssociateAuthState) error {
	if state == nil || state.AssociateID == 0 {
		return nil
	}
	return SetJSON(ctx, associateAuthStateKey(state.AssociateID), state, authStateCacheTTL)
}

// DelAssociateAuthState 删除经纪人鉴权快照
func DelAssociateAuthState(ctx context.Context, associateID uint) error {
	if associateID == 0 {
		return nil
	}
	return Del(ctx, associateAuthStateKey(associateID))
}

// GetAdminAuthState 获取管理员鉴权快照
func GetAdminAuthState(ctx context.Context, adminID uint) (*AdminAuthState, bool, error) {
	if adminID == 0 {
		return nil, false, nil
	}
	var state AdminAuthState
	hit, err := GetJSON(ctx, adminAuthStateKey(adminID), &state)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &state, true, nil
}

// SetAdminAuthState 写入管理员鉴权快照
func SetAdminAuthState(ctx context.Context, state *AdminAuthState) error {
	if state == nil || state.AdminID == 0 {
		return nil
	}
	return SetJSON(ctx, adminAuthStateKey(state.AdminID), state, authStateCacheTTL)
}

// DelAdminAuthState 删除管理员鉴权快照
func DelAdminAuthState(ctx context.Context, adminID uint) error {
	if adminID == 0 {
		return nil
	}
	return Del(ctx, adminAuthStateKey(adminID))
}
