package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/investorsdeaal/referral-engine/internal/authz"
	"github.com/investorsdeaal/referral-engine/internal/cache"
	"github.com/investorsdeaal/referral-engine/internal/config"
	adminhandlers "github.com/investorsdeaal/referral-engine/internal/http/handlers/admin"
	publichandlers "github.com/investorsdeaal/referral-engine/internal/http/handlers/public"
	"github.com/investorsdeaal/referral-engine/internal/http/response"
	"github.com/investorsdeaal/referral-engine/internal/logger"
	"github.com/investorsdeaal/referral-engine/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "ce"
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		Message:       "error.login_too_many",
	}
	adminLoginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		Message:       "error.login_too_many",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 经纪人认证接口
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", publicHandler.AssociateRegister)
			auth.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("email")), publicHandler.AssociateLogin)
		}

		// 经纪人接口（需鉴权）
		associate := apiV1.Group("")
		associate.Use(AssociateJWTAuthMiddleware(cfg.AssociateJWT.SecretKey, c.AssociateRepo))
		{
			associate.GET("/me", publicHandler.GetMyProfile)
			associate.GET("/me/network/tree", publicHandler.GetMyNetworkTree)
			associate.GET("/me/network/stats", publicHandler.GetMyNetworkStats)
			associate.GET("/me/earnings", publicHandler.GetMyEarnings)
			associate.GET("/me/ledger", publicHandler.GetMyLedgerEntries)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIP), adminHandler.AdminLogin)

			// 需要鉴权的接口
			authorized := admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo), AdminRBACMiddleware(c.AuthzService))
			{
				authorized.PUT("/password", adminHandler.UpdateAdminPassword) // 修改密码

				// 经纪人与推荐网络管理
				authorized.GET("/associates", adminHandler.AdminListAssociates)
				authorized.GET("/associates/:id", adminHandler.AdminGetAssociate)
				authorized.GET("/associates/:id/network", adminHandler.AdminGetAssociateNetwork)
				authorized.POST("/associates/:id/activate", adminHandler.AdminActivateAssociate)
				authorized.POST("/associates/:id/deactivate", adminHandler.AdminDeactivateAssociate)
				authorized.POST("/referral-edges", adminHandler.AdminCreateReferralEdge)

				// 费率版本管理
				authorized.GET("/rate-table", adminHandler.AdminGetRateTable)
				authorized.GET("/rate-table/history", adminHandler.AdminGetRateTableHistory)
				authorized.POST("/rate-table/propose", adminHandler.AdminProposeRateTable)

				// 成交流水与佣金计算
				authorized.POST("/transactions", adminHandler.AdminRecordTransaction)
				authorized.GET("/transactions", adminHandler.AdminListTransactions)
				authorized.GET("/transactions/:id", adminHandler.AdminGetTransaction)

				// 佣金账本管理
				authorized.GET("/ledger", adminHandler.AdminListLedgerEntries)
				authorized.GET("/ledger/:id", adminHandler.AdminGetLedgerEntry)
				authorized.POST("/ledger/:id/approve", adminHandler.AdminApproveLedgerEntry)
				authorized.POST("/ledger/:id/pay", adminHandler.AdminPayLedgerEntry)
				authorized.POST("/ledger/:id/void", adminHandler.AdminVoidLedgerEntry)
				authorized.POST("/ledger/:id/reverse", adminHandler.AdminReverseLedgerEntry)
				authorized.GET("/commission-skips", adminHandler.AdminListCommissionSkips)

				// 权限管理
				authorized.GET("/authz/me", adminHandler.GetAuthzMe)
				authorized.GET("/authz/roles", adminHandler.ListAuthzRoles)
				authorized.GET("/authz/admins", adminHandler.ListAuthzAdmins)
				authorized.POST("/authz/admins", adminHandler.CreateAuthzAdmin)
				authorized.PUT("/authz/admins/:id", adminHandler.UpdateAuthzAdmin)
				authorized.DELETE("/authz/admins/:id", adminHandler.DeleteAuthzAdmin)
				authorized.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
					response.Success(ctx, buildAdminPermissionCatalog(r))
				})
				authorized.POST("/authz/roles", adminHandler.CreateAuthzRole)
				authorized.DELETE("/authz/roles/:role", adminHandler.DeleteAuthzRole)
				authorized.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
				authorized.POST("/authz/policies", adminHandler.GrantAuthzPolicy)
				authorized.DELETE("/authz/policies", adminHandler.RevokeAuthzPolicy)
				authorized.GET("/authz/admins/:id/roles", adminHandler.GetAuthzAdminRoles)
				authorized.PUT("/authz/admins/:id/roles", adminHandler.SetAuthzAdminRoles)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		if item.Path == "/api/v1/admin/login" {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	if segments[1] == "authz" {
		return "authz"
	}
	return segments[1]
}
