package main

import (
	"time"

	"github.com/investorsdeaal/referral-engine/internal/config"
	"github.com/investorsdeaal/referral-engine/internal/constants"
	"github.com/investorsdeaal/referral-engine/internal/logger"
	"github.com/investorsdeaal/referral-engine/internal/models"

	"golang.org/x/crypto/bcrypt"
)

// 种子经纪人定义：sponsorEmail 为空表示网络顶点
type seedAssociate struct {
	Name         string
	Email        string
	Phone        string
	ReferralCode string
	Status       string
	SponsorEmail string
}

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 默认管理员
	if err := models.InitDefaultAdmin("admin", "admin123"); err != nil {
		stdLog.Printf("Failed to init default admin: %v", err)
	} else {
		stdLog.Printf("Ensured default admin: admin")
	}

	// 默认费率表版本（仅在没有任何生效版本时写入）
	var rateCount int64
	if err := models.DB.Model(&models.RateTableVersion{}).Where("superseded_at IS NULL").Count(&rateCount).Error; err != nil {
		stdLog.Fatalf("Failed to check rate table versions: %v", err)
	}
	if rateCount == 0 {
		level1, _ := models.NewPercentFromString(constants.DefaultRateLevel1Percent)
		level2, _ := models.NewPercentFromString(constants.DefaultRateLevel2Percent)
		level3, _ := models.NewPercentFromString(constants.DefaultRateLevel3Percent)
		level4, _ := models.NewPercentFromString(constants.DefaultRateLevel4Percent)
		level5, _ := models.NewPercentFromString(constants.DefaultRateLevel5Percent)
		version := models.RateTableVersion{
			Level1Percent:  level1,
			Level2Percent:  level2,
			Level3Percent:  level3,
			Level4Percent:  level4,
			Level5Percent:  level5,
			ReferralBonus:  constants.DefaultReferralBonus,
			MilestoneBonus: constants.DefaultMilestoneBonus,
			EffectiveFrom:  time.Now(),
		}
		if err := models.DB.Create(&version).Error; err != nil {
			stdLog.Printf("Failed to create default rate table version: %v", err)
		} else {
			stdLog.Printf("Created default rate table version: id=%d", version.ID)
		}
	} else {
		stdLog.Printf("Active rate table version already exists")
	}

	// 示例经纪人网络：五层推荐链 alice <- bob <- carol <- dave <- erin
	associates := []seedAssociate{
		{
			Name:         "Alice Zhang",
			Email:        "alice@example.com",
			Phone:        "13800000001",
			ReferralCode: "ALICE8Q1",
			Status:       constants.AssociateStatusActive,
		},
		{
			Name:         "Bob Li",
			Email:        "bob@example.com",
			Phone:        "13800000002",
			ReferralCode: "BOB4K2M7",
			Status:       constants.AssociateStatusActive,
			SponsorEmail: "alice@example.com",
		},
		{
			Name:         "Carol Wang",
			Email:        "carol@example.com",
			Phone:        "13800000003",
			ReferralCode: "CAROL9T3",
			Status:       constants.AssociateStatusActive,
			SponsorEmail: "bob@example.com",
		},
		{
			Name:         "Dave Chen",
			Email:        "dave@example.com",
			Phone:        "13800000004",
			ReferralCode: "DAVE5W8N",
			Status:       constants.AssociateStatusInactive,
			SponsorEmail: "carol@example.com",
		},
		{
			Name:         "Erin Liu",
			Email:        "erin@example.com",
			Phone:        "13800000005",
			ReferralCode: "ERIN2J6P",
			Status:       constants.AssociateStatusActive,
			SponsorEmail: "dave@example.com",
		},
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte("seed123456"), bcrypt.DefaultCost)
	if err != nil {
		stdLog.Fatalf("Failed to hash seed password: %v", err)
	}

	now := time.Now()
	idByEmail := map[string]uint{}
	for _, item := range associates {
		var existing models.Associate
		if err := models.DB.Where("email = ?", item.Email).First(&existing).Error; err != nil {
			// 不存在则创建
			associate := models.Associate{
				Name:         item.Name,
				Email:        item.Email,
				Phone:        item.Phone,
				ReferralCode: item.ReferralCode,
				Status:       item.Status,
				PasswordHash: string(passwordHash),
				JoinedAt:     now,
			}
			if item.Status == constants.AssociateStatusActive {
				activatedAt := now
				associate.ActivatedAt = &activatedAt
			}
			if err := models.DB.Create(&associate).Error; err != nil {
				stdLog.Printf("Failed to create associate %s: %v", item.Email, err)
				continue
			}
			stdLog.Printf("Created associate: %s (%s)", item.Email, item.ReferralCode)
			idByEmail[item.Email] = associate.ID
		} else {
			stdLog.Printf("Associate already exists: %s", item.Email)
			idByEmail[item.Email] = existing.ID
		}
	}

	// 推荐关系边（child -> sponsor，每个经纪人至多一个推荐人）
	for _, item := range associates {
		if item.SponsorEmail == "" {
			continue
		}
		childID := idByEmail[item.Email]
		sponsorID := idByEmail[item.SponsorEmail]
		if childID == 0 || sponsorID == 0 {
			stdLog.Printf("Skip referral edge for %s: associate missing", item.Email)
			continue
		}
		var existing models.ReferralEdge
		if err := models.DB.Where("child_id = ?", childID).First(&existing).Error; err != nil {
			edge := models.ReferralEdge{ChildID: childID, SponsorID: sponsorID}
			if err := models.DB.Create(&edge).Error; err != nil {
				stdLog.Printf("Failed to create referral edge %s -> %s: %v", item.Email, item.SponsorEmail, err)
			} else {
				stdLog.Printf("Created referral edge: %s -> %s", item.Email, item.SponsorEmail)
			}
		} else {
			stdLog.Printf("Referral edge already exists: %s", item.Email)
		}
	}

	stdLog.Printf("Seed completed")
}
