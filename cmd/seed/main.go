package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"ris-backend/internal/core/config"
	"ris-backend/internal/core/database"
	"ris-backend/internal/core/logger"
	"ris-backend/internal/domain"
	"ris-backend/internal/repo"
	"ris-backend/internal/service"
)

// 初始数据：两家示例机构 + 一个放射科医生账号。
// 重复执行是安全的：已存在的记录直接跳过。

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.New(cfg.Log.Level, cfg.Log.JSON)
	defer cleanup()

	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	})
	if err != nil {
		log.Fatal("db open", zap.Error(err))
	}
	if err := db.AutoMigrate(&domain.User{}, &domain.Facility{}); err != nil {
		log.Fatal("automigrate failed", zap.Error(err))
	}

	userRepo := repo.NewUserRepo(db)
	facilityRepo := repo.NewFacilityRepo(db)
	resolver := service.NewResolver(userRepo, facilityRepo)
	users := service.NewUserService(userRepo, log)
	facilities := service.NewFacilityService(facilityRepo, userRepo, resolver, nil, log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	seedFacilities := []service.CreateFacilityInput{
		{
			FacilityName:        "Apollo Hospital",
			FacilityCode:        "AP-HOS-001",
			FacilityType:        string(domain.FacilityHospital),
			FacilityDescription: "Multi-speciality hospital with a full radiology wing",
			AddressLine1:        "21 Greams Lane",
			City:                "Chennai",
			State:               "Tamil Nadu",
			Country:             "India",
			Pincode:             "600006",
			ContactNumber:       "9840012345",
			EmailID:             "radiology@apollo.example.com",
			PacsAeTitle:         "APOLLO_PACS",
			PacsIPAddress:       "10.20.0.11",
			PacsPort:            11112,
			IntegrationStatus:   string(domain.IntegrationConnected),
			Status:              string(domain.FacilityActive),
		},
		{
			FacilityName:      "City Diagnostic Center",
			FacilityCode:      "CDC-002",
			FacilityType:      string(domain.FacilityDiagnosticCenter),
			AddressLine1:      "14 MG Road",
			City:              "Bengaluru",
			State:             "Karnataka",
			Country:           "India",
			Pincode:           "560001",
			ContactNumber:     "9900054321",
			EmailID:           "contact@citydiagnostic.example.com",
			IntegrationStatus: string(domain.IntegrationPending),
			Status:            string(domain.FacilityActive),
		},
	}

	var facilityID string
	for _, in := range seedFacilities {
		f, err := facilities.Create(ctx, in, "")
		if err != nil {
			var dup *domain.DuplicateFacilityError
			if errors.As(err, &dup) {
				log.Info("facility exists, skip", zap.String("name", in.FacilityName))
				continue
			}
			log.Fatal("seed facility", zap.String("name", in.FacilityName), zap.Error(err))
		}
		log.Info("facility created", zap.String("name", f.FacilityName), zap.String("id", f.ID.String()))
		if facilityID == "" {
			facilityID = f.ID.String()
		}
	}

	u, err := users.Create(ctx, service.CreateUserInput{
		Username:     "dr.meera",
		Email:        "meera.nair@apollo.example.com",
		MobileNumber: "9840098400",
		FullName:     "Dr. Meera Nair",
		Gender:       string(domain.GenderFemale),
		Password:     "Radiology@2024",
		FacilityID:   facilityID,
		Role:         string(domain.RoleRadiologist),
		RoleFields: map[string]any{
			"doctor_id":           "RAD-1001",
			"registration_number": "TNMC-55821",
			"specialty":           "Neuroradiology",
		},
	})
	if err != nil {
		var dup *domain.DuplicateIdentityError
		if errors.As(err, &dup) {
			log.Info("user exists, skip", zap.String("username", "dr.meera"))
		} else {
			log.Fatal("seed user", zap.Error(err))
		}
	} else {
		log.Info("user created", zap.String("username", u.Username), zap.String("id", u.ID))
	}

	log.Info("seed done")
}
