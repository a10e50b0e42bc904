package service

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"ris-backend/internal/domain"
	"ris-backend/internal/repo"
)

// 每个测试独立的内存库，cache=shared 保证同测试内多连接看同一份数据
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Facility{}))
	return db
}

type testEnv struct {
	users      *UserService
	facilities *FacilityService
	resolver   *Resolver
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	db := newTestDB(t)
	log := zap.NewNop()
	ur := repo.NewUserRepo(db)
	fr := repo.NewFacilityRepo(db)
	res := NewResolver(ur, fr)
	return testEnv{
		users:      NewUserService(ur, log),
		facilities: NewFacilityService(fr, ur, res, nil, log),
		resolver:   res,
	}
}

func validUserInput() CreateUserInput {
	return CreateUserInput{
		Username:     "asha.tech",
		Email:        "Asha@Example.com",
		MobileNumber: "9876543210",
		FullName:     "Asha Kumar",
		Gender:       string(domain.GenderFemale),
		Password:     "Str0ng!Pass",
		Role:         string(domain.RoleTechnician),
		RoleFields: map[string]any{
			"employee_id":   "EMP-100",
			"department":    []any{"CT"},
			"qualification": "BSc Radiography",
		},
	}
}

func validFacilityInput() CreateFacilityInput {
	return CreateFacilityInput{
		FacilityName: "Apollo Hospital",
		FacilityCode: "AP-HOS-001",
		FacilityType: string(domain.FacilityHospital),
		City:         "Chennai",
	}
}
