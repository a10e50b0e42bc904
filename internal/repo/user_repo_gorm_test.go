package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"ris-backend/internal/domain"
	"ris-backend/pkg/utils"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Facility{}))
	return db
}

func testUser(username, email, mobile string) *domain.User {
	return &domain.User{
		ID:           utils.NewID(),
		Username:     username,
		Email:        email,
		MobileNumber: mobile,
		FullName:     "Test User",
		PasswordHash: "x",
		Status:       domain.UserActive,
		Role:         domain.RoleFrontDesk,
		RoleDetails:  domain.RoleDetails{"assigned_counter": "C1", "shift_timing": "Morning"},
	}
}

// 服务层有预检，这里测的是索引兜底：并发窗口里漏网的写必须被映射回同一种冲突错误
func TestCreateDuplicateMappedFromIndex(t *testing.T) {
	r := NewUserRepo(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, testUser("a", "a@example.com", "9000000001")))

	err := r.Create(ctx, testUser("b", "a@example.com", "9000000002"))
	var dup *domain.DuplicateIdentityError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, domain.FieldEmail, dup.Field)

	err = r.Create(ctx, testUser("b", "b@example.com", "9000000001"))
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, domain.FieldMobileNumber, dup.Field)

	err = r.Create(ctx, testUser("a", "b@example.com", "9000000002"))
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, domain.FieldUsername, dup.Field)
}

// 部分唯一索引只覆盖未删除的行
func TestPartialIndexAllowsReuseAfterSoftDelete(t *testing.T) {
	r := NewUserRepo(newTestDB(t))
	ctx := context.Background()

	u := testUser("a", "a@example.com", "9000000001")
	require.NoError(t, r.Create(ctx, u))
	u.IsDeleted = true
	require.NoError(t, r.Update(ctx, u))

	require.NoError(t, r.Create(ctx, testUser("a", "a@example.com", "9000000001")))
}

func TestFindByIDRespectsSoftDelete(t *testing.T) {
	r := NewUserRepo(newTestDB(t))
	ctx := context.Background()

	u := testUser("a", "a@example.com", "9000000001")
	require.NoError(t, r.Create(ctx, u))
	u.IsDeleted = true
	require.NoError(t, r.Update(ctx, u))

	got, err := r.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "软删后常规读不可见")

	got, err = r.FindByIDAny(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsDeleted)
}

func TestFindIdentityOwnerExcludesSelf(t *testing.T) {
	r := NewUserRepo(newTestDB(t))
	ctx := context.Background()

	u := testUser("a", "a@example.com", "9000000001")
	require.NoError(t, r.Create(ctx, u))

	owner, err := r.FindIdentityOwner(ctx, domain.FieldEmail, "a@example.com", "")
	require.NoError(t, err)
	require.NotNil(t, owner)
	assert.Equal(t, u.ID, owner.ID)

	owner, err = r.FindIdentityOwner(ctx, domain.FieldEmail, "a@example.com", u.ID)
	require.NoError(t, err)
	assert.Nil(t, owner, "排除自身后没有别的占用者")

	_, err = r.FindIdentityOwner(ctx, domain.IdentityField("bogus"), "x", "")
	var se *domain.StorageError
	require.ErrorAs(t, err, &se)
}

func TestRoleDetailsPersistRoundTrip(t *testing.T) {
	r := NewUserRepo(newTestDB(t))
	ctx := context.Background()

	u := testUser("a", "a@example.com", "9000000001")
	require.NoError(t, r.Create(ctx, u))

	got, err := r.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "C1", got.RoleDetails["assigned_counter"])
}
