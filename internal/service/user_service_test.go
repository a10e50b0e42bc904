package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ris-backend/internal/domain"
)

func TestCreateUserNormalizesAndActivates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u, err := env.users.Create(ctx, validUserInput())
	require.NoError(t, err)

	assert.Len(t, u.ID, 32)
	assert.Equal(t, "asha@example.com", u.Email, "email 落库前统一小写")
	assert.Equal(t, domain.UserActive, u.Status, "创建即激活，不看入参")
	assert.NotEqual(t, "Str0ng!Pass", u.PasswordHash)
	assert.Equal(t, "EMP-100", u.RoleDetails["employee_id"])
}

func TestCreateUserInvalidInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*CreateUserInput)
		field  string
	}{
		{"bad email", func(in *CreateUserInput) { in.Email = "not-an-email" }, "email"},
		{"short mobile", func(in *CreateUserInput) { in.MobileNumber = "12345" }, "mobile_number"},
		{"weak password", func(in *CreateUserInput) { in.Password = "alllowercase" }, "password"},
		{"bad gender", func(in *CreateUserInput) { in.Gender = "Unknown" }, "gender"},
		{"bad role", func(in *CreateUserInput) { in.Role = "Janitor" }, "role"},
		{"missing full name", func(in *CreateUserInput) { in.FullName = "  " }, "full_name"},
	}
	for _, tc := range cases {
		in := validUserInput()
		tc.mutate(&in)
		_, err := env.users.Create(ctx, in)
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve, tc.name)
		assert.Equal(t, tc.field, ve.Field, tc.name)
	}
}

func TestCreateUserMissingRoleField(t *testing.T) {
	env := newTestEnv(t)
	in := validUserInput()
	delete(in.RoleFields, "qualification")

	_, err := env.users.Create(context.Background(), in)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "qualification", ve.Field)
}

func TestCreateUserDropsForeignRoleFields(t *testing.T) {
	env := newTestEnv(t)
	in := validUserInput()
	in.RoleFields["doctor_id"] = "RAD-1" // 放射科医生的字段，技师不收

	u, err := env.users.Create(context.Background(), in)
	require.NoError(t, err)
	assert.NotContains(t, u.RoleDetails, "doctor_id")
}

// 三个身份字段同时冲突时，报错顺序固定 email → mobile → username
func TestDuplicateIdentityOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.users.Create(ctx, validUserInput())
	require.NoError(t, err)

	in := validUserInput() // 三个字段全撞
	_, err = env.users.Create(ctx, in)
	var dup *domain.DuplicateIdentityError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, domain.FieldEmail, dup.Field)

	in = validUserInput()
	in.Email = "other@example.com" // email 让开，轮到 mobile
	_, err = env.users.Create(ctx, in)
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, domain.FieldMobileNumber, dup.Field)

	in = validUserInput()
	in.Email = "other@example.com"
	in.MobileNumber = "9000000000"
	_, err = env.users.Create(ctx, in)
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, domain.FieldUsername, dup.Field)
}

func TestDuplicateCheckIsCaseInsensitiveOnEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.users.Create(ctx, validUserInput())
	require.NoError(t, err)

	in := validUserInput()
	in.Username = "asha2"
	in.MobileNumber = "9000000001"
	in.Email = "ASHA@EXAMPLE.COM" // 归一后和已有记录撞
	_, err = env.users.Create(ctx, in)
	var dup *domain.DuplicateIdentityError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, domain.FieldEmail, dup.Field)
}

func TestSoftDeleteFreesIdentity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u, err := env.users.Create(ctx, validUserInput())
	require.NoError(t, err)

	require.NoError(t, env.users.SoftDelete(ctx, u.ID))

	// 身份字段释放，新账号可以原样注册
	again, err := env.users.Create(ctx, validUserInput())
	require.NoError(t, err)
	assert.NotEqual(t, u.ID, again.ID)

	// 已删除的账号对读取和再删不可见
	_, err = env.users.Get(ctx, u.ID)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	err = env.users.SoftDelete(ctx, u.ID)
	require.ErrorAs(t, err, &nf)
}

func TestUpdateUserIdentityRecheck(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, err := env.users.Create(ctx, validUserInput())
	require.NoError(t, err)

	inB := validUserInput()
	inB.Username = "ravi.front"
	inB.Email = "ravi@example.com"
	inB.MobileNumber = "9000000002"
	inB.Role = string(domain.RoleFrontDesk)
	inB.RoleFields = map[string]any{"assigned_counter": "C1", "shift_timing": "Morning"}
	b, err := env.users.Create(ctx, inB)
	require.NoError(t, err)

	// 改成 a 占用的 email → 冲突，b 本身一点没动
	taken := "asha@example.com"
	_, err = env.users.Update(ctx, b.ID, UpdateUserInput{Email: &taken})
	var dup *domain.DuplicateIdentityError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, domain.FieldEmail, dup.Field)

	reloaded, err := env.users.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "ravi@example.com", reloaded.Email)

	// mobile 冲突同理
	takenMobile := "9876543210"
	_, err = env.users.Update(ctx, b.ID, UpdateUserInput{MobileNumber: &takenMobile})
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, domain.FieldMobileNumber, dup.Field)
	reloaded, err = env.users.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "9000000002", reloaded.MobileNumber)

	// 改成自己当前的值不算冲突
	same := "ravi@example.com"
	_, err = env.users.Update(ctx, b.ID, UpdateUserInput{Email: &same})
	require.NoError(t, err)
	_ = a
}

func TestUpdateUserRoleChangeReshapesDetails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u, err := env.users.Create(ctx, validUserInput())
	require.NoError(t, err)

	// 换角色但没给新角色的必填字段 → 校验失败
	role := string(domain.RoleRadiologist)
	_, err = env.users.Update(ctx, u.ID, UpdateUserInput{Role: &role})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "doctor_id", ve.Field)

	// 带齐必填字段换角色，旧角色的字段被裁掉
	got, err := env.users.Update(ctx, u.ID, UpdateUserInput{
		Role: &role,
		RoleFields: map[string]any{
			"doctor_id":           "RAD-5",
			"registration_number": "MC-9",
			"specialty":           "Chest",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleRadiologist, got.Role)
	assert.NotContains(t, got.RoleDetails, "employee_id")
	assert.Equal(t, "RAD-5", got.RoleDetails["doctor_id"])
}

// 平铺 JSON 里的禁改键（id/status 之外的系统字段）在结构上就进不来
func TestUpdateInputIgnoresForbiddenKeys(t *testing.T) {
	var in UpdateUserInput
	payload := []byte(`{"full_name":"New Name","id":"hacked","is_deleted":true,"created_at":"2020-01-01T00:00:00Z","employee_id":"EMP-2"}`)
	require.NoError(t, json.Unmarshal(payload, &in))

	require.NotNil(t, in.FullName)
	assert.Equal(t, "New Name", *in.FullName)
	// 系统字段整个被剥掉，连角色扩展字段候选都进不了
	assert.Contains(t, in.RoleFields, "employee_id")
	assert.NotContains(t, in.RoleFields, "id")
	assert.NotContains(t, in.RoleFields, "is_deleted")
}

func TestAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u, err := env.users.Create(ctx, validUserInput())
	require.NoError(t, err)

	got, err := env.users.Authenticate(ctx, "asha.tech", "Str0ng!Pass")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = env.users.Authenticate(ctx, "asha.tech", "WrongPass1!")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = env.users.Authenticate(ctx, "nobody", "Str0ng!Pass")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials, "不存在的用户和密码错误同响应")

	inactive := string(domain.UserInactive)
	_, err = env.users.Update(ctx, u.ID, UpdateUserInput{Status: &inactive})
	require.NoError(t, err)
	_, err = env.users.Authenticate(ctx, "asha.tech", "Str0ng!Pass")
	assert.ErrorIs(t, err, domain.ErrAccountInactive)

	// 软删后的账号用正确口令也登不进来，且不暴露存在性
	active := string(domain.UserActive)
	_, err = env.users.Update(ctx, u.ID, UpdateUserInput{Status: &active})
	require.NoError(t, err)
	require.NoError(t, env.users.SoftDelete(ctx, u.ID))
	_, err = env.users.Authenticate(ctx, "asha.tech", "Str0ng!Pass")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestListUsersFilterAndPagination(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i, name := range []string{"u1", "u2", "u3"} {
		in := validUserInput()
		in.Username = name
		in.Email = name + "@example.com"
		in.MobileNumber = "900000001" + string(rune('0'+i))
		_, err := env.users.Create(ctx, in)
		require.NoError(t, err)
	}

	users, meta, err := env.users.List(ctx, domain.UserFilter{}, 1, 2)
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, int64(3), meta.Total)
	assert.Equal(t, 2, meta.TotalPages)
	assert.True(t, meta.HasNextPage)
	assert.False(t, meta.HasPrevPage)

	users, _, err = env.users.List(ctx, domain.UserFilter{Search: "U2"}, 1, 10)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "u2", users[0].Username)
}
