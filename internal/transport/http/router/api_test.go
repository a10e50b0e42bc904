package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"ris-backend/internal/core/auth"
	"ris-backend/internal/domain"
	"ris-backend/internal/repo"
	"ris-backend/internal/service"
	"ris-backend/internal/transport/http/router"
)

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type fixture struct {
	engine *gin.Engine
	users  *service.UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Facility{}))

	log := zap.NewNop()
	ur := repo.NewUserRepo(db)
	fr := repo.NewFacilityRepo(db)
	res := service.NewResolver(ur, fr)
	users := service.NewUserService(ur, log)
	facilities := service.NewFacilityService(fr, ur, res, nil, log)

	jwter := &auth.JWTer{Secret: []byte("test-secret"), Issuer: "ris-test", TTL: time.Hour}
	engine := router.NewAPIEngine(router.Deps{
		Log:        log,
		JWTer:      jwter,
		Users:      users,
		Facilities: facilities,
	})
	return &fixture{engine: engine, users: users}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) envelope {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	f.engine.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, "业务结果看壳里的 code，HTTP 恒为 200")

	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env
}

func (f *fixture) login(t *testing.T) string {
	t.Helper()
	ctx := t.Context()
	_, err := f.users.Create(ctx, service.CreateUserInput{
		Username:     "front.desk",
		Email:        "front@example.com",
		MobileNumber: "9111111111",
		FullName:     "Front Desk",
		Password:     "Fr0nt!Desk",
		Role:         string(domain.RoleFrontDesk),
		RoleFields:   map[string]any{"assigned_counter": "C1", "shift_timing": "Morning"},
	})
	require.NoError(t, err)

	env := f.do(t, http.MethodPost, "/ris/api/auth/login", "", gin.H{
		"username": "front.desk",
		"password": "Fr0nt!Desk",
	})
	require.Equal(t, 0, env.Code)
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rr := httptest.NewRecorder()
	f.engine.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"OK"`)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	f := newFixture(t)
	env := f.do(t, http.MethodGet, "/ris/api/users", "", nil)
	assert.Equal(t, 401, env.Code)

	env = f.do(t, http.MethodGet, "/ris/api/users", "garbage-token", nil)
	assert.Equal(t, 401, env.Code)
}

func TestLoginFlow(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	env := f.do(t, http.MethodGet, "/ris/api/auth/me", token, nil)
	require.Equal(t, 0, env.Code)
	var me domain.User
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "front.desk", me.Username)

	env = f.do(t, http.MethodPost, "/ris/api/auth/login", "", gin.H{
		"username": "front.desk",
		"password": "wrong-password",
	})
	assert.Equal(t, 401, env.Code)
}

// 平铺 payload 全链路：角色字段收进 role_details，禁改键和他角色字段被丢掉
func TestCreateUserOverHTTP(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	env := f.do(t, http.MethodPost, "/ris/api/users", token, gin.H{
		"id":            "client-chosen-id", // 服务端生成，客户端给了也没用
		"username":      "asha.tech",
		"email":         "Asha@Example.com",
		"mobile_number": "9876543210",
		"full_name":     "Asha Kumar",
		"password":      "Str0ng!Pass",
		"role":          "Technician",
		"employee_id":   "EMP-100",
		"department":    []string{"CT"},
		"qualification": "BSc Radiography",
		"doctor_id":     "RAD-1", // 技师没有这个字段
	})
	require.Equal(t, 0, env.Code, env.Msg)

	var u domain.User
	require.NoError(t, json.Unmarshal(env.Data, &u))
	assert.NotEqual(t, "client-chosen-id", u.ID)
	assert.Equal(t, "asha@example.com", u.Email)
	assert.Equal(t, "EMP-100", u.RoleDetails["employee_id"])
	assert.NotContains(t, u.RoleDetails, "doctor_id")

	// 同身份再建 → 业务码 409
	env = f.do(t, http.MethodPost, "/ris/api/users", token, gin.H{
		"username":      "asha.tech",
		"email":         "asha@example.com",
		"mobile_number": "9876543210",
		"full_name":     "Asha Kumar",
		"password":      "Str0ng!Pass",
		"role":          "Technician",
		"employee_id":   "EMP-101",
		"department":    []string{"MRI"},
		"qualification": "BSc",
	})
	assert.Equal(t, 409, env.Code)
	assert.Contains(t, env.Msg, "email")
}

func TestFacilityLifecycleOverHTTP(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	env := f.do(t, http.MethodPost, "/ris/api/facilities", token, gin.H{
		"facility_name": "Apollo Hospital",
		"facility_code": "AP-HOS-001",
		"facility_type": "Hospital",
		"city":          "Chennai",
	})
	require.Equal(t, 0, env.Code, env.Msg)
	var created domain.Facility
	require.NoError(t, json.Unmarshal(env.Data, &created))

	// created_by 取自令牌身份，详情接口能解析出操作者
	env = f.do(t, http.MethodGet, "/ris/api/facilities/"+created.ID.String(), token, nil)
	require.Equal(t, 0, env.Code)
	var detail struct {
		CreatedBy *domain.UserSummary `json:"CreatedBy"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	require.NotNil(t, detail.CreatedBy)
	assert.Equal(t, "Front Desk", detail.CreatedBy.FullName)

	env = f.do(t, http.MethodGet, "/ris/api/facilities/stats/summary", token, nil)
	require.Equal(t, 0, env.Code)
	var stats domain.FacilityStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, int64(1), stats.Total)

	env = f.do(t, http.MethodGet, "/ris/api/facilities/not-a-uuid", token, nil)
	assert.Equal(t, 404, env.Code, "id 解析不出 uuid 与查无此行同响应")

	env = f.do(t, http.MethodDelete, "/ris/api/facilities/"+created.ID.String(), token, nil)
	require.Equal(t, 0, env.Code)
	env = f.do(t, http.MethodGet, "/ris/api/facilities/"+created.ID.String(), token, nil)
	assert.Equal(t, 404, env.Code)
}
