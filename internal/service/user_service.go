package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"ris-backend/internal/domain"
	"ris-backend/pkg/utils"
)

// UserService 账号目录：角色成形校验、三字段唯一性、软删、口令轮换、登录。
type UserService struct {
	users domain.UserRepository
	log   *zap.Logger
}

func NewUserService(users domain.UserRepository, log *zap.Logger) *UserService {
	return &UserService{users: users, log: log}
}

// 通用字段键；这些之外的顶层键按角色扩展字段处理
var userCommonKeys = []string{
	"id", "username", "email", "mobile_number", "full_name", "gender",
	"date_of_birth", "password", "password_hash", "status", "facility_id",
	"role", "role_details", "is_deleted", "deleted_at", "created_at", "updated_at",
}

// CreateUserInput 入参是平铺的：角色扩展字段和通用字段在同一层。
// UnmarshalJSON 把通用键之外的部分收进 RoleFields，成形交给角色表。
type CreateUserInput struct {
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	MobileNumber string     `json:"mobile_number"`
	FullName     string     `json:"full_name"`
	Gender       string     `json:"gender"`
	DateOfBirth  *time.Time `json:"date_of_birth"`
	Password     string     `json:"password"`
	FacilityID   string     `json:"facility_id"`
	Role         string     `json:"role"`

	RoleFields map[string]any `json:"-"`
}

func (in *CreateUserInput) UnmarshalJSON(b []byte) error {
	type alias CreateUserInput
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	a.RoleFields = extraKeys(b)
	*in = CreateUserInput(a)
	return nil
}

// UpdateUserInput 部分更新；id/is_deleted/deleted_at 等禁改字段在结构上就不存在，
// 请求里带了也只会被当作未知键丢掉。
type UpdateUserInput struct {
	Username     *string    `json:"username"`
	Email        *string    `json:"email"`
	MobileNumber *string    `json:"mobile_number"`
	FullName     *string    `json:"full_name"`
	Gender       *string    `json:"gender"`
	DateOfBirth  *time.Time `json:"date_of_birth"`
	Password     *string    `json:"password"`
	Status       *string    `json:"status"`
	FacilityID   *string    `json:"facility_id"`
	Role         *string    `json:"role"`

	RoleFields map[string]any `json:"-"`
}

func (in *UpdateUserInput) UnmarshalJSON(b []byte) error {
	type alias UpdateUserInput
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	a.RoleFields = extraKeys(b)
	*in = UpdateUserInput(a)
	return nil
}

func extraKeys(b []byte) map[string]any {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}
	for _, k := range userCommonKeys {
		delete(raw, k)
	}
	if len(raw) == 0 {
		return nil
	}
	return raw
}

func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)

	if in.FullName == "" {
		return nil, &domain.ValidationError{Field: "full_name", Reason: "full name is required"}
	}
	if in.Username == "" {
		return nil, &domain.ValidationError{Field: "username", Reason: "username is required"}
	}
	if err := validateEmail(in.Email); err != nil {
		return nil, err
	}
	if err := validateMobile(in.MobileNumber); err != nil {
		return nil, err
	}
	if in.Gender != "" && !domain.ValidGender(domain.Gender(in.Gender)) {
		return nil, &domain.ValidationError{Field: "gender", Reason: "gender must be Male, Female or Other"}
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	if !domain.ValidRole(domain.Role(in.Role)) {
		return nil, &domain.ValidationError{Field: "role", Reason: "role must be Technician, FrontDesk or Radiologist"}
	}

	details, err := domain.ShapeRoleFields(domain.Role(in.Role), in.RoleFields)
	if err != nil {
		return nil, err
	}

	if err := s.checkIdentity(ctx, map[domain.IdentityField]string{
		domain.FieldEmail:        in.Email,
		domain.FieldMobileNumber: in.MobileNumber,
		domain.FieldUsername:     in.Username,
	}, ""); err != nil {
		return nil, err
	}

	u := &domain.User{
		ID:           utils.NewID(),
		Username:     in.Username,
		Email:        in.Email,
		MobileNumber: in.MobileNumber,
		FullName:     in.FullName,
		Gender:       domain.Gender(in.Gender),
		DateOfBirth:  in.DateOfBirth,
		PasswordHash: utils.HashPassword(in.Password),
		Status:       domain.UserActive,
		FacilityID:   in.FacilityID,
		Role:         domain.Role(in.Role),
		RoleDetails:  details,
	}
	if err := s.users.Create(ctx, u); err != nil {
		// 预检后仍可能撞唯一索引（并发），repo 已映射回 DuplicateIdentity
		logStorage(s.log, "create user", err)
		return nil, err
	}
	return u, nil
}

func (s *UserService) Update(ctx context.Context, id string, in UpdateUserInput) (*domain.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		logStorage(s.log, "update user", err)
		return nil, err
	}
	if u == nil {
		return nil, &domain.NotFoundError{Entity: "user", ID: id}
	}

	// 身份字段按 email → mobile → username 顺序复检，只查变化了的
	if in.Email != nil {
		v := strings.ToLower(strings.TrimSpace(*in.Email))
		if err := validateEmail(v); err != nil {
			return nil, err
		}
		if v != u.Email {
			if err := s.checkIdentity(ctx, map[domain.IdentityField]string{domain.FieldEmail: v}, u.ID); err != nil {
				return nil, err
			}
		}
		u.Email = v
	}
	if in.MobileNumber != nil {
		v := *in.MobileNumber
		if err := validateMobile(v); err != nil {
			return nil, err
		}
		if v != u.MobileNumber {
			if err := s.checkIdentity(ctx, map[domain.IdentityField]string{domain.FieldMobileNumber: v}, u.ID); err != nil {
				return nil, err
			}
		}
		u.MobileNumber = v
	}
	if in.Username != nil {
		v := strings.TrimSpace(*in.Username)
		if v == "" {
			return nil, &domain.ValidationError{Field: "username", Reason: "username is required"}
		}
		if v != u.Username {
			if err := s.checkIdentity(ctx, map[domain.IdentityField]string{domain.FieldUsername: v}, u.ID); err != nil {
				return nil, err
			}
		}
		u.Username = v
	}

	if in.FullName != nil {
		v := strings.TrimSpace(*in.FullName)
		if v == "" {
			return nil, &domain.ValidationError{Field: "full_name", Reason: "full name is required"}
		}
		u.FullName = v
	}
	if in.Gender != nil {
		if !domain.ValidGender(domain.Gender(*in.Gender)) {
			return nil, &domain.ValidationError{Field: "gender", Reason: "gender must be Male, Female or Other"}
		}
		u.Gender = domain.Gender(*in.Gender)
	}
	if in.DateOfBirth != nil {
		u.DateOfBirth = in.DateOfBirth
	}
	if in.Status != nil {
		if !domain.ValidUserStatus(domain.UserStatus(*in.Status)) {
			return nil, &domain.ValidationError{Field: "status", Reason: "status must be Active or Inactive"}
		}
		u.Status = domain.UserStatus(*in.Status)
	}
	if in.FacilityID != nil {
		// 逻辑引用，落库时不强校验可解析性，读路径由解析器兜底
		u.FacilityID = *in.FacilityID
	}

	role := u.Role
	if in.Role != nil {
		if !domain.ValidRole(domain.Role(*in.Role)) {
			return nil, &domain.ValidationError{Field: "role", Reason: "role must be Technician, FrontDesk or Radiologist"}
		}
		role = domain.Role(*in.Role)
	}
	if role != u.Role || len(in.RoleFields) > 0 {
		merged := map[string]any{}
		for k, v := range u.RoleDetails {
			merged[k] = v
		}
		for k, v := range in.RoleFields {
			merged[k] = v
		}
		details, err := domain.ShapeRoleFields(role, merged)
		if err != nil {
			return nil, err
		}
		u.Role = role
		u.RoleDetails = details
	}

	// 口令轮换：密文永不落库，写之前就地替换成哈希
	if in.Password != nil {
		if err := validatePassword(*in.Password); err != nil {
			return nil, err
		}
		u.PasswordHash = utils.HashPassword(*in.Password)
	}

	if err := s.users.Update(ctx, u); err != nil {
		logStorage(s.log, "update user", err)
		return nil, err
	}
	return u, nil
}

// SoftDelete 只翻标记不删行；已删除的 id 对本操作不可见，再删一次报 NotFound
func (s *UserService) SoftDelete(ctx context.Context, id string) error {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		logStorage(s.log, "delete user", err)
		return err
	}
	if u == nil {
		return &domain.NotFoundError{Entity: "user", ID: id}
	}
	now := time.Now()
	u.IsDeleted = true
	u.DeletedAt = &now
	u.Status = domain.UserInactive
	if err := s.users.Update(ctx, u); err != nil {
		logStorage(s.log, "delete user", err)
		return err
	}
	return nil
}

// Authenticate 用户名在未删除账号里找；找不到和密码不对返回同一种错误，
// 避免帐号枚举。停用账号单独报 AccountInactive。
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	u, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		logStorage(s.log, "authenticate", err)
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrInvalidCredentials
	}
	if u.Status != domain.UserActive {
		return nil, domain.ErrAccountInactive
	}
	if !utils.CheckPassword(password, u.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	return u, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		logStorage(s.log, "get user", err)
		return nil, err
	}
	if u == nil {
		return nil, &domain.NotFoundError{Entity: "user", ID: id}
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context, f domain.UserFilter, page, limit int) ([]domain.User, PageMeta, error) {
	page, limit = normalizePage(page, limit)
	f.Offset = (page - 1) * limit
	f.Limit = limit
	users, total, err := s.users.List(ctx, f)
	if err != nil {
		logStorage(s.log, "list users", err)
		return nil, PageMeta{}, err
	}
	return users, pageMeta(page, limit, total), nil
}

// checkIdentity 唯一性预检（快路径）；固定按 IdentityCheckOrder 报第一个冲突
func (s *UserService) checkIdentity(ctx context.Context, values map[domain.IdentityField]string, excludeID string) error {
	for _, field := range domain.IdentityCheckOrder {
		v, ok := values[field]
		if !ok {
			continue
		}
		owner, err := s.users.FindIdentityOwner(ctx, field, v, excludeID)
		if err != nil {
			logStorage(s.log, "identity check", err)
			return err
		}
		if owner != nil {
			return &domain.DuplicateIdentityError{Field: field}
		}
	}
	return nil
}
