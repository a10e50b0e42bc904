package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"ris-backend/internal/domain"
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if f, ok := duplicateIdentityField(err); ok {
			return &domain.DuplicateIdentityError{Field: f}
		}
		return &domain.StorageError{Op: "create user", Err: err}
	}
	return nil
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, "id = ? AND is_deleted = ?", id, false)
}

// FindByIDAny 越过软删过滤，审计链路用
func (r *UserRepo) FindByIDAny(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, "username = ? AND is_deleted = ?", username, false)
}

// FindIdentityOwner 只看未删除的行。email 已在上游归一为小写，三个字段都是精确匹配。
func (r *UserRepo) FindIdentityOwner(ctx context.Context, field domain.IdentityField, value, excludeID string) (*domain.User, error) {
	var col string
	switch field {
	case domain.FieldEmail:
		col = "email"
	case domain.FieldMobileNumber:
		col = "mobile_number"
	case domain.FieldUsername:
		col = "username"
	default:
		return nil, &domain.StorageError{Op: "identity lookup", Err: errors.New("unknown identity field " + string(field))}
	}
	q := r.db.WithContext(ctx).Where(col+" = ? AND is_deleted = ?", value, false)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var u domain.User
	err := q.First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "identity lookup", Err: err}
	}
	return &u, nil
}

func (r *UserRepo) List(ctx context.Context, f domain.UserFilter) ([]domain.User, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.User{})
	if !f.WithDeleted {
		q = q.Where("is_deleted = ?", false)
	}
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.FacilityID != "" {
		q = q.Where("facility_id = ?", f.FacilityID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(full_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(username) LIKE ?", like, like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, &domain.StorageError{Op: "count users", Err: err}
	}
	if f.Limit > 0 {
		q = q.Offset(f.Offset).Limit(f.Limit)
	}
	var users []domain.User
	if err := q.Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, 0, &domain.StorageError{Op: "list users", Err: err}
	}
	return users, total, nil
}

func (r *UserRepo) Update(ctx context.Context, u *domain.User) error {
	if err := r.db.WithContext(ctx).Save(u).Error; err != nil {
		if f, ok := duplicateIdentityField(err); ok {
			return &domain.DuplicateIdentityError{Field: f}
		}
		return &domain.StorageError{Op: "update user", Err: err}
	}
	return nil
}

func (r *UserRepo) CountByFacility(ctx context.Context, facilityID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("facility_id = ? AND is_deleted = ?", facilityID, false).
		Count(&n).Error
	if err != nil {
		return 0, &domain.StorageError{Op: "count facility users", Err: err}
	}
	return n, nil
}

func (r *UserRepo) findOne(ctx context.Context, cond string, args ...any) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).First(&u, append([]any{cond}, args...)...).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "find user", Err: err}
	}
	return &u, nil
}

// duplicateIdentityField 把唯一索引冲突映射回字段名，预检漏掉的并发写靠它兜底。
// 不依赖 gorm.ErrDuplicatedKey，避免驱动间差异。
func duplicateIdentityField(err error) (domain.IdentityField, bool) {
	if err == nil || !isDupKey(err) {
		return "", false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "email"):
		return domain.FieldEmail, true
	case strings.Contains(msg, "mobile"):
		return domain.FieldMobileNumber, true
	case strings.Contains(msg, "username"):
		return domain.FieldUsername, true
	}
	return domain.FieldEmail, true
}

func isDupKey(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation") ||
		strings.Contains(msg, "unique failed") ||
		strings.Contains(msg, "duplicate key")
}
