package service

import (
	"context"

	"github.com/google/uuid"

	"ris-backend/internal/domain"
)

// Resolver 应用层解析 User↔Facility 的逻辑引用。User.facility_id 是普通字符串，
// Facility 主键是 uuid，两边没有数据库外键，悬空引用是合法状态：
// 单个字段解析失败只报该字段的 NotFound，不连累父实体的读取。
type Resolver struct {
	users      domain.UserRepository
	facilities domain.FacilityRepository
}

func NewResolver(users domain.UserRepository, facilities domain.FacilityRepository) *Resolver {
	return &Resolver{users: users, facilities: facilities}
}

// ResolveStaff 列出 facility_id 指向该设施的未删除员工
func (r *Resolver) ResolveStaff(ctx context.Context, facilityID uuid.UUID) ([]domain.UserSummary, error) {
	users, _, err := r.users.List(ctx, domain.UserFilter{FacilityID: facilityID.String()})
	if err != nil {
		return nil, err
	}
	out := make([]domain.UserSummary, 0, len(users))
	for i := range users {
		out = append(out, users[i].Summary())
	}
	return out, nil
}

// ResolveFacility 把 User.facility_id 解析成设施。值解析不出 uuid 也按悬空处理。
func (r *Resolver) ResolveFacility(ctx context.Context, ref string) (*domain.Facility, error) {
	if ref == "" {
		return nil, &domain.NotFoundError{Entity: "facility", ID: ref}
	}
	id, err := uuid.Parse(ref)
	if err != nil {
		return nil, &domain.NotFoundError{Entity: "facility", ID: ref}
	}
	f, err := r.facilities.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, &domain.NotFoundError{Entity: "facility", ID: ref}
	}
	return f, nil
}

// ResolveAuditUser 审计引用（created_by/modified_by）允许命中已软删的账号，
// 设施的历史记录里操作者删号后也要能显示。
func (r *Resolver) ResolveAuditUser(ctx context.Context, userID string) (*domain.UserSummary, error) {
	if userID == "" {
		return nil, &domain.NotFoundError{Entity: "user", ID: userID}
	}
	u, err := r.users.FindByIDAny(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, &domain.NotFoundError{Entity: "user", ID: userID}
	}
	s := u.Summary()
	return &s, nil
}
