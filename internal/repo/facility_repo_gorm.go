package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"ris-backend/internal/domain"
)

type FacilityRepo struct{ db *gorm.DB }

func NewFacilityRepo(db *gorm.DB) *FacilityRepo { return &FacilityRepo{db: db} }

func (r *FacilityRepo) Create(ctx context.Context, f *domain.Facility) error {
	if err := r.db.WithContext(ctx).Create(f).Error; err != nil {
		if fld, ok := duplicateFacilityField(err); ok {
			return &domain.DuplicateFacilityError{Field: fld}
		}
		return &domain.StorageError{Op: "create facility", Err: err}
	}
	return nil
}

func (r *FacilityRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Facility, error) {
	var f domain.Facility
	err := r.db.WithContext(ctx).First(&f, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "find facility", Err: err}
	}
	return &f, nil
}

func (r *FacilityRepo) FindByCode(ctx context.Context, code string, excludeID uuid.UUID) (*domain.Facility, error) {
	q := r.db.WithContext(ctx).Where("facility_code = ?", code)
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	return firstFacility(q, "find facility by code")
}

// FindByName 名称不区分大小写
func (r *FacilityRepo) FindByName(ctx context.Context, name string, excludeID uuid.UUID) (*domain.Facility, error) {
	q := r.db.WithContext(ctx).Where("LOWER(facility_name) = ?", strings.ToLower(name))
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	return firstFacility(q, "find facility by name")
}

func (r *FacilityRepo) List(ctx context.Context, f domain.FacilityFilter) ([]domain.Facility, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Facility{})
	if f.Type != "" {
		q = q.Where("facility_type = ?", f.Type)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.IntegrationStatus != "" {
		q = q.Where("integration_status = ?", f.IntegrationStatus)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(facility_name) LIKE ? OR LOWER(facility_code) LIKE ? OR LOWER(city) LIKE ?", like, like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, &domain.StorageError{Op: "count facilities", Err: err}
	}
	if f.Limit > 0 {
		q = q.Offset(f.Offset).Limit(f.Limit)
	}
	var out []domain.Facility
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, 0, &domain.StorageError{Op: "list facilities", Err: err}
	}
	return out, total, nil
}

func (r *FacilityRepo) ListActiveByType(ctx context.Context, t domain.FacilityType) ([]domain.Facility, error) {
	var out []domain.Facility
	err := r.db.WithContext(ctx).
		Where("facility_type = ? AND status = ?", t, domain.FacilityActive).
		Order("facility_name ASC").
		Find(&out).Error
	if err != nil {
		return nil, &domain.StorageError{Op: "list facilities by type", Err: err}
	}
	return out, nil
}

func (r *FacilityRepo) Update(ctx context.Context, f *domain.Facility) error {
	if err := r.db.WithContext(ctx).Save(f).Error; err != nil {
		if fld, ok := duplicateFacilityField(err); ok {
			return &domain.DuplicateFacilityError{Field: fld}
		}
		return &domain.StorageError{Op: "update facility", Err: err}
	}
	return nil
}

// Delete 硬删；是否还有员工引用由上层先行检查
func (r *FacilityRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Delete(&domain.Facility{}, "id = ?", id).Error; err != nil {
		return &domain.StorageError{Op: "delete facility", Err: err}
	}
	return nil
}

func (r *FacilityRepo) Stats(ctx context.Context) (*domain.FacilityStats, error) {
	stats := &domain.FacilityStats{
		ByType:              map[string]int64{},
		ByStatus:            map[string]int64{},
		ByIntegrationStatus: map[string]int64{},
	}
	if err := r.db.WithContext(ctx).Model(&domain.Facility{}).Count(&stats.Total).Error; err != nil {
		return nil, &domain.StorageError{Op: "count facilities", Err: err}
	}
	for _, g := range []struct {
		col  string
		into map[string]int64
	}{
		{"facility_type", stats.ByType},
		{"status", stats.ByStatus},
		{"integration_status", stats.ByIntegrationStatus},
	} {
		var rows []struct {
			Key   string
			Count int64
		}
		err := r.db.WithContext(ctx).Model(&domain.Facility{}).
			Select(g.col + " AS key, COUNT(id) AS count").
			Group(g.col).
			Scan(&rows).Error
		if err != nil {
			return nil, &domain.StorageError{Op: "facility stats", Err: err}
		}
		for _, row := range rows {
			g.into[row.Key] = row.Count
		}
	}
	return stats, nil
}

func firstFacility(q *gorm.DB, op string) (*domain.Facility, error) {
	var f domain.Facility
	err := q.First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.StorageError{Op: op, Err: err}
	}
	return &f, nil
}

func duplicateFacilityField(err error) (string, bool) {
	if err == nil || !isDupKey(err) {
		return "", false
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "code") {
		return "facility_code", true
	}
	return "facility_name", true
}
