package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type FacilityType string

const (
	FacilityHospital         FacilityType = "Hospital"
	FacilityDiagnosticCenter FacilityType = "Diagnostic Center"
	FacilityClinic           FacilityType = "Clinic"
)

func ValidFacilityType(t FacilityType) bool {
	return t == FacilityHospital || t == FacilityDiagnosticCenter || t == FacilityClinic
}

type FacilityStatus string

const (
	FacilityActive    FacilityStatus = "Active"
	FacilityInactive  FacilityStatus = "Inactive"
	FacilitySuspended FacilityStatus = "Suspended"
)

func ValidFacilityStatus(s FacilityStatus) bool {
	return s == FacilityActive || s == FacilityInactive || s == FacilitySuspended
}

type IntegrationStatus string

const (
	IntegrationConnected IntegrationStatus = "Connected"
	IntegrationPending   IntegrationStatus = "Pending"
	IntegrationFailed    IntegrationStatus = "Failed"
)

func ValidIntegrationStatus(s IntegrationStatus) bool {
	return s == IntegrationConnected || s == IntegrationPending || s == IntegrationFailed
}

// Facility 站点（医院/诊断中心/诊所）。主键是 uuid，和 User 的 32 位 hex id
// 不是一个域，User.facility_id / created_by 之间没有数据库外键，靠应用层解析。
// 设施是硬删，没有软删概念。
type Facility struct {
	ID                  uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	FacilityName        string            `gorm:"size:200;not null;uniqueIndex:uniq_facilities_name_ci,expression:LOWER(facility_name)" json:"facility_name"`
	FacilityCode        string            `gorm:"size:50;uniqueIndex:uniq_facilities_code,where:facility_code <> ''" json:"facility_code,omitempty"`
	FacilityType        FacilityType      `gorm:"size:32;not null" json:"facility_type"`
	FacilityDescription string            `gorm:"type:text" json:"facility_description,omitempty"`
	AddressLine1        string            `gorm:"size:255" json:"address_line_1,omitempty"`
	AddressLine2        string            `gorm:"size:255" json:"address_line_2,omitempty"`
	City                string            `gorm:"size:100" json:"city,omitempty"`
	State               string            `gorm:"size:100" json:"state,omitempty"`
	Country             string            `gorm:"size:100" json:"country,omitempty"`
	Pincode             string            `gorm:"size:10" json:"pincode,omitempty"`
	ContactNumber       string            `gorm:"size:15" json:"contact_number,omitempty"`
	EmailID             string            `gorm:"size:255" json:"email_id,omitempty"`
	LetterheadLogo      string            `gorm:"size:500" json:"letterhead_logo,omitempty"`
	HeaderText          string            `gorm:"type:text" json:"header_text,omitempty"`
	FooterText          string            `gorm:"type:text" json:"footer_text,omitempty"`
	PacsAeTitle         string            `gorm:"size:50" json:"pacs_ae_title,omitempty"`
	PacsIPAddress       string            `gorm:"size:45" json:"pacs_ip_address,omitempty"`
	PacsPort            int               `json:"pacs_port,omitempty"`
	RisURL              string            `gorm:"size:500" json:"ris_url,omitempty"`
	IntegrationStatus   IntegrationStatus `gorm:"size:16;not null;default:Pending" json:"integration_status"`
	Status              FacilityStatus    `gorm:"size:16;not null;default:Active" json:"status"`
	CreatedBy           string            `gorm:"size:32" json:"created_by,omitempty"`  // User.ID，逻辑引用
	ModifiedBy          string            `gorm:"size:32" json:"modified_by,omitempty"` // User.ID，逻辑引用
	CreatedAt           time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Facility) TableName() string { return "facilities" }

// FacilityRef 下拉/类型列表用的精简投影
type FacilityRef struct {
	ID           uuid.UUID      `json:"id"`
	FacilityName string         `json:"facility_name"`
	FacilityCode string         `json:"facility_code,omitempty"`
	City         string         `json:"city,omitempty"`
	Status       FacilityStatus `json:"status"`
}

func (f *Facility) Ref() FacilityRef {
	return FacilityRef{ID: f.ID, FacilityName: f.FacilityName, FacilityCode: f.FacilityCode, City: f.City, Status: f.Status}
}

type FacilityFilter struct {
	Type              string
	Status            string
	IntegrationStatus string
	Search            string // name/code/city 模糊（不区分大小写）
	Offset            int
	Limit             int
}

type FacilityStats struct {
	Total               int64            `json:"total"`
	ByType              map[string]int64 `json:"byType"`
	ByStatus            map[string]int64 `json:"byStatus"`
	ByIntegrationStatus map[string]int64 `json:"byIntegrationStatus"`
}

type FacilityRepository interface {
	Create(ctx context.Context, f *Facility) error
	FindByID(ctx context.Context, id uuid.UUID) (*Facility, error)
	// FindByCode / FindByName 用于唯一性预检；excludeID 为 uuid.Nil 时不排除。
	// 名称比较不区分大小写。
	FindByCode(ctx context.Context, code string, excludeID uuid.UUID) (*Facility, error)
	FindByName(ctx context.Context, name string, excludeID uuid.UUID) (*Facility, error)
	List(ctx context.Context, f FacilityFilter) ([]Facility, int64, error)
	ListActiveByType(ctx context.Context, t FacilityType) ([]Facility, error)
	Update(ctx context.Context, f *Facility) error
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context) (*FacilityStats, error)
}
