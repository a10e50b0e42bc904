package domain

import (
	"context"
	"time"
)

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

func ValidGender(g Gender) bool {
	return g == GenderMale || g == GenderFemale || g == GenderOther
}

type UserStatus string

const (
	UserActive   UserStatus = "Active"
	UserInactive UserStatus = "Inactive"
)

func ValidUserStatus(s UserStatus) bool {
	return s == UserActive || s == UserInactive
}

// IdentityField 三个可变身份字段
type IdentityField string

const (
	FieldEmail        IdentityField = "email"
	FieldMobileNumber IdentityField = "mobile_number"
	FieldUsername     IdentityField = "username"
)

// IdentityCheckOrder 决定多字段同时冲突时先报哪个
var IdentityCheckOrder = []IdentityField{FieldEmail, FieldMobileNumber, FieldUsername}

// User 员工账号。email 落库前统一小写；唯一索引只覆盖 is_deleted = false 的行，
// 软删后的身份字段允许被新账号复用。
type User struct {
	ID           string      `gorm:"primaryKey;size:32" json:"id"`
	Username     string      `gorm:"size:50;not null;uniqueIndex:uniq_users_username_live,where:is_deleted = false" json:"username"`
	Email        string      `gorm:"size:100;not null;uniqueIndex:uniq_users_email_live,where:is_deleted = false" json:"email"`
	MobileNumber string      `gorm:"size:10;not null;uniqueIndex:uniq_users_mobile_live,where:is_deleted = false" json:"mobile_number"`
	FullName     string      `gorm:"size:100;not null" json:"full_name"`
	Gender       Gender      `gorm:"size:10" json:"gender"`
	DateOfBirth  *time.Time  `json:"date_of_birth,omitempty"`
	PasswordHash string      `gorm:"size:100;not null" json:"-"`
	Status       UserStatus  `gorm:"size:10;not null;default:Inactive" json:"status"`
	FacilityID   string      `gorm:"size:36;index" json:"facility_id,omitempty"` // 逻辑外键，无类型保证
	Role         Role        `gorm:"size:16;not null" json:"role"`
	RoleDetails  RoleDetails `gorm:"type:text" json:"role_details"`
	IsDeleted    bool        `gorm:"not null;default:false" json:"-"`
	DeletedAt    *time.Time  `json:"-"`
	CreatedAt    time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string { return "users" }

// UserSummary 审计/员工列表里挂出的精简视图
type UserSummary struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, FullName: u.FullName, Email: u.Email, Role: u.Role}
}

type UserFilter struct {
	Role        string
	Status      string
	FacilityID  string
	Search      string // full_name/email/username 模糊（不区分大小写）
	WithDeleted bool
	Offset      int
	Limit       int
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	// FindByID 只命中未删除的行；FindByIDAny 显式越过软删过滤
	FindByID(ctx context.Context, id string) (*User, error)
	FindByIDAny(ctx context.Context, id string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	// FindIdentityOwner 在未删除行里找占用了该身份值的账号，excludeID 可为空
	FindIdentityOwner(ctx context.Context, field IdentityField, value, excludeID string) (*User, error)
	List(ctx context.Context, f UserFilter) ([]User, int64, error)
	Update(ctx context.Context, u *User) error
	CountByFacility(ctx context.Context, facilityID string) (int64, error)
}
