package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

type Role string

const (
	RoleTechnician  Role = "Technician"
	RoleFrontDesk   Role = "FrontDesk"
	RoleRadiologist Role = "Radiologist"
)

func ValidRole(r Role) bool {
	_, ok := roleSchemas[r]
	return ok
}

// RoleSchema 每个角色的扩展字段表：Required 缺了报错，Allowed 可选，
// 两者之外的键静默丢弃（不报错、不落库）。
type RoleSchema struct {
	Required []string
	Allowed  []string
}

var roleSchemas = map[Role]RoleSchema{
	RoleTechnician: {
		Required: []string{"employee_id", "department", "qualification"},
		Allowed:  []string{"experience_years", "reporting_supervisor"},
	},
	RoleFrontDesk: {
		Required: []string{"assigned_counter", "shift_timing"},
	},
	RoleRadiologist: {
		Required: []string{"doctor_id", "registration_number", "specialty"},
		Allowed:  []string{"signature", "peer_reviewer", "reporting_modality_access"},
	},
}

func RequiredFieldsFor(r Role) []string { return roleSchemas[r].Required }
func AllowedFieldsFor(r Role) []string  { return roleSchemas[r].Allowed }

// ShapeRoleFields 按角色裁剪扩展字段：必填缺失或为空值时返回 ValidationError
// （按表内顺序报第一个），未知键直接丢弃。
func ShapeRoleFields(r Role, fields map[string]any) (RoleDetails, error) {
	schema, ok := roleSchemas[r]
	if !ok {
		return nil, &ValidationError{Field: "role", Reason: fmt.Sprintf("unknown role %q", r)}
	}
	out := RoleDetails{}
	for _, k := range schema.Required {
		v, present := fields[k]
		if !present || emptyValue(v) {
			return nil, &ValidationError{Field: k, Reason: fmt.Sprintf("%s is required for role %s", k, r)}
		}
		out[k] = v
	}
	for _, k := range schema.Allowed {
		if v, present := fields[k]; present && !emptyValue(v) {
			out[k] = v
		}
	}
	return out, nil
}

func emptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

// RoleDetails 角色扩展字段，整体按 JSON 存一列
type RoleDetails map[string]any

func (d RoleDetails) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (d *RoleDetails) Scan(src any) error {
	if src == nil {
		*d = nil
		return nil
	}
	var b []byte
	switch t := src.(type) {
	case []byte:
		b = t
	case string:
		b = []byte(t)
	default:
		return fmt.Errorf("role details: unsupported scan type %T", src)
	}
	if len(b) == 0 {
		*d = nil
		return nil
	}
	return json.Unmarshal(b, d)
}

// DecodeRoleDetails 把存储的扩展字段还原成角色对应的类型化结构
func DecodeRoleDetails[T any](d RoleDetails) (*T, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type TechnicianDetails struct {
	EmployeeID          string   `json:"employee_id"`
	Department          []string `json:"department"`
	Qualification       string   `json:"qualification"`
	ExperienceYears     float64  `json:"experience_years,omitempty"`
	ReportingSupervisor string   `json:"reporting_supervisor,omitempty"`
}

type FrontDeskDetails struct {
	AssignedCounter string `json:"assigned_counter"`
	ShiftTiming     string `json:"shift_timing"`
}

type RadiologistDetails struct {
	DoctorID                string   `json:"doctor_id"`
	RegistrationNumber      string   `json:"registration_number"`
	Specialty               string   `json:"specialty"`
	Signature               string   `json:"signature,omitempty"`
	PeerReviewer            bool     `json:"peer_reviewer,omitempty"`
	ReportingModalityAccess []string `json:"reporting_modality_access,omitempty"`
}
