package domain

import (
	"errors"
	"fmt"
)

// 组件边界只抛这里定义的错误种类，裸的存储层错误一律包进 StorageError。

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is inactive")
)

// ValidationError 单请求内的输入问题，带字段级说明
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// DuplicateIdentityError email/mobile_number/username 撞了未删除账号。
// 预检和数据库唯一索引兜底报的是同一种错误。
type DuplicateIdentityError struct {
	Field IdentityField
}

func (e *DuplicateIdentityError) Error() string {
	return fmt.Sprintf("%s already exists", e.Field)
}

// DuplicateFacilityError facility_name（不区分大小写）或 facility_code 冲突
type DuplicateFacilityError struct {
	Field string
}

func (e *DuplicateFacilityError) Error() string {
	switch e.Field {
	case "facility_code":
		return "facility code already exists"
	default:
		return "facility with this name already exists"
	}
}

// NotFoundError 不存在，或对 User 来说已软删（对默认查找不可见）
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// FacilityInUseError 还有员工引用该设施时拒绝删除
type FacilityInUseError struct {
	Count int64
}

func (e *FacilityInUseError) Error() string {
	return fmt.Sprintf("cannot delete facility: %d user(s) are associated with this facility", e.Count)
}

// StorageError 持久层的意外错误；对外不暴露内部细节，只记日志
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
