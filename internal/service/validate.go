package service

import (
	"errors"
	"fmt"
	"regexp"
	"unicode"

	"go.uber.org/zap"

	"ris-backend/internal/domain"
)

var (
	emailRe        = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	mobileRe       = regexp.MustCompile(`^[0-9]{10}$`)
	facilityCodeRe = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
)

func validateEmail(v string) error {
	if v == "" {
		return &domain.ValidationError{Field: "email", Reason: "email is required"}
	}
	if !emailRe.MatchString(v) {
		return &domain.ValidationError{Field: "email", Reason: "please provide a valid email"}
	}
	return nil
}

func validateMobile(v string) error {
	if !mobileRe.MatchString(v) {
		return &domain.ValidationError{Field: "mobile_number", Reason: "mobile number must be exactly 10 digits"}
	}
	return nil
}

// validatePassword 至少 8 位，且大写/小写/数字/符号四类齐全
func validatePassword(pw string) error {
	if len(pw) < 8 {
		return &domain.ValidationError{Field: "password", Reason: "password must be at least 8 characters"}
	}
	var upper, lower, digit, symbol bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	if !upper || !lower || !digit || !symbol {
		return &domain.ValidationError{
			Field:  "password",
			Reason: "password must contain uppercase, lowercase, digit and symbol characters",
		}
	}
	return nil
}

func validateFacilityName(name string) error {
	if n := len(name); n < 3 || n > 200 {
		return &domain.ValidationError{Field: "facility_name", Reason: "facility name must be between 3 and 200 characters"}
	}
	return nil
}

func validateFacilityCode(code string) error {
	if len(code) > 50 || !facilityCodeRe.MatchString(code) {
		return &domain.ValidationError{Field: "facility_code", Reason: "facility code must be alphanumeric and at most 50 characters"}
	}
	return nil
}

func validatePacsPort(port int) error {
	if port < 1 || port > 65535 {
		return &domain.ValidationError{Field: "pacs_port", Reason: "pacs port must be between 1 and 65535"}
	}
	return nil
}

// PageMeta 列表响应的分页摘要，键名沿用原有 API
type PageMeta struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	Total       int64 `json:"total"`
	PerPage     int   `json:"perPage"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

func pageMeta(page, limit int, total int64) PageMeta {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return PageMeta{
		CurrentPage: page,
		TotalPages:  totalPages,
		Total:       total,
		PerPage:     limit,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return page, limit
}

// logStorage 意外的持久层错误记日志；业务错误（冲突/校验/未找到）不打
func logStorage(l *zap.Logger, op string, err error) {
	var se *domain.StorageError
	if errors.As(err, &se) {
		l.Error(fmt.Sprintf("%s failed", op), zap.Error(err))
	}
}
