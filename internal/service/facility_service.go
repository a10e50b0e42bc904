package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ris-backend/internal/core/cache"
	"ris-backend/internal/domain"
)

const statsCacheKey = "ris:facility:stats"
const statsCacheTTL = 30 * time.Second

// FacilityService 设施注册表：名称/编码唯一性、引用保护的硬删、审计挂载、统计。
type FacilityService struct {
	facilities domain.FacilityRepository
	users      domain.UserRepository
	resolver   *Resolver
	cache      *cache.Cache // 可为 nil，统计走直查
	log        *zap.Logger
}

func NewFacilityService(facilities domain.FacilityRepository, users domain.UserRepository, resolver *Resolver, c *cache.Cache, log *zap.Logger) *FacilityService {
	return &FacilityService{facilities: facilities, users: users, resolver: resolver, cache: c, log: log}
}

type CreateFacilityInput struct {
	FacilityName        string `json:"facility_name"`
	FacilityCode        string `json:"facility_code"`
	FacilityType        string `json:"facility_type"`
	FacilityDescription string `json:"facility_description"`
	AddressLine1        string `json:"address_line_1"`
	AddressLine2        string `json:"address_line_2"`
	City                string `json:"city"`
	State               string `json:"state"`
	Country             string `json:"country"`
	Pincode             string `json:"pincode"`
	ContactNumber       string `json:"contact_number"`
	EmailID             string `json:"email_id"`
	LetterheadLogo      string `json:"letterhead_logo"`
	HeaderText          string `json:"header_text"`
	FooterText          string `json:"footer_text"`
	PacsAeTitle         string `json:"pacs_ae_title"`
	PacsIPAddress       string `json:"pacs_ip_address"`
	PacsPort            int    `json:"pacs_port"`
	RisURL              string `json:"ris_url"`
	IntegrationStatus   string `json:"integration_status"`
	Status              string `json:"status"`
}

// UpdateFacilityInput 禁改字段（id/created_by/created_at）结构上不存在，
// 请求里带了也不会生效。
type UpdateFacilityInput struct {
	FacilityName        *string `json:"facility_name"`
	FacilityCode        *string `json:"facility_code"`
	FacilityType        *string `json:"facility_type"`
	FacilityDescription *string `json:"facility_description"`
	AddressLine1        *string `json:"address_line_1"`
	AddressLine2        *string `json:"address_line_2"`
	City                *string `json:"city"`
	State               *string `json:"state"`
	Country             *string `json:"country"`
	Pincode             *string `json:"pincode"`
	ContactNumber       *string `json:"contact_number"`
	EmailID             *string `json:"email_id"`
	LetterheadLogo      *string `json:"letterhead_logo"`
	HeaderText          *string `json:"header_text"`
	FooterText          *string `json:"footer_text"`
	PacsAeTitle         *string `json:"pacs_ae_title"`
	PacsIPAddress       *string `json:"pacs_ip_address"`
	PacsPort            *int    `json:"pacs_port"`
	RisURL              *string `json:"ris_url"`
	IntegrationStatus   *string `json:"integration_status"`
	Status              *string `json:"status"`
}

// FacilityWithAudit 设施加上 created_by/modified_by 解析出的账号摘要。
// 解析不出（悬空引用）就空着对应字段，不影响设施本身的读取。
type FacilityWithAudit struct {
	domain.Facility
	CreatedByUser  *domain.UserSummary `json:"CreatedBy,omitempty"`
	ModifiedByUser *domain.UserSummary `json:"ModifiedBy,omitempty"`
}

func (s *FacilityService) Create(ctx context.Context, in CreateFacilityInput, actorID string) (*domain.Facility, error) {
	in.FacilityName = strings.TrimSpace(in.FacilityName)
	in.FacilityCode = strings.TrimSpace(in.FacilityCode)

	if err := validateFacilityName(in.FacilityName); err != nil {
		return nil, err
	}
	if !domain.ValidFacilityType(domain.FacilityType(in.FacilityType)) {
		return nil, &domain.ValidationError{Field: "facility_type", Reason: "facility type must be Hospital, Diagnostic Center or Clinic"}
	}
	if in.FacilityCode != "" {
		if err := validateFacilityCode(in.FacilityCode); err != nil {
			return nil, err
		}
	}
	if in.PacsPort != 0 {
		if err := validatePacsPort(in.PacsPort); err != nil {
			return nil, err
		}
	}
	if in.EmailID != "" {
		if !emailRe.MatchString(in.EmailID) {
			return nil, &domain.ValidationError{Field: "email_id", Reason: "please provide a valid email address"}
		}
	}

	integration := domain.IntegrationPending
	if in.IntegrationStatus != "" {
		if !domain.ValidIntegrationStatus(domain.IntegrationStatus(in.IntegrationStatus)) {
			return nil, &domain.ValidationError{Field: "integration_status", Reason: "integration status must be Connected, Pending or Failed"}
		}
		integration = domain.IntegrationStatus(in.IntegrationStatus)
	}
	status := domain.FacilityActive
	if in.Status != "" {
		if !domain.ValidFacilityStatus(domain.FacilityStatus(in.Status)) {
			return nil, &domain.ValidationError{Field: "status", Reason: "status must be Active, Inactive or Suspended"}
		}
		status = domain.FacilityStatus(in.Status)
	}

	if in.FacilityCode != "" {
		existing, err := s.facilities.FindByCode(ctx, in.FacilityCode, uuid.Nil)
		if err != nil {
			logStorage(s.log, "create facility", err)
			return nil, err
		}
		if existing != nil {
			return nil, &domain.DuplicateFacilityError{Field: "facility_code"}
		}
	}
	existing, err := s.facilities.FindByName(ctx, in.FacilityName, uuid.Nil)
	if err != nil {
		logStorage(s.log, "create facility", err)
		return nil, err
	}
	if existing != nil {
		return nil, &domain.DuplicateFacilityError{Field: "facility_name"}
	}

	f := &domain.Facility{
		ID:                  uuid.New(),
		FacilityName:        in.FacilityName,
		FacilityCode:        in.FacilityCode,
		FacilityType:        domain.FacilityType(in.FacilityType),
		FacilityDescription: in.FacilityDescription,
		AddressLine1:        in.AddressLine1,
		AddressLine2:        in.AddressLine2,
		City:                in.City,
		State:               in.State,
		Country:             in.Country,
		Pincode:             in.Pincode,
		ContactNumber:       in.ContactNumber,
		EmailID:             in.EmailID,
		LetterheadLogo:      in.LetterheadLogo,
		HeaderText:          in.HeaderText,
		FooterText:          in.FooterText,
		PacsAeTitle:         in.PacsAeTitle,
		PacsIPAddress:       in.PacsIPAddress,
		PacsPort:            in.PacsPort,
		RisURL:              in.RisURL,
		IntegrationStatus:   integration,
		Status:              status,
		CreatedBy:           actorID,
	}
	if err := s.facilities.Create(ctx, f); err != nil {
		logStorage(s.log, "create facility", err)
		return nil, err
	}
	s.invalidateStats(ctx)
	return f, nil
}

func (s *FacilityService) Update(ctx context.Context, id uuid.UUID, in UpdateFacilityInput, actorID string) (*domain.Facility, error) {
	f, err := s.facilities.FindByID(ctx, id)
	if err != nil {
		logStorage(s.log, "update facility", err)
		return nil, err
	}
	if f == nil {
		return nil, &domain.NotFoundError{Entity: "facility", ID: id.String()}
	}

	// 唯一性只在字段出现且发生变化时复检，排除自身
	if in.FacilityCode != nil {
		v := strings.TrimSpace(*in.FacilityCode)
		if v != "" {
			if err := validateFacilityCode(v); err != nil {
				return nil, err
			}
		}
		if v != f.FacilityCode && v != "" {
			existing, err := s.facilities.FindByCode(ctx, v, f.ID)
			if err != nil {
				logStorage(s.log, "update facility", err)
				return nil, err
			}
			if existing != nil {
				return nil, &domain.DuplicateFacilityError{Field: "facility_code"}
			}
		}
		f.FacilityCode = v
	}
	if in.FacilityName != nil {
		v := strings.TrimSpace(*in.FacilityName)
		if err := validateFacilityName(v); err != nil {
			return nil, err
		}
		if v != f.FacilityName {
			existing, err := s.facilities.FindByName(ctx, v, f.ID)
			if err != nil {
				logStorage(s.log, "update facility", err)
				return nil, err
			}
			if existing != nil {
				return nil, &domain.DuplicateFacilityError{Field: "facility_name"}
			}
		}
		f.FacilityName = v
	}
	if in.FacilityType != nil {
		if !domain.ValidFacilityType(domain.FacilityType(*in.FacilityType)) {
			return nil, &domain.ValidationError{Field: "facility_type", Reason: "facility type must be Hospital, Diagnostic Center or Clinic"}
		}
		f.FacilityType = domain.FacilityType(*in.FacilityType)
	}
	if in.IntegrationStatus != nil {
		if !domain.ValidIntegrationStatus(domain.IntegrationStatus(*in.IntegrationStatus)) {
			return nil, &domain.ValidationError{Field: "integration_status", Reason: "integration status must be Connected, Pending or Failed"}
		}
		f.IntegrationStatus = domain.IntegrationStatus(*in.IntegrationStatus)
	}
	if in.Status != nil {
		if !domain.ValidFacilityStatus(domain.FacilityStatus(*in.Status)) {
			return nil, &domain.ValidationError{Field: "status", Reason: "status must be Active, Inactive or Suspended"}
		}
		f.Status = domain.FacilityStatus(*in.Status)
	}
	if in.PacsPort != nil {
		if err := validatePacsPort(*in.PacsPort); err != nil {
			return nil, err
		}
		f.PacsPort = *in.PacsPort
	}
	if in.EmailID != nil {
		if *in.EmailID != "" && !emailRe.MatchString(*in.EmailID) {
			return nil, &domain.ValidationError{Field: "email_id", Reason: "please provide a valid email address"}
		}
		f.EmailID = *in.EmailID
	}

	assign(&f.FacilityDescription, in.FacilityDescription)
	assign(&f.AddressLine1, in.AddressLine1)
	assign(&f.AddressLine2, in.AddressLine2)
	assign(&f.City, in.City)
	assign(&f.State, in.State)
	assign(&f.Country, in.Country)
	assign(&f.Pincode, in.Pincode)
	assign(&f.ContactNumber, in.ContactNumber)
	assign(&f.LetterheadLogo, in.LetterheadLogo)
	assign(&f.HeaderText, in.HeaderText)
	assign(&f.FooterText, in.FooterText)
	assign(&f.PacsAeTitle, in.PacsAeTitle)
	assign(&f.PacsIPAddress, in.PacsIPAddress)
	assign(&f.RisURL, in.RisURL)

	f.ModifiedBy = actorID
	if err := s.facilities.Update(ctx, f); err != nil {
		logStorage(s.log, "update facility", err)
		return nil, err
	}
	s.invalidateStats(ctx)
	return f, nil
}

// Delete 硬删，但还有员工引用时整单拒绝，防止孤儿引用
func (s *FacilityService) Delete(ctx context.Context, id uuid.UUID) error {
	f, err := s.facilities.FindByID(ctx, id)
	if err != nil {
		logStorage(s.log, "delete facility", err)
		return err
	}
	if f == nil {
		return &domain.NotFoundError{Entity: "facility", ID: id.String()}
	}
	n, err := s.users.CountByFacility(ctx, id.String())
	if err != nil {
		logStorage(s.log, "delete facility", err)
		return err
	}
	if n > 0 {
		return &domain.FacilityInUseError{Count: n}
	}
	if err := s.facilities.Delete(ctx, id); err != nil {
		logStorage(s.log, "delete facility", err)
		return err
	}
	s.invalidateStats(ctx)
	return nil
}

func (s *FacilityService) Get(ctx context.Context, id uuid.UUID) (*domain.Facility, error) {
	f, err := s.facilities.FindByID(ctx, id)
	if err != nil {
		logStorage(s.log, "get facility", err)
		return nil, err
	}
	if f == nil {
		return nil, &domain.NotFoundError{Entity: "facility", ID: id.String()}
	}
	return f, nil
}

func (s *FacilityService) GetWithAudit(ctx context.Context, id uuid.UUID) (*FacilityWithAudit, error) {
	f, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &FacilityWithAudit{Facility: *f}
	if f.CreatedBy != "" {
		if u, err := s.resolver.ResolveAuditUser(ctx, f.CreatedBy); err == nil {
			out.CreatedByUser = u
		} else if !isNotFound(err) {
			logStorage(s.log, "get facility", err)
			return nil, err
		}
	}
	if f.ModifiedBy != "" {
		if u, err := s.resolver.ResolveAuditUser(ctx, f.ModifiedBy); err == nil {
			out.ModifiedByUser = u
		} else if !isNotFound(err) {
			logStorage(s.log, "get facility", err)
			return nil, err
		}
	}
	return out, nil
}

func (s *FacilityService) List(ctx context.Context, f domain.FacilityFilter, page, limit int) ([]domain.Facility, PageMeta, error) {
	page, limit = normalizePage(page, limit)
	f.Offset = (page - 1) * limit
	f.Limit = limit
	items, total, err := s.facilities.List(ctx, f)
	if err != nil {
		logStorage(s.log, "list facilities", err)
		return nil, PageMeta{}, err
	}
	return items, pageMeta(page, limit, total), nil
}

func (s *FacilityService) ListByType(ctx context.Context, t string) ([]domain.FacilityRef, error) {
	if !domain.ValidFacilityType(domain.FacilityType(t)) {
		return nil, &domain.ValidationError{Field: "facility_type", Reason: "invalid facility type, must be Hospital, Diagnostic Center or Clinic"}
	}
	items, err := s.facilities.ListActiveByType(ctx, domain.FacilityType(t))
	if err != nil {
		logStorage(s.log, "list facilities by type", err)
		return nil, err
	}
	out := make([]domain.FacilityRef, 0, len(items))
	for i := range items {
		out = append(out, items[i].Ref())
	}
	return out, nil
}

// Stats 纯聚合读；配了 redis 就短 TTL 缓存，singleflight 合并回源
func (s *FacilityService) Stats(ctx context.Context) (*domain.FacilityStats, error) {
	if s.cache == nil {
		stats, err := s.facilities.Stats(ctx)
		if err != nil {
			logStorage(s.log, "facility stats", err)
		}
		return stats, err
	}
	stats, err := cache.GetOrLoadJSON[domain.FacilityStats](s.cache, ctx, statsCacheKey, statsCacheTTL,
		func(ctx context.Context) (*domain.FacilityStats, error) {
			return s.facilities.Stats(ctx)
		})
	if err != nil {
		logStorage(s.log, "facility stats", err)
	}
	return stats, err
}

func (s *FacilityService) invalidateStats(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.RDB.Del(ctx, statsCacheKey).Err()
	}
}

func assign(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func isNotFound(err error) bool {
	var nf *domain.NotFoundError
	return errors.As(err, &nf)
}
