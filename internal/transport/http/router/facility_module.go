package router

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ris-backend/internal/domain"
	"ris-backend/internal/service"
	"ris-backend/internal/transport/http/ez"
)

// 机构注册表：读写都要登录
type facilityModule struct {
	facilities *service.FacilityService
}

func (m *facilityModule) Priority() int { return 30 }

type facilityListQ struct {
	Page              int    `form:"page"`
	Limit             int    `form:"limit"`
	Type              string `form:"facility_type"`
	Status            string `form:"status"`
	IntegrationStatus string `form:"integration_status"`
	Search            string `form:"search"`
}

type facilityListResp struct {
	Facilities []domain.Facility `json:"facilities"`
	Pagination service.PageMeta  `json:"pagination"`
}

func parseFacilityID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, &domain.NotFoundError{Entity: "facility", ID: c.Param("id")}
	}
	return id, nil
}

func (m *facilityModule) MountProtected(g *gin.RouterGroup) {
	e := ez.New(g)

	ez.RegisterAction(e, ez.Action[facilityListQ, facilityListResp]{
		Method: "GET", Path: "/facilities", Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *facilityListQ) (facilityListResp, error) {
			f := domain.FacilityFilter{
				Type:              in.Type,
				Status:            in.Status,
				IntegrationStatus: in.IntegrationStatus,
				Search:            in.Search,
			}
			items, meta, err := m.facilities.List(c.Request.Context(), f, in.Page, in.Limit)
			if err != nil {
				return facilityListResp{}, err
			}
			return facilityListResp{Facilities: items, Pagination: meta}, nil
		},
	})

	// 注意先于 /facilities/:id 注册，避免 "stats" 被当成 id
	ez.RegisterAction(e, ez.Action[struct{}, *domain.FacilityStats]{
		Method: "GET", Path: "/facilities/stats/summary", Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.FacilityStats, error) {
			return m.facilities.Stats(c.Request.Context())
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, []domain.FacilityRef]{
		Method: "GET", Path: "/facilities/type/:type", Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.FacilityRef, error) {
			return m.facilities.ListByType(c.Request.Context(), c.Param("type"))
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, *service.FacilityWithAudit]{
		Method: "GET", Path: "/facilities/:id", Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*service.FacilityWithAudit, error) {
			id, err := parseFacilityID(c)
			if err != nil {
				return nil, err
			}
			return m.facilities.GetWithAudit(c.Request.Context(), id)
		},
	})

	ez.RegisterAction(e, ez.Action[service.CreateFacilityInput, *domain.Facility]{
		Method: "POST", Path: "/facilities", Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *service.CreateFacilityInput) (*domain.Facility, error) {
			return m.facilities.Create(c.Request.Context(), *in, c.GetString("userId"))
		},
	})

	ez.RegisterAction(e, ez.Action[service.UpdateFacilityInput, *domain.Facility]{
		Method: "PUT", Path: "/facilities/:id", Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *service.UpdateFacilityInput) (*domain.Facility, error) {
			id, err := parseFacilityID(c)
			if err != nil {
				return nil, err
			}
			return m.facilities.Update(c.Request.Context(), id, *in, c.GetString("userId"))
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, gin.H]{
		Method: "DELETE", Path: "/facilities/:id", Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			id, err := parseFacilityID(c)
			if err != nil {
				return nil, err
			}
			if err := m.facilities.Delete(c.Request.Context(), id); err != nil {
				return nil, err
			}
			return gin.H{"deleted": true}, nil
		},
	})
}
