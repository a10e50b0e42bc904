package router

import (
	"github.com/gin-gonic/gin"

	"ris-backend/internal/domain"
	"ris-backend/internal/service"
	"ris-backend/internal/transport/http/ez"
)

// 用户目录：全部挂在受保护分组
type userModule struct {
	users *service.UserService
}

func (m *userModule) Priority() int { return 20 }

type userListQ struct {
	Page        int    `form:"page"`
	Limit       int    `form:"limit"`
	Role        string `form:"role"`
	Status      string `form:"status"`
	FacilityID  string `form:"facility_id"`
	Search      string `form:"search"`
	WithDeleted bool   `form:"with_deleted"`
}

type userListResp struct {
	Users      []domain.User    `json:"users"`
	Pagination service.PageMeta `json:"pagination"`
}

func (m *userModule) MountProtected(g *gin.RouterGroup) {
	e := ez.New(g)

	ez.RegisterAction(e, ez.Action[userListQ, userListResp]{
		Method: "GET", Path: "/users", Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *userListQ) (userListResp, error) {
			f := domain.UserFilter{
				Role:        in.Role,
				Status:      in.Status,
				FacilityID:  in.FacilityID,
				Search:      in.Search,
				WithDeleted: in.WithDeleted,
			}
			users, meta, err := m.users.List(c.Request.Context(), f, in.Page, in.Limit)
			if err != nil {
				return userListResp{}, err
			}
			return userListResp{Users: users, Pagination: meta}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, *domain.User]{
		Method: "GET", Path: "/users/:id", Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.User, error) {
			return m.users.Get(c.Request.Context(), c.Param("id"))
		},
	})

	ez.RegisterAction(e, ez.Action[service.CreateUserInput, *domain.User]{
		Method: "POST", Path: "/users", Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *service.CreateUserInput) (*domain.User, error) {
			return m.users.Create(c.Request.Context(), *in)
		},
	})

	ez.RegisterAction(e, ez.Action[service.UpdateUserInput, *domain.User]{
		Method: "PUT", Path: "/users/:id", Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *service.UpdateUserInput) (*domain.User, error) {
			return m.users.Update(c.Request.Context(), c.Param("id"), *in)
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, gin.H]{
		Method: "DELETE", Path: "/users/:id", Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			if err := m.users.SoftDelete(c.Request.Context(), c.Param("id")); err != nil {
				return nil, err
			}
			return gin.H{"deleted": true}, nil
		},
	})
}
