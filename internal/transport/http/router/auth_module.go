package router

import (
	"github.com/gin-gonic/gin"

	"ris-backend/internal/core/auth"
	"ris-backend/internal/domain"
	"ris-backend/internal/service"
	"ris-backend/internal/transport/http/ez"
)

// 登录/登出/当前用户
type authModule struct {
	users *service.UserService
	jwter *auth.JWTer
}

func (m *authModule) Priority() int { return 10 }

type loginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResp struct {
	Token string              `json:"token"`
	User  *domain.UserSummary `json:"user"`
}

func (m *authModule) MountPublic(g *gin.RouterGroup) {
	e := ez.New(g)

	ez.RegisterAction(e, ez.Action[loginReq, loginResp]{
		Method: "POST", Path: "/auth/login", Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *loginReq) (loginResp, error) {
			u, err := m.users.Authenticate(c.Request.Context(), in.Username, in.Password)
			if err != nil {
				return loginResp{}, err
			}
			tok, err := m.jwter.Issue(u.ID, string(u.Role))
			if err != nil {
				return loginResp{}, err
			}
			s := u.Summary()
			return loginResp{Token: tok, User: &s}, nil
		},
	})
}

func (m *authModule) MountProtected(g *gin.RouterGroup) {
	e := ez.New(g)

	ez.RegisterAction(e, ez.Action[struct{}, *domain.User]{
		Method: "GET", Path: "/auth/me", Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.User, error) {
			return m.users.Get(c.Request.Context(), c.GetString("userId"))
		},
	})

	// JWT 无状态，登出只是给前端一个确定的成功响应，由客户端丢弃令牌
	ez.RegisterAction(e, ez.Action[struct{}, gin.H]{
		Method: "POST", Path: "/auth/logout", Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			return gin.H{"loggedOut": true}, nil
		},
	})
}
