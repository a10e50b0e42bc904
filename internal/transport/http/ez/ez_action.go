package ez

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ris-backend/internal/domain"
	resp "ris-backend/internal/transport/http/response"
)

type EZ struct{ g *gin.RouterGroup }

func New(g *gin.RouterGroup) EZ { return EZ{g: g} }

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"
	BindQuery Binder = "query"
	BindNone  Binder = "none" // 自己从 c.Param / c.Query 取
)

// Action 非 CRUD 接口一行注册：I 入参，O 出参。
// Handler 返回的领域错误在这里统一映射成响应码，不在业务层碰 HTTP。
type Action[I any, O any] struct {
	Method  string // "GET" | "POST" | "PUT" | "DELETE"
	Path    string // 例："/auth/login"、"/facilities/:id"
	Binder  Binder
	Handler func(c *gin.Context, in *I) (O, error)
}

func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		}
		if bindErr != nil {
			c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, bindErr.Error()))
			return
		}

		out, err := a.Handler(c, &in)
		if err != nil {
			code, msg := classify(err)
			c.JSON(http.StatusOK, resp.Error(code, msg))
			return
		}
		c.JSON(http.StatusOK, resp.OK(out))
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default:
		e.g.POST(a.Path, h)
	}
}

// classify 领域错误 → 业务码。StorageError 对外只给一句 internal error，
// 细节只进日志。
func classify(err error) (int, string) {
	var (
		ve  *domain.ValidationError
		di  *domain.DuplicateIdentityError
		df  *domain.DuplicateFacilityError
		nf  *domain.NotFoundError
		fiu *domain.FacilityInUseError
		se  *domain.StorageError
	)
	switch {
	case errors.As(err, &ve):
		return resp.CodeBadRequest, ve.Error()
	case errors.As(err, &di):
		return resp.CodeConflict, di.Error()
	case errors.As(err, &df):
		return resp.CodeConflict, df.Error()
	case errors.As(err, &nf):
		return resp.CodeNotFound, nf.Error()
	case errors.As(err, &fiu):
		return resp.CodeConflict, fiu.Error()
	case errors.Is(err, domain.ErrInvalidCredentials):
		return resp.CodeUnauthorized, err.Error()
	case errors.Is(err, domain.ErrAccountInactive):
		return resp.CodeForbidden, err.Error()
	case errors.As(err, &se):
		return resp.CodeServerError, "internal error"
	default:
		return resp.CodeServerError, err.Error()
	}
}
