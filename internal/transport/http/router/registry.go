package router

import (
	"sort"
	"sync"

	"github.com/gin-gonic/gin"
)

// 模块按需实现其中一个或两个接口：
// PublicModule 挂到 /ris/api 裸分组，ProtectedModule 挂到过了 AuthJWT 的分组。
type PublicModule interface{ MountPublic(*gin.RouterGroup) }
type ProtectedModule interface{ MountProtected(*gin.RouterGroup) }

// 实现该接口可控制挂载顺序（数值越小越先挂），不实现默认 100
type prioritizer interface{ Priority() int }

var (
	mu            sync.RWMutex
	publicMods    []PublicModule
	protectedMods []ProtectedModule
)

// Reset 清空注册表。每次组装引擎前调用，允许同进程里反复构建（测试里常见）
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	publicMods = nil
	protectedMods = nil
}

// Register 统一注册入口，按类型断言分发
func Register(mod any) {
	mu.Lock()
	defer mu.Unlock()
	if m, ok := mod.(PublicModule); ok {
		publicMods = append(publicMods, m)
	}
	if m, ok := mod.(ProtectedModule); ok {
		protectedMods = append(protectedMods, m)
	}
}

func MountAllPublic(g *gin.RouterGroup) {
	mu.RLock()
	mods := append([]PublicModule(nil), publicMods...)
	mu.RUnlock()

	sort.SliceStable(mods, func(i, j int) bool {
		return priorityOf(mods[i]) < priorityOf(mods[j])
	})
	for _, m := range mods {
		m.MountPublic(g)
	}
}

func MountAllProtected(g *gin.RouterGroup) {
	mu.RLock()
	mods := append([]ProtectedModule(nil), protectedMods...)
	mu.RUnlock()

	sort.SliceStable(mods, func(i, j int) bool {
		return priorityOf(mods[i]) < priorityOf(mods[j])
	})
	for _, m := range mods {
		m.MountProtected(g)
	}
}

func priorityOf(v any) int {
	if p, ok := v.(prioritizer); ok {
		return p.Priority()
	}
	return 100
}
