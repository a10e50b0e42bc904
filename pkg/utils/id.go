package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewID 生成账号主键：32 位 hex（去掉短横线的 uuid v4）。
// 注意设施主键是原生 uuid，两个 id 域刻意不同构。
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
