package utils

import (
	"time"
)

// GenerateID 生成基于时间戳的ID，也用作未指定时的随机种子
func GenerateID() int64 {
	return time.Now().UnixNano()
}
