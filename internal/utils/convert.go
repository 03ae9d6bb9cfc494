package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GenerateUUID 生成实体ID
func GenerateUUID() string {
	return uuid.New().String()
}

// StringToInt 将字符串转换为整数，出错时返回默认值0
func StringToInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}

// ParsePaginationParams 解析分页参数
func ParsePaginationParams(ctx *gin.Context) (int, int, error) {
	page, err := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(ctx.DefaultQuery("page_size", "10"))
	if err != nil || size < 1 || size > 100 {
		size = 10
	}
	return page, size, nil
}
