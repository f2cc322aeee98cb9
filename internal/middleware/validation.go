package middleware

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
)

const (
	// MaxPayloadSize 最大 payload 大小（2MB）
	MaxPayloadSize = 2 * 1024 * 1024
)

var (
	// TaskIDRegex TaskID 正则（字母数字连字符，1-128字符）
	TaskIDRegex = regexp.MustCompile(`^[a-zA-Z0-9-]{1,128}$`)

	// ProjectIDRegex 项目 ID 正则（字母数字下划线连字符，1-64字符）
	ProjectIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)
)

// PayloadSizeLimit Payload 大小限制中间件
func PayloadSizeLimit(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "请求体过大，最大允许 2MB",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// ValidateTaskID 验证 Task ID
func ValidateTaskID(taskID string) bool {
	return TaskIDRegex.MatchString(taskID)
}

// ValidateProjectID 验证项目 ID
func ValidateProjectID(projectID string) bool {
	return ProjectIDRegex.MatchString(projectID)
}

// ValidateTaskIDParam Gin 中间件：验证路径参数中的 task_id
func ValidateTaskIDParam() gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID := c.Param("task_id")
		if taskID == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "task_id 参数缺失",
			})
			c.Abort()
			return
		}

		if !ValidateTaskID(taskID) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "task_id 格式无效，必须是1-128个字母、数字或连字符",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// CORSMiddleware CORS 中间件（内部系统可选）
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
