package middleware

import (
	"bytes"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/azhengyongqin/eval-hub/internal/logger"
)

const (
	// MaxBodyLogSize 最大记录的请求/响应体大小（字节）
	MaxBodyLogSize = 4096
)

// responseWriter 包装 gin.ResponseWriter，在响应发出前截留前 4KB 内容，
// 5xx 时把响应体一并写进日志方便排查
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
	size int
}

func (w *responseWriter) Write(b []byte) (int, error) {
	size, err := w.ResponseWriter.Write(b)
	w.size += size
	if w.body.Len()+len(b) <= MaxBodyLogSize {
		w.body.Write(b)
	}
	return size, err
}

// LoggingMiddleware 记录请求日志
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID, _ := c.Get("request_id")

		// 优先使用路由模板，避免 task_id 等参数把日志打散
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		// 读取请求体（仅对写请求且体积较小时记录）
		var requestBody string
		if c.Request.Body != nil && (c.Request.Method == "POST" || c.Request.Method == "PUT" || c.Request.Method == "PATCH") {
			bodyBytes, err := io.ReadAll(c.Request.Body)
			if err == nil {
				// 恢复请求体，后续处理器还要读
				c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

				if len(bodyBytes) > 0 && len(bodyBytes) <= MaxBodyLogSize {
					requestBody = string(bodyBytes)
				} else if len(bodyBytes) > MaxBodyLogSize {
					requestBody = string(bodyBytes[:MaxBodyLogSize]) + "... (truncated)"
				}
			}
		}

		blw := &responseWriter{
			ResponseWriter: c.Writer,
			body:           bytes.NewBufferString(""),
		}
		c.Writer = blw

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		var logEvent *zerolog.Event
		switch {
		case status >= 500:
			logEvent = logger.L.Error()
		case status >= 400:
			logEvent = logger.L.Warn()
		default:
			logEvent = logger.L.Info()
		}

		if requestID != nil {
			logEvent = logEvent.Interface("request_id", requestID)
		}
		logEvent = logEvent.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("duration(ms)", duration).
			Int("response_size", blw.size).
			Str("client_ip", c.ClientIP())

		if c.Request.URL.RawQuery != "" {
			logEvent = logEvent.Str("query", c.Request.URL.RawQuery)
		}
		if requestBody != "" {
			logEvent = logEvent.Str("request_body", requestBody)
		}
		if len(c.Errors) > 0 {
			logEvent = logEvent.Str("errors", c.Errors.String())
		}
		if status >= 500 && blw.body.Len() > 0 {
			logEvent = logEvent.Str("response_body", blw.body.String())
		}

		logEvent.Msg("HTTP 请求")
	}
}

// GetRequestID 从上下文中获取请求 ID
func GetRequestID(c *gin.Context) string {
	if requestID, exists := c.Get("request_id"); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return ""
}
