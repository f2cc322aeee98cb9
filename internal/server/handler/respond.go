package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/azhengyongqin/eval-hub/internal/apperr"
	"github.com/azhengyongqin/eval-hub/internal/server/dto"
)

// respondError 按错误类别映射 HTTP 状态码
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindInvalidState:
		status = http.StatusConflict
	case apperr.KindBadRequest:
		status = http.StatusBadRequest
	}
	_ = c.Error(err)
	c.JSON(status, dto.ErrorResponse{Error: err.Error()})
}
