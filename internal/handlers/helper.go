package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
)

func ParseStringIDParam(c *gin.Context, param string) string {
	return strings.TrimSpace(c.Param(param))
}
