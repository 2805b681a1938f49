package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func handleHealthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func handleReadyz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}
