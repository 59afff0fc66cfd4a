package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HeaderAdminKey 运维接口密钥请求头
const HeaderAdminKey = "X-Admin-Key"

// AdminKeyAuth 运维接口认证，key 为空时接口整体关闭
func AdminKeyAuth(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":    403,
				"message": "运维接口未启用",
			})
			return
		}

		got := c.GetHeader(HeaderAdminKey)
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			abortUnauthorized(c, "运维密钥无效")
			return
		}
		c.Next()
	}
}
