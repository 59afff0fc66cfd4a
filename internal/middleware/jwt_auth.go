package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ==================== JWT 配置 ====================

// DefaultAccessTokenTTL 默认 Access Token 有效期
const DefaultAccessTokenTTL = 24 * time.Hour

// ErrEmptySecret 未配置签名密钥
var ErrEmptySecret = errors.New("jwt secret is empty")

// JWTConfig JWT 配置，创建后只读
type JWTConfig struct {
	SecretKey      string        // 签名密钥
	AccessTokenTTL time.Duration // Access Token 有效期
	Issuer         string        // 签发者
}

// NewJWTConfig 创建 JWT 配置，密钥不能为空
func NewJWTConfig(secret, issuer string, ttl time.Duration) (*JWTConfig, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}
	return &JWTConfig{SecretKey: secret, AccessTokenTTL: ttl, Issuer: issuer}, nil
}

// ==================== Claims 定义 ====================

// TenantClaims 租户声明
type TenantClaims struct {
	TenantID int64 `json:"tenant_id"`
	jwt.RegisteredClaims
}

// GenerateAccessToken 为租户签发 Access Token
func GenerateAccessToken(cfg *JWTConfig, tenantID int64) (string, error) {
	if cfg == nil || cfg.SecretKey == "" {
		return "", ErrEmptySecret
	}
	now := time.Now()
	claims := &TenantClaims{
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   "access",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.AccessTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.SecretKey))
}

// ParseToken 解析 Token
func ParseToken(cfg *JWTConfig, tokenString string) (*TenantClaims, error) {
	if cfg == nil || cfg.SecretKey == "" {
		return nil, ErrEmptySecret
	}
	token, err := jwt.ParseWithClaims(tokenString, &TenantClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(cfg.SecretKey), nil
	}, jwt.WithIssuer(cfg.Issuer))

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*TenantClaims); ok && token.Valid {
		if claims.TenantID <= 0 {
			return nil, errors.New("token has no tenant")
		}
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// ==================== Gin 中间件 ====================

const (
	ContextKeyTenantID = "tenant_id"
	ContextKeyClaims   = "claims"
)

// JWTAuth 租户认证中间件
func JWTAuth(cfg *JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "未提供认证信息")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthorized(c, "认证格式错误，应为 Bearer {token}")
			return
		}

		claims, err := ParseToken(cfg, parts[1])
		if err != nil {
			abortUnauthorized(c, "Token 无效或已过期")
			return
		}
		if claims.Subject != "access" {
			abortUnauthorized(c, "Token 类型错误")
			return
		}

		c.Set(ContextKeyTenantID, claims.TenantID)
		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":    401,
		"message": message,
	})
}

// GetTenantID 从 Context 获取租户 ID
func GetTenantID(c *gin.Context) int64 {
	if id, exists := c.Get(ContextKeyTenantID); exists {
		return id.(int64)
	}
	return 0
}
