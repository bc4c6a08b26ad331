package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/agencyhq/agencysite/internal/core/auth"
)

const (
	ContextIPAddress = "ip_address"
	ContextUserAgent = "user_agent"
)

// ClientInfo records the caller's address and user agent for session
// bookkeeping and request logs.
func ClientInfo() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Proxies put the original client first in X-Forwarded-For.
		ipAddress := c.GetHeader("X-Forwarded-For")
		if ipAddress == "" {
			ipAddress = c.GetHeader("X-Real-IP")
		}
		if ipAddress == "" {
			ipAddress = c.ClientIP()
		}
		if idx := strings.Index(ipAddress, ","); idx != -1 {
			ipAddress = strings.TrimSpace(ipAddress[:idx])
		}

		c.Set(ContextIPAddress, ipAddress)
		c.Set(ContextUserAgent, c.GetHeader("User-Agent"))
		c.Next()
	}
}

func GetIPAddress(c *gin.Context) string {
	return c.GetString(ContextIPAddress)
}

func GetUserAgent(c *gin.Context) string {
	return c.GetString(ContextUserAgent)
}

// GetClient returns the login origin recorded by ClientInfo.
func GetClient(c *gin.Context) auth.Client {
	return auth.Client{UserAgent: GetUserAgent(c), IPAddress: GetIPAddress(c)}
}
