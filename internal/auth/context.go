package auth

import "github.com/gin-gonic/gin"

const (
	ctxUserID   = "userID"
	ctxUsername = "username"
)

// GetUserID returns the authenticated user's ID or empty string.
func GetUserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// GetUsername returns the authenticated user's display name or empty string.
func GetUsername(c *gin.Context) string {
	return c.GetString(ctxUsername)
}
