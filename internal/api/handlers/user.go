package handlers

import (
	"github.com/gin-gonic/gin"
)

// UserIDKey is the gin context key holding the caller's user ID
const UserIDKey = "userID"

// UserIDHeader is set by the auth proxy in front of the server
const UserIDHeader = "X-User-ID"

// currentUser returns the caller set by the identity middleware
func currentUser(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
