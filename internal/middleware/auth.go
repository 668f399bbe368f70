package middleware

import (
	"net/http"
	"strings"

	"tickertalk/internal/db"
	"tickertalk/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	CheckUserKey   = "user"
	SessionUserKey = "user_id"
)

// CurrentUser returns the user LoadUser put in the context, or nil.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(CheckUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// WantsJSON reports whether the caller expects a machine-readable reply.
func WantsJSON(c *gin.Context) bool {
	r := c.Request
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.Contains(r.Header.Get("Content-Type"), "application/json") ||
		r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
		strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// AuthRequired aborts with 401 unless LoadUser found a logged-in user.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) != nil {
			c.Next()
			return
		}
		if WantsJSON(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.HTML(http.StatusUnauthorized, "auth/login.html", gin.H{
			"Error":       "Please log in to access this page.",
			"Next":        c.Request.URL.Path,
			"CurrentPath": c.Request.URL.Path,
		})
		c.Abort()
	}
}

// LoadUser retrieves user from session and sets to context
func LoadUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID := session.Get(SessionUserKey)

		if userID != nil {
			var user models.User
			if err := db.DB.First(&user, userID).Error; err == nil {
				c.Set(CheckUserKey, &user)
			} else {
				// user vanished; drop the stale session
				session.Delete(SessionUserKey)
				_ = session.Save()
			}
		}
		c.Next()
	}
}
