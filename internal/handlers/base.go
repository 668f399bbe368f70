package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"tickertalk/internal/middleware"
	"tickertalk/internal/services"
	"tickertalk/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const pendingTokenKey = "pending_token"

// Render helper to inject common variables like 'current user'
func Render(c *gin.Context, code int, name string, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}

	if user := middleware.CurrentUser(c); user != nil {
		obj["CurrentUser"] = user
	}
	if _, ok := obj["Flashes"]; !ok {
		obj["Flashes"] = takeFlashes(c)
	}
	obj["CurrentPath"] = c.Request.URL.Path

	c.HTML(code, name, obj)
}

// Error helper
func RenderError(c *gin.Context, code int, message string) {
	if middleware.WantsJSON(c) {
		c.JSON(code, gin.H{"error": message})
		return
	}
	Render(c, code, "error.html", gin.H{"Error": message, "Status": code})
}

// redirectWithFlash stores message for the next page and redirects there.
func redirectWithFlash(c *gin.Context, path, message string) {
	session := sessions.Default(c)
	session.AddFlash(message)
	if err := session.Save(); err != nil {
		utils.Sugar.Warnw("save session", "error", err)
	}
	c.Redirect(http.StatusFound, path)
}

func takeFlashes(c *gin.Context) []string {
	session := sessions.Default(c)
	raw := session.Flashes()
	if len(raw) == 0 {
		return nil
	}
	_ = session.Save()
	out := make([]string, 0, len(raw))
	for _, f := range raw {
		out = append(out, fmt.Sprint(f))
	}
	return out
}

func logIn(c *gin.Context, userID uint) error {
	session := sessions.Default(c)
	session.Delete(pendingTokenKey)
	session.Set(middleware.SessionUserKey, userID)
	return session.Save()
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

var errUploadFailed = errors.New("could not store the image, please try again")

// saveUpload stores the optional image in field through images.
// It returns "" when no file was sent.
func saveUpload(c *gin.Context, field string, images *services.ImageStore) (string, error) {
	file, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}
		return "", err
	}
	if file.Size == 0 {
		return "", nil
	}
	name, err := images.Save(file)
	if err != nil && !errors.Is(err, services.ErrImageType) && !errors.Is(err, services.ErrImageTooLarge) {
		utils.Sugar.Errorw("save upload", "field", field, "error", err)
		return "", errUploadFailed
	}
	return name, err
}

// discardUpload removes an image saved earlier in a request that then failed.
func discardUpload(images *services.ImageStore, name string) {
	if err := images.Remove(name); err != nil {
		utils.Sugar.Warnw("remove orphaned upload", "file", name, "error", err)
	}
}
