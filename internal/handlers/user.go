package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"tickertalk/internal/middleware"
	"tickertalk/internal/services"
	"tickertalk/internal/utils"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	accounts *services.AccountService
	feed     *services.FeedService
	images   *services.ImageStore
}

func NewUserHandler(accounts *services.AccountService, feed *services.FeedService, images *services.ImageStore) *UserHandler {
	return &UserHandler{accounts: accounts, feed: feed, images: images}
}

func (h *UserHandler) Profile(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		RenderError(c, http.StatusNotFound, "User not found.")
		return
	}
	user, err := h.accounts.FindByID(id)
	if errors.Is(err, services.ErrUserNotFound) {
		RenderError(c, http.StatusNotFound, "User not found.")
		return
	}
	if err != nil {
		utils.Sugar.Errorw("load profile", "user_id", id, "error", err)
		RenderError(c, http.StatusInternalServerError, "Could not load the profile.")
		return
	}
	posts, err := h.feed.ListPostsByUser(user.ID)
	if err != nil {
		utils.Sugar.Warnw("load profile posts", "user_id", id, "error", err)
	}

	Render(c, http.StatusOK, "user/profile.html", gin.H{
		"User":  user,
		"Posts": posts,
		"IsMe":  middleware.CurrentUser(c).ID == user.ID,
	})
}

// Update edits the caller's own username, email and picture.
func (h *UserHandler) Update(c *gin.Context) {
	me := middleware.CurrentUser(c)
	id, ok := parseID(c, "id")
	if !ok || id != me.ID {
		RenderError(c, http.StatusForbidden, "You can only edit your own profile.")
		return
	}
	profilePath := fmt.Sprintf("/profile/%d", me.ID)

	picture, err := saveUpload(c, "profile_picture", h.images)
	if err != nil {
		redirectWithFlash(c, profilePath, err.Error())
		return
	}

	oldPicture := me.ProfilePicture
	err = h.accounts.UpdateProfile(me, services.ProfileUpdate{
		Username:       c.PostForm("username"),
		Email:          c.PostForm("email"),
		ProfilePicture: picture,
	})
	var ve *services.ValidationError
	switch {
	case err == nil:
		if picture != "" && picture != oldPicture {
			if err := h.images.Remove(oldPicture); err != nil {
				utils.Sugar.Warnw("remove old picture", "user_id", me.ID, "error", err)
			}
		}
		redirectWithFlash(c, profilePath, "Profile updated.")
	case errors.As(err, &ve):
		discardUpload(h.images, picture)
		redirectWithFlash(c, profilePath, ve.Message)
	case errors.Is(err, services.ErrUsernameTaken):
		discardUpload(h.images, picture)
		redirectWithFlash(c, profilePath, "Username already exists.")
	case errors.Is(err, services.ErrEmailTaken):
		discardUpload(h.images, picture)
		redirectWithFlash(c, profilePath, "An account with that email already exists.")
	default:
		discardUpload(h.images, picture)
		utils.Sugar.Errorw("update profile", "user_id", me.ID, "error", err)
		RenderError(c, http.StatusInternalServerError, "Could not update your profile.")
	}
}
