package handlers

import (
	"errors"
	"net/http"
	"strings"

	"tickertalk/internal/services"
	"tickertalk/internal/utils"

	"github.com/gin-gonic/gin"
)

const resetLinkInvalid = "That reset link is invalid or has expired."

type ResetHandler struct {
	resets *services.PasswordResetService
}

func NewResetHandler(resets *services.PasswordResetService) *ResetHandler {
	return &ResetHandler{resets: resets}
}

func (h *ResetHandler) ShowRequest(c *gin.Context) {
	Render(c, http.StatusOK, "auth/reset_request.html", nil)
}

// Request answers the same way whether or not the email is registered.
func (h *ResetHandler) Request(c *gin.Context) {
	email := strings.TrimSpace(c.PostForm("email"))
	if email == "" || !strings.Contains(email, "@") {
		Render(c, http.StatusBadRequest, "auth/reset_request.html", gin.H{"Error": "Please enter a valid email address."})
		return
	}
	if err := h.resets.RequestReset(email); err != nil {
		utils.Sugar.Errorw("password reset request", "email", email, "error", err)
		RenderError(c, http.StatusBadGateway, "We could not send the reset email. Please try again later.")
		return
	}
	Render(c, http.StatusOK, "auth/reset_request.html", gin.H{
		"Success": "If an account exists for that email, a reset link has been sent.",
	})
}

func (h *ResetHandler) ShowReset(c *gin.Context) {
	token := c.Param("token")
	if _, err := h.resets.Verify(token); err != nil {
		h.tokenFailed(c, err)
		return
	}
	Render(c, http.StatusOK, "auth/reset_password.html", gin.H{"Token": token})
}

func (h *ResetHandler) Reset(c *gin.Context) {
	token := c.Param("token")
	user, err := h.resets.Reset(token, c.PostForm("password"), c.PostForm("confirm_password"))
	if err != nil {
		var ve *services.ValidationError
		if errors.As(err, &ve) {
			Render(c, http.StatusBadRequest, "auth/reset_password.html", gin.H{"Token": token, "Error": ve.Message})
			return
		}
		h.tokenFailed(c, err)
		return
	}
	utils.Sugar.Infow("password updated via reset link", "user_id", user.ID)
	redirectWithFlash(c, "/login", "Your password has been updated. You can now log in.")
}

func (h *ResetHandler) tokenFailed(c *gin.Context, err error) {
	if errors.Is(err, services.ErrResetTokenInvalid) || errors.Is(err, services.ErrResetTokenExpired) {
		redirectWithFlash(c, "/reset_password", resetLinkInvalid)
		return
	}
	utils.Sugar.Errorw("password reset", "error", err)
	RenderError(c, http.StatusInternalServerError, "Something went wrong, please try again.")
}
