package handlers

import (
	"errors"
	"net/http"

	"tickertalk/internal/middleware"
	"tickertalk/internal/services"
	"tickertalk/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	accounts *services.AccountService
	verify   *services.VerificationService
	images   *services.ImageStore
}

func NewAuthHandler(accounts *services.AccountService, verify *services.VerificationService, images *services.ImageStore) *AuthHandler {
	return &AuthHandler{accounts: accounts, verify: verify, images: images}
}

func (h *AuthHandler) ShowLogin(c *gin.Context) {
	if middleware.CurrentUser(c) != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}
	Render(c, http.StatusOK, "auth/login.html", nil)
}

func (h *AuthHandler) Login(c *gin.Context) {
	identifier := c.PostForm("username")
	password := c.PostForm("password")

	user, err := h.accounts.Authenticate(identifier, password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		Render(c, http.StatusUnauthorized, "auth/login.html", gin.H{
			"Error":    "Incorrect username or password.",
			"Username": identifier,
		})
		return
	}
	if err != nil {
		utils.Sugar.Errorw("login lookup failed", "error", err)
		RenderError(c, http.StatusInternalServerError, "Something went wrong, please try again.")
		return
	}

	if h.accounts.NeedsReverification(user) {
		pending := &services.Pending{Kind: services.PendingLogin, UserID: user.ID, Email: user.Email}
		h.startVerification(c, pending, user.Email, user.FullName())
		return
	}

	if err := h.accounts.RecordLogin(user); err != nil {
		utils.Sugar.Errorw("record login", "user_id", user.ID, "error", err)
	}
	if err := logIn(c, user.ID); err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not start your session.")
		return
	}
	utils.Sugar.Infow("user logged in", "user_id", user.ID)
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) ShowRegister(c *gin.Context) {
	if middleware.CurrentUser(c) != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}
	Render(c, http.StatusOK, "auth/register.html", nil)
}

func (h *AuthHandler) Register(c *gin.Context) {
	reg := services.Registration{
		FirstName: c.PostForm("first_name"),
		LastName:  c.PostForm("last_name"),
		Username:  c.PostForm("username"),
		Email:     c.PostForm("email"),
		Password:  c.PostForm("password"),
	}
	reg.Normalize()

	form := gin.H{
		"FirstName": reg.FirstName,
		"LastName":  reg.LastName,
		"Username":  reg.Username,
		"Email":     reg.Email,
	}
	fail := func(code int, message string) {
		form["Error"] = message
		Render(c, code, "auth/register.html", form)
	}

	if err := h.accounts.ValidateRegistration(reg); err != nil {
		var ve *services.ValidationError
		switch {
		case errors.As(err, &ve):
			fail(http.StatusBadRequest, ve.Message)
		case errors.Is(err, services.ErrUsernameTaken):
			fail(http.StatusConflict, "Username already exists.")
		case errors.Is(err, services.ErrEmailTaken):
			fail(http.StatusConflict, "An account with that email already exists.")
		default:
			utils.Sugar.Errorw("validate registration", "error", err)
			RenderError(c, http.StatusInternalServerError, "Something went wrong, please try again.")
		}
		return
	}

	picture, err := saveUpload(c, "profile_picture", h.images)
	if err != nil {
		fail(http.StatusBadRequest, err.Error())
		return
	}
	hash, err := utils.HashPassword(reg.Password)
	if err != nil {
		discardUpload(h.images, picture)
		utils.Sugar.Errorw("hash password", "error", err)
		RenderError(c, http.StatusInternalServerError, "Something went wrong, please try again.")
		return
	}

	pending := &services.Pending{
		Kind:           services.PendingSignup,
		FirstName:      reg.FirstName,
		LastName:       reg.LastName,
		Username:       reg.Username,
		Email:          reg.Email,
		PasswordHash:   hash,
		ProfilePicture: picture,
	}
	if !h.startVerification(c, pending, reg.Email, reg.FirstName+" "+reg.LastName) {
		discardUpload(h.images, picture)
	}
}

// startVerification emails a code and sends the browser to the code form.
// It reports false when the response is an error page.
func (h *AuthHandler) startVerification(c *gin.Context, p *services.Pending, email, name string) bool {
	session := sessions.Default(c)
	if old, ok := session.Get(pendingTokenKey).(string); ok {
		_ = h.verify.Cancel(c.Request.Context(), old)
	}

	token, err := h.verify.Begin(c.Request.Context(), p, email, name)
	if err != nil {
		utils.Sugar.Errorw("start verification", "kind", p.Kind, "email", email, "error", err)
		RenderError(c, http.StatusBadGateway, "We could not send the verification email. Please try again later.")
		return false
	}

	session.Set(pendingTokenKey, token)
	session.AddFlash("A verification code has been sent to " + email + ".")
	if err := session.Save(); err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not start your session.")
		return false
	}
	c.Redirect(http.StatusFound, "/verify")
	return true
}

func (h *AuthHandler) ShowVerify(c *gin.Context) {
	token, _ := sessions.Default(c).Get(pendingTokenKey).(string)
	p, err := h.verify.Peek(c.Request.Context(), token)
	if err != nil {
		redirectWithFlash(c, "/login", "Your verification request has expired. Please start again.")
		return
	}
	Render(c, http.StatusOK, "auth/verify.html", gin.H{"Email": p.Email, "Kind": string(p.Kind)})
}

func (h *AuthHandler) Verify(c *gin.Context) {
	session := sessions.Default(c)
	token, _ := session.Get(pendingTokenKey).(string)

	p, err := h.verify.Confirm(c.Request.Context(), token, c.PostForm("code"))
	switch {
	case errors.Is(err, services.ErrCodeMismatch):
		Render(c, http.StatusBadRequest, "auth/verify.html", gin.H{"Error": "Incorrect verification code. Please try again."})
		return
	case errors.Is(err, services.ErrTooManyAttempts), errors.Is(err, services.ErrPendingNotFound):
		session.Delete(pendingTokenKey)
		redirectWithFlash(c, "/login", err.Error())
		return
	case err != nil:
		utils.Sugar.Errorw("confirm verification", "error", err)
		RenderError(c, http.StatusInternalServerError, "Something went wrong, please try again.")
		return
	}

	switch p.Kind {
	case services.PendingSignup:
		user, err := h.accounts.CreateFromPending(p)
		if errors.Is(err, services.ErrUsernameTaken) || errors.Is(err, services.ErrEmailTaken) {
			discardUpload(h.images, p.ProfilePicture)
			session.Delete(pendingTokenKey)
			redirectWithFlash(c, "/register", "That username or email was taken in the meantime. Please register again.")
			return
		}
		if err != nil {
			utils.Sugar.Errorw("create user", "username", p.Username, "error", err)
			RenderError(c, http.StatusInternalServerError, "Could not create your account.")
			return
		}
		utils.Sugar.Infow("user registered", "user_id", user.ID, "username", user.Username)
		if err := logIn(c, user.ID); err != nil {
			RenderError(c, http.StatusInternalServerError, "Could not start your session.")
			return
		}
		redirectWithFlash(c, "/", "Account successfully created!")

	case services.PendingLogin:
		user, err := h.accounts.FindByID(p.UserID)
		if err != nil {
			session.Delete(pendingTokenKey)
			redirectWithFlash(c, "/login", "Your account could not be found.")
			return
		}
		if err := h.accounts.RecordLogin(user); err != nil {
			utils.Sugar.Errorw("record login", "user_id", user.ID, "error", err)
		}
		if err := logIn(c, user.ID); err != nil {
			RenderError(c, http.StatusInternalServerError, "Could not start your session.")
			return
		}
		utils.Sugar.Infow("user logged in after verification", "user_id", user.ID)
		c.Redirect(http.StatusFound, "/")

	default:
		RenderError(c, http.StatusBadRequest, "Unknown verification request.")
	}
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	if token, ok := session.Get(pendingTokenKey).(string); ok {
		_ = h.verify.Cancel(c.Request.Context(), token)
	}
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	_ = session.Save()
	c.Redirect(http.StatusFound, "/login")
}
