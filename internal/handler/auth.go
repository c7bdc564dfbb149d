package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"clubhub/internal/apperr"
	"clubhub/internal/auth"
	"clubhub/internal/users"
)

func (h *Handler) register(c *gin.Context) {
	var in users.Registration
	if !h.bind(c, &in) {
		return
	}
	u, err := h.Users.Register(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var in loginRequest
	if !h.bind(c, &in) {
		return
	}
	ctx := c.Request.Context()
	u, err := h.Users.Authenticate(ctx, strings.TrimSpace(in.Username), in.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	tok, err := h.Sessions.Start(ctx, u.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	maxAge := int(tok.ExpiresAt.Sub(h.Now()).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, tok.Value, maxAge, "/", "", h.SecureCookie, true)
	c.JSON(http.StatusOK, gin.H{
		"detail":     "Login successful",
		"user":       u,
		"token":      tok.Value,
		"expires_at": tok.ExpiresAt,
	})
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.Sessions.End(c.Request.Context(), auth.CurrentSession(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, "", -1, "/", "", h.SecureCookie, true)
	detail(c, http.StatusOK, "Logout successful")
}

func (h *Handler) profile(c *gin.Context) {
	u, err := h.Users.Profile(c.Request.Context(), auth.CurrentUser(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) updateProfile(c *gin.Context) {
	var in users.ProfileInput
	if !h.bind(c, &in) {
		return
	}
	u, err := h.Users.UpdateProfile(c.Request.Context(), auth.CurrentUser(c).ID, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) changePassword(c *gin.Context) {
	var in users.PasswordChange
	if !h.bind(c, &in) {
		return
	}
	if err := h.Users.ChangePassword(c.Request.Context(), auth.CurrentUser(c).ID, in); err != nil {
		h.fail(c, err)
		return
	}
	detail(c, http.StatusOK, "Password updated successfully")
}

func (h *Handler) uploadAvatar(c *gin.Context) {
	url, ok := h.upload(c)
	if !ok {
		return
	}
	u, err := h.Users.SetAvatar(c.Request.Context(), auth.CurrentUser(c).ID, url)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// upload accepts either a multipart "file" field or a JSON body
// {"data": "<base64 data URL>"} and returns the stored image URL.
func (h *Handler) upload(c *gin.Context) (string, bool) {
	if h.Media == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "image storage not configured"})
		return "", false
	}
	ctx := c.Request.Context()
	var (
		url string
		err error
	)
	if strings.Contains(c.ContentType(), "multipart/form-data") {
		file, header, ferr := c.Request.FormFile("file")
		if ferr != nil {
			h.fail(c, apperr.Field("file", "file field required"))
			return "", false
		}
		defer file.Close()
		data, ferr := io.ReadAll(file)
		if ferr != nil {
			h.fail(c, apperr.Field("file", "could not read file"))
			return "", false
		}
		res, uerr := h.Media.UploadBytes(ctx, data, header.Filename)
		if uerr == nil {
			url = res.SecureURL
		}
		err = uerr
	} else {
		var body struct {
			Data string `json:"data" binding:"required"`
		}
		if !h.bind(c, &body) {
			return "", false
		}
		res, uerr := h.Media.UploadBase64(ctx, body.Data)
		if uerr == nil {
			url = res.SecureURL
		}
		err = uerr
	}
	if err != nil {
		h.Logger.Error("image upload failed", "err", err.Error())
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "image upload failed"})
		return "", false
	}
	return url, true
}
