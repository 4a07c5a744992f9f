package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/maikschneider/oauth2/internal/auth/credentials"
	"github.com/maikschneider/oauth2/internal/auth/login"
	"github.com/maikschneider/oauth2/internal/logger"
	"github.com/maikschneider/oauth2/internal/session"

	"github.com/gin-gonic/gin"
)

const sessionLifetime = 24 * time.Hour

const loginScopeTTL = 5 * time.Minute

type Handler struct {
	flow         *login.Service
	creds        *credentials.Service
	sessionStore session.Store
}

func NewHandler(
	flow *login.Service,
	creds *credentials.Service,
	sessionStore session.Store,
) *Handler {
	return &Handler{
		flow:         flow,
		creds:        creds,
		sessionStore: sessionStore,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/login", h.oauthLogin)
	r.POST("/auth/login", h.passwordLogin)
	r.POST("/auth/logout", h.logout)

	for _, route := range r.Routes() {
		log.Printf("[ROUTE] %s %s", route.Method, route.Path)
	}
}

// oauthLogin is the single OAuth entry point. The first request (no
// state param) ends in a 303 redirect to the provider; the provider's
// callback lands here again with state and code.
func (h *Handler) oauthLogin(c *gin.Context) {
	scope, ok := h.loginScope(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to establish login scope",
		})
		return
	}

	attempt := login.Attempt{
		Kind:     login.KindLogin,
		Provider: c.Query("oauth-provider"),
		State:    c.Query("state"),
		Code:     c.Query("code"),
	}

	out := h.flow.Login(c.Request.Context(), attempt, scope)

	switch out.Status {
	case login.StatusRedirect:
		// See Other: the callback must come back as a fresh GET.
		c.Redirect(http.StatusSeeOther, out.RedirectURL)

	case login.StatusResolved:
		verdict := h.flow.VerifyAccount(c.Request.Context(), out.Resolved)
		if verdict != login.VerdictPass {
			// No other check in the chain can vouch for an OAuth
			// record, so an inconclusive verdict ends the attempt.
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "authentication failed",
			})
			return
		}
		h.establishSession(c, out.Resolved.Record.UID)

	default:
		// Abstained and rejected attempts look the same from outside.
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "authentication failed",
		})
	}
}

// loginScope returns the session scope binding redirect and callback
// to one browser, minting it on first contact.
func (h *Handler) loginScope(c *gin.Context) (string, bool) {
	if cookie, err := c.Request.Cookie(session.LoginCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}

	id, err := session.GenerateID()
	if err != nil {
		logger.Error("failed to generate login scope id", map[string]any{
			"error": err.Error(),
		})
		return "", false
	}

	session.SetLoginCookie(c.Writer, id, loginScopeTTL)
	return id, true
}

type passwordLoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

func (h *Handler) passwordLogin(c *gin.Context) {
	var req passwordLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	record, err := h.creds.Authenticate(
		c.Request.Context(),
		req.Login,
		req.Password,
	)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	h.establishSession(c, record.UID)
}

func (h *Handler) establishSession(c *gin.Context, uid int64) {
	sessionID, err := session.GenerateID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to create session",
		})
		return
	}

	now := time.Now()
	expiresAt := now.Add(sessionLifetime)

	sess := session.Session{
		SessionID: sessionID,
		UserID:    uid,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}

	if err := h.sessionStore.Create(c.Request.Context(), sess); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to persist session",
		})
		return
	}

	session.SetCookie(c.Writer, sessionID, expiresAt, session.CookieOptions{
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	logger.Info("login succeeded", map[string]any{
		"uid": uid,
		"ip":  c.ClientIP(),
	})

	c.JSON(http.StatusOK, gin.H{
		"status": "authenticated",
	})
}

func (h *Handler) logout(c *gin.Context) {
	cookie, err := c.Request.Cookie(session.CookieName)
	if err == nil && cookie.Value != "" {
		// best-effort
		_ = h.sessionStore.Delete(c.Request.Context(), cookie.Value)
	}

	session.ClearCookie(c.Writer, session.CookieOptions{
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	// Idempotent response
	c.Status(http.StatusNoContent)
}
