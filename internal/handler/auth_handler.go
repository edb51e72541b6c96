package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	gogithub "github.com/google/go-github/v58/github"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	oauthgithub "golang.org/x/oauth2/github"

	"equilibra/internal/auth"
	"equilibra/internal/middleware"
	"equilibra/internal/model"
	"equilibra/internal/repository"
)

const stateCookie = "oauth_state"

type AuthHandler struct {
	users       *repository.UserRepository
	issuer      *auth.TokenIssuer
	oauth       *oauth2.Config
	frontendURL string
}

func NewAuthHandler(users *repository.UserRepository, issuer *auth.TokenIssuer, clientID, clientSecret, redirectURI, frontendURL string) *AuthHandler {
	return &AuthHandler{
		users:  users,
		issuer: issuer,
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       []string{"read:user", "user:email", "repo"},
			Endpoint:     oauthgithub.Endpoint,
		},
		frontendURL: frontendURL,
	}
}

// Login starts the OAuth flow with a random state bound to the browser.
func (h *AuthHandler) Login(c *gin.Context) {
	state := uuid.NewString()
	c.SetCookie(stateCookie, state, 600, "/", "", false, true)
	c.Redirect(http.StatusTemporaryRedirect, h.oauth.AuthCodeURL(state))
}

// Callback completes the OAuth flow: code exchange, profile fetch, user
// upsert, session cookie, redirect back to the frontend.
func (h *AuthHandler) Callback(c *gin.Context) {
	state, err := c.Cookie(stateCookie)
	if err != nil || state == "" || c.Query("state") != state {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "OAuth state mismatch"})
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", false, true)

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing authorization code"})
		return
	}

	token, err := h.oauth.Exchange(c.Request.Context(), code)
	if err != nil {
		log.WithError(err).Warn("oauth code exchange failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Code exchange failed"})
		return
	}

	ghClient := gogithub.NewClient(nil).WithAuthToken(token.AccessToken)
	ghUser, _, err := ghClient.Users.Get(c.Request.Context(), "")
	if err != nil {
		log.WithError(err).Error("github profile fetch failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Profile fetch failed"})
		return
	}

	candidate := &model.User{
		GHID:          strconv.FormatInt(ghUser.GetID(), 10),
		GHUsername:    ghUser.GetLogin(),
		GHAccessToken: token.AccessToken,
		DisplayName:   ghUser.GetName(),
		Email:         ghUser.GetEmail(),
	}
	if candidate.DisplayName == "" {
		candidate.DisplayName = candidate.GHUsername
	}

	user, err := h.users.GetOrCreate(c.Request.Context(), candidate)
	if err != nil {
		log.WithError(err).Error("user upsert failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sign-in failed"})
		return
	}

	session, err := h.issuer.Generate(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session issue failed"})
		return
	}

	c.SetCookie(middleware.SessionCookie, session, 0, "/", "", false, true)
	c.Redirect(http.StatusTemporaryRedirect, h.frontendURL)
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":              strconv.FormatInt(user.ID, 10),
		"gh_username":     user.GHUsername,
		"display_name":    user.DisplayName,
		"email":           user.Email,
		"telegram_linked": user.TelegramChatID != "",
	})
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}
