package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hanksha/camping-booking-backend/discord"
)

type DiscordAuthenticator interface {
	GuildMemberResolver
	GetOAuth2Token(ctx context.Context, code string) (*discord.OAuthToken, error)
}

type DiscordHandler struct {
	client      DiscordAuthenticator
	adminRoleID string
}

func NewDiscordHandler(client DiscordAuthenticator, adminRoleID string) *DiscordHandler {
	return &DiscordHandler{
		client:      client,
		adminRoleID: adminRoleID,
	}
}

func (h *DiscordHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/user/info", DiscordAuth(h.client, h.adminRoleID), h.GetUserInfo)
	rg.GET("/oauth/callback", h.OAuthCallback)
}

func (h *DiscordHandler) GetUserInfo(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, currentActor(c))
}

func (h *DiscordHandler) OAuthCallback(c *gin.Context) {
	code := strings.TrimSpace(c.Query("code"))

	if len(code) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code cannot be empty"})
		return
	}

	token, err := h.client.GetOAuth2Token(c.Request.Context(), code)

	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get oauth2 token"})
		return
	}

	c.IndentedJSON(http.StatusOK, token)
}
