package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	bk "github.com/hanksha/camping-booking-backend/booking"
	"github.com/hanksha/camping-booking-backend/discord"
)

const actorKey = "actor"

type GuildMemberResolver interface {
	GetGuildMember(ctx context.Context, accessToken string) (*discord.Member, error)
}

// DiscordAuth resolves the accesstoken header to a guild member and stores
// the acting user in the context. Members of adminRoleID act as admins.
func DiscordAuth(discordClient GuildMemberResolver, adminRoleID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		accessToken := c.GetHeader("accesstoken")

		if len(accessToken) == 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authentication"})
			c.Abort()
			return
		}

		member, err := discordClient.GetGuildMember(c.Request.Context(), accessToken)

		if err != nil {
			c.Error(err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authentication"})
			c.Abort()
			return
		}

		role := bk.RoleUser

		if member.HasRole(adminRoleID) {
			role = bk.RoleAdmin
		}

		c.Set(actorKey, bk.Actor{
			ID:       member.User.ID,
			Username: member.User.Username,
			Role:     role,
		})
	}
}

func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentActor(c).IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
			c.Abort()
			return
		}
	}
}

func currentActor(c *gin.Context) bk.Actor {
	return c.MustGet(actorKey).(bk.Actor)
}
