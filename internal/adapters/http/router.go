// Package http exposes the operator-facing configuration surface: token
// rotation and a health probe. Bot commands never come through here.
package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/portald/internal/app"
	"github.com/dkeye/portald/internal/config"
	"github.com/dkeye/portald/internal/domain"
)

// TokenSaver persists a rotated bot token. Implemented by config.Config.
type TokenSaver interface {
	SaveToken(token string) error
}

// PortalService creates and deletes portals. Implemented by
// app.PortalManager.
type PortalService interface {
	Create(ctx context.Context, guild domain.GuildID, names app.PortalNames) (domain.Portal, error)
	Delete(ctx context.Context, guild domain.GuildID) error
}

// botToken accepts the platform's three dot-separated segments shape.
func botToken(fl validator.FieldLevel) bool {
	parts := strings.Split(fl.Field().String(), ".")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

type tokenRequest struct {
	Token string `json:"token" binding:"required,bottoken"`
}

func SetupRouter(cfg *config.Config, saver TokenSaver, portals PortalService) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("bottoken", botToken)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	saveToken := func(c *gin.Context) {
		var req tokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Msg("bot token validation error")
			c.JSON(http.StatusBadRequest, gin.H{"error": "bot token is invalid, please check it and try send again"})
			return
		}
		if err := saver.SaveToken(req.Token); err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Msg("save token")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save token"})
			return
		}
		log.Info().Str("module", "adapters.http").Str("request_id", c.GetString("request_id")).Msg("token saved, restart to apply")
		c.Status(http.StatusOK)
	}
	api.POST("/config/token", saveToken)
	api.PUT("/config/token", saveToken)

	api.POST("/portal/:guild", func(c *gin.Context) {
		var req struct {
			Trigger  string `json:"trigger"`
			Settings string `json:"settings"`
			Category string `json:"category"`
		}
		// Body is optional; missing names fall back to defaults.
		_ = c.ShouldBindJSON(&req)
		guild := domain.GuildID(c.Param("guild"))
		portal, err := portals.Create(c.Request.Context(), guild, app.PortalNames{
			Trigger:  req.Trigger,
			Settings: req.Settings,
			Category: req.Category,
		})
		switch {
		case errors.Is(err, app.ErrPortalExists):
			c.JSON(http.StatusConflict, gin.H{"error": "private rooms already created"})
		case errors.Is(err, app.ErrInconsistent):
			c.JSON(http.StatusConflict, gin.H{"error": "portal state inconsistent, try again"})
		case err != nil:
			log.Error().Err(err).Str("module", "adapters.http").Str("guild", string(guild)).Msg("create portal")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create portal"})
		default:
			c.JSON(http.StatusCreated, gin.H{
				"guild_id":            portal.GuildID,
				"category_id":         portal.CategoryID,
				"trigger_channel_id":  portal.TriggerChannelID,
				"settings_channel_id": portal.SettingsChannelID,
			})
		}
	})

	api.DELETE("/portal/:guild", func(c *gin.Context) {
		guild := domain.GuildID(c.Param("guild"))
		err := portals.Delete(c.Request.Context(), guild)
		switch {
		case errors.Is(err, app.ErrNoPortal):
			c.JSON(http.StatusNotFound, gin.H{"error": "no portal for guild"})
		case err != nil:
			log.Error().Err(err).Str("module", "adapters.http").Str("guild", string(guild)).Msg("delete portal")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete portal"})
		default:
			c.Status(http.StatusOK)
		}
	})

	return r
}
