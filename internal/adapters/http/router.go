package http

import (
	"context"
	"net/http"

	"github.com/dkeye/Lobby/internal/adapters/signal"
	"github.com/dkeye/Lobby/internal/app/orch"
	"github.com/dkeye/Lobby/internal/config"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	clientTokenKey = "client_token"
	tokenMaxAge    = 3600 * 24 * 7
)

// ClientTokenMiddleware gives every browser a stable token kept in the
// cookie session and exposes it as "client_token".
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessions.Default(c)
		token, _ := s.Get(clientTokenKey).(string)
		if token == "" {
			token = uuid.NewString()
			s.Set(clientTokenKey, token)
			if err := s.Save(); err != nil {
				log.Error().Err(err).Str("module", "adapters.http").Msg("save session")
			}
		}
		c.Set(clientTokenKey, token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	secret := cfg.Secret
	if secret == "" {
		secret = uuid.NewString()
		log.Warn().Str("module", "adapters.http").Msg("no secret configured, client tokens will not survive a restart")
	}
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{Path: "/", MaxAge: tokenMaxAge, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions("LobbySessions", store))
	r.Use(ClientTokenMiddleware())

	h := &LobbyHandlers{Orch: o}
	ws := signal.NewSignalWSController(o, signal.Options{ReadLimit: cfg.ReadLimit, PingPeriod: cfg.PingPeriod})

	r.GET("/healthz", h.Health)

	api := r.Group("/api")
	lobbies := api.Group("/lobbies")
	lobbies.POST("", h.Create)
	lobbies.GET("", h.List)
	lobbies.GET("/:code", h.Preview)
	lobbies.GET("/:code/snapshot", h.Snapshot)
	lobbies.POST("/:code/join", h.Join)
	lobbies.POST("/:code/leave", h.Leave)
	lobbies.POST("/:code/start", h.Start)
	lobbies.POST("/:code/end", h.End)
	lobbies.POST("/:code/members/:id/result", h.Result)

	api.GET("/ws/lobby", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("sid", c.GetString(clientTokenKey)).Msg("ws lobby endpoint hit")
		ws.HandleSignal(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")
	return r
}
