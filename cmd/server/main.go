package main

import (
	"context"
	"net/http"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Didrablian/deceptivemind-sub000/config"
	"github.com/Didrablian/deceptivemind-sub000/crypto"
	"github.com/Didrablian/deceptivemind-sub000/game"
	"github.com/Didrablian/deceptivemind-sub000/logger"
	"github.com/Didrablian/deceptivemind-sub000/migrations"
	"github.com/Didrablian/deceptivemind-sub000/storage"
)

func CreateServer(allowedOrigins []string, h *game.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.Use(func(ctx *gin.Context) {
		origin := ctx.Request.Header.Get("Origin")
		if origin == "" || slices.Contains(allowedOrigins, origin) {
			ctx.Next()
			return
		}
		ctx.JSON(http.StatusForbidden, gin.H{"error": "forbidden-origin"})
		ctx.Abort()
	})

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin"},
	}))

	game.RegisterRoutes(r, h)
	return r
}

func main() {
	log := logger.Setup(config.Envs.LOG_LEVEL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrations.Migrate(config.Envs.POSTGRES_URL); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}

	store, err := storage.NewPostgresStore(ctx, config.Envs.POSTGRES_URL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("could not connect to postgres")
	}
	defer store.Close()

	gen := game.NewWordPoolGenerator(time.Now().UnixNano())
	engine := game.NewEngine(store, gen, crypto.DefaultHasher(), log)
	go engine.RunTicker(ctx, time.Second)

	tickets := crypto.NewTicketManager(config.Envs.JWT_KEY, 24*time.Hour)
	handler := game.NewHandler(engine, tickets, log)

	allowedOrigins := []string{}
	if config.Envs.GIN_MODE == "release" {
		gin.SetMode(gin.ReleaseMode)
		allowedOrigins = append(allowedOrigins, "https://"+config.Envs.FRONTEND_ORIGIN)
		allowedOrigins = append(allowedOrigins, "https://www."+config.Envs.FRONTEND_ORIGIN)
	} else {
		allowedOrigins = append(allowedOrigins, "http://"+config.Envs.FRONTEND_ORIGIN)
	}

	r := CreateServer(allowedOrigins, handler)

	log.Info().Str("port", config.Envs.PORT).Msg("api listening")
	if err := r.Run(":" + config.Envs.PORT); err != nil {
		log.Fatal().Err(err).Msg("could not start server")
	}
}
