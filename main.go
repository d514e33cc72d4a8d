package main

import (
	"context"
	"os"

	"selene/chat"
	"selene/config"
	"selene/controllers"
	dbpkg "selene/db"
	"selene/models"
	"selene/ratelimit"
	"selene/router"
	"selene/tools"
	"selene/webhooks"
	"selene/workers"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}
	cfg := config.Get(configPath)

	dbpkg.SetConfigurations(cfg)
	database, err := dbpkg.Connect()
	if err != nil {
		log.WithError(err).Fatal("could not connect to database")
	}
	defer database.Close()

	registry, err := webhooks.NewRegistry(cfg.Webhook.Registrations)
	if err != nil {
		log.WithError(err).Fatal("invalid webhook configuration")
	}
	dispatcher := webhooks.NewDispatcher(database, registry)
	log.WithField("registrations", registry.Len()).Info("webhook registry loaded")

	limiter := ratelimit.NewLimiter(cfg.Chat.DailyGenerationQuota)
	store := chat.NewStore(database, cfg.Chat.PreviewMaxLength)
	orchestrator := chat.NewOrchestrator(store, limiter, generateFunc(), dispatcher)
	controllers.SetPipeline(store, orchestrator, limiter, dispatcher)

	workers.NewWebhookProcessor(database, cfg).Start()
	workers.NewTaskScheduler(database, cfg).Start()

	r := gin.Default()
	r.Use(dbpkg.SetDBtoContext(database))
	router.Initialize(r)

	log.WithField("port", cfg.ApiPort).Info("Selene listening")
	if err := r.Run(":" + cfg.ApiPort); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

// generateFunc adapts the OpenAI client to the orchestrator's collaborator
// signature.
func generateFunc() chat.GenerateFunc {
	return func(ctx context.Context, userText string, history []models.Message, assessmentPattern string) (string, error) {
		turns := make([]tools.ChatTurn, 0, len(history))
		for _, m := range history {
			turns = append(turns, tools.ChatTurn{Role: m.Role, Content: m.Content})
		}
		return tools.GenerateAssistantReply(ctx, userText, turns, assessmentPattern)
	}
}
