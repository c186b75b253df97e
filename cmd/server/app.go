package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	swagger "github.com/gofiber/swagger"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/artem13815/cvchat/docs"

	httpapi "github.com/artem13815/cvchat/api/http"
	"github.com/artem13815/cvchat/api/http/handlers"
	"github.com/artem13815/cvchat/pkg/auth"
	"github.com/artem13815/cvchat/pkg/chat"
	"github.com/artem13815/cvchat/pkg/config"
	"github.com/artem13815/cvchat/pkg/cv"
	"github.com/artem13815/cvchat/pkg/health"
	"github.com/artem13815/cvchat/pkg/health/checkers"
	"github.com/artem13815/cvchat/pkg/llm"
	"github.com/artem13815/cvchat/pkg/llm/langchain"
	"github.com/artem13815/cvchat/pkg/llm/openrouter"
	"github.com/artem13815/cvchat/pkg/prompt"
	pgrepo "github.com/artem13815/cvchat/pkg/repository/postgres"
	"github.com/artem13815/cvchat/pkg/security/jwt"
	"github.com/artem13815/cvchat/pkg/storage/postgres"
	"github.com/artem13815/cvchat/pkg/tools"
	"github.com/artem13815/cvchat/pkg/turn"
)

type app struct {
	cfg   config.Config
	log   *zap.SugaredLogger
	fiber *fiber.App
	pool  *pgxpool.Pool
	redis *redis.Client
}

type stores struct {
	users    auth.UserRepository
	convs    chat.ConversationRepository
	messages chat.Store
	cvs      cv.Store
}

// newApp wires dependencies. Without DATABASE_URL everything lives in memory;
// without REDIS_URL the turn guard is process-local.
func newApp(ctx context.Context, cfg config.Config, log *zap.SugaredLogger) (*app, error) {
	a := &app{cfg: cfg, log: log}
	var checks []health.Checker

	st := stores{
		users:    auth.NewMemoryUsers(),
		convs:    chat.NewMemoryConversations(),
		messages: chat.NewMemoryStore(),
		cvs:      cv.NewMemoryStore(),
	}
	if cfg.DatabaseURL != "" {
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		a.pool = pool
		if err := postgres.Migrate(ctx, pool, log); err != nil {
			a.close()
			return nil, err
		}
		st = stores{
			users:    pgrepo.NewUserRepository(pool),
			convs:    pgrepo.NewConversationRepository(pool),
			messages: pgrepo.NewMessageRepository(pool),
			cvs:      pgrepo.NewCVRepository(pool),
		}
		checks = append(checks, checkers.NewPostgresChecker(pool))
	} else {
		log.Warn("DATABASE_URL is not set: using in-memory storage, data is lost on restart")
	}

	var guard turn.Guard = turn.NewMemoryGuard()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		a.redis = redis.NewClient(opts)
		guard = turn.NewRedisGuard(a.redis, cfg.Turn.LockTTL, log)
		checks = append(checks, checkers.NewRedisChecker(a.redis))
	}

	completer, lister, err := newLLM(cfg.LLM)
	if err != nil {
		a.close()
		return nil, err
	}

	registry, err := tools.NewDefaultRegistry(st.cvs)
	if err != nil {
		a.close()
		return nil, err
	}
	promptCfg, err := loadPrompt(cfg.Prompt)
	if err != nil {
		a.close()
		return nil, err
	}

	model := cfg.LLM.Model
	if model == "" {
		model = openrouter.DefaultModel
	}
	orchestrator := turn.New(turn.Deps{
		Messages: st.messages,
		CV:       st.cvs,
		Prompts:  prompt.NewBuilder(promptCfg, registry, cfg.Prompt.Locale),
		LLM:      completer,
		Tools:    registry,
		Guard:    guard,
		Log:      log,
	}, turn.Config{
		Model:         model,
		HistoryWindow: cfg.Turn.HistoryWindow,
		MaxRoundTrips: cfg.Turn.MaxRoundTrips,
		CallTimeout:   cfg.LLM.Timeout,
	})

	jwtGen := jwt.NewGenerator(cfg.JWTSecret, cfg.JWTIssuer, time.Duration(cfg.JWTTTLMinutes)*time.Minute)

	a.fiber = fiber.New(fiber.Config{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: writeTimeout(cfg),
	})
	httpapi.Register(a.fiber, httpapi.Handlers{
		Auth:          handlers.NewAuthHandler(auth.NewAuthService(st.users, jwtGen)),
		Health:        handlers.NewHealthHandler(health.NewService(checks...)),
		Conversations: handlers.NewConversationHandler(st.convs, st.messages, orchestrator, model),
		CV:            handlers.NewCVHandler(st.convs, st.cvs),
		Models:        handlers.NewModelsHandler(lister),
	}, jwt.NewAuthMiddleware(cfg.JWTSecret, cfg.JWTIssuer))

	// Swagger UI
	a.fiber.Get("/swagger/*", swagger.HandlerDefault)
	return a, nil
}

// newLLM picks the completion backend. The lister is nil for providers that
// cannot enumerate models.
// writeTimeout covers a whole turn: every completion round trip plus the
// fallback reply. Zero round trips means the orchestrator default.
func writeTimeout(cfg config.Config) time.Duration {
	trips := cfg.Turn.MaxRoundTrips
	if trips <= 0 {
		trips = turn.DefaultMaxRoundTrips
	}
	return time.Duration(trips+1) * cfg.LLM.Timeout
}

func newLLM(cfg config.LLMConfig) (llm.Completer, llm.ModelLister, error) {
	switch cfg.Provider {
	case "", "openrouter":
		c := openrouter.New(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.AppTitle, cfg.Referer)
		return c, c, nil
	case "langchain":
		c, err := langchain.New(cfg.APIKey, cfg.BaseURL, cfg.Model)
		if err != nil {
			return nil, nil, fmt.Errorf("langchain client: %w", err)
		}
		return c, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.Provider)
}

func loadPrompt(cfg config.PromptConfig) (prompt.Config, error) {
	if cfg.Path == "" {
		return prompt.DefaultConfig()
	}
	return prompt.LoadConfig(cfg.Path)
}

func (a *app) serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.log.Infow("HTTP server listening", "port", a.cfg.Port)
		errCh <- a.fiber.Listen(":" + a.cfg.Port)
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	a.log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.fiber.ShutdownWithContext(sctx)
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
