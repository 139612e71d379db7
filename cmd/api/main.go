package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm/logger"

	"github.com/yourusername/vocab-api/internal/config"
	"github.com/yourusername/vocab-api/internal/dataset"
	"github.com/yourusername/vocab-api/internal/domain/entity"
	"github.com/yourusername/vocab-api/internal/handler"
	"github.com/yourusername/vocab-api/internal/middleware"
	"github.com/yourusername/vocab-api/internal/realtime"
	pgRepo "github.com/yourusername/vocab-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/vocab-api/internal/repository/redis"
	"github.com/yourusername/vocab-api/internal/repository/static"
	"github.com/yourusername/vocab-api/internal/service"
	"github.com/yourusername/vocab-api/internal/service/quizengine"
	ws "github.com/yourusername/vocab-api/internal/websocket"
	"github.com/yourusername/vocab-api/pkg/auth"
	"github.com/yourusername/vocab-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	isProduction := gin.Mode() == gin.ReleaseMode
	dbLogLevel := logger.Info
	if isProduction {
		dbLogLevel = logger.Warn
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString(), dbLogLevel)
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db, cfg.Database.MigrationsURL()); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Контекст жизненного цикла фоновых задач
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisClient, err := database.NewUniversalRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	words, err := loadWords(cfg.Quiz.DatasetPath)
	if err != nil {
		log.Printf("Failed to load vocabulary: %v", err)
		os.Exit(1)
	}
	log.Printf("Словарь загружен: %d слов", len(words))

	// Инициализируем репозитории
	wordRepo := static.NewWordRepo(words)
	progressRepo := pgRepo.NewProgressRepo(db)
	resultRepo := pgRepo.NewQuizResultRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient, cfg.Redis.KeyPrefix)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience)
	if err != nil {
		log.Printf("Failed to initialize JWTService: %v", err)
		os.Exit(1)
	}

	// WebSocket
	wsHub := ws.NewHub()
	go wsHub.Run()
	wsManager := ws.NewManager(wsHub)

	// Движок викторин
	engineConfig := quizengine.DefaultConfig()
	engineConfig.AutoAdvanceDelay = cfg.Quiz.AutoAdvanceDelay()
	engineConfig.DefaultQuestionCount = cfg.Quiz.DefaultQuestionCount
	engineConfig.MaxQuestionCount = cfg.Quiz.MaxQuestionCount

	quizService := service.NewQuizService(
		ctx,
		wordRepo,
		progressRepo,
		resultRepo,
		cacheRepo,
		quizengine.NewGenerator(engineConfig, nil),
		service.QuizServiceConfig{Engine: engineConfig, ResultCacheTTL: cfg.Quiz.ResultCacheTTL()},
	)
	quizService.SetNotifier(wsManager)
	resultService := service.NewResultService(resultRepo, cacheRepo, quizService)

	// Голосовой собеседник
	peerFactory, err := realtime.NewPionFactory(cfg.Realtime.ICEURLs)
	if err != nil {
		log.Printf("Failed to initialize WebRTC: %v", err)
		os.Exit(1)
	}
	negotiator := realtime.NewHTTPNegotiator(
		cfg.Realtime.Endpoint,
		cfg.Realtime.APIKey,
		cfg.Realtime.Model,
		&http.Client{},
		cfg.Realtime.NegotiationTimeout(),
	)
	conversationService := service.NewConversationService(
		conversationConfig(cfg.Realtime),
		peerFactory,
		negotiator,
		progressRepo,
		wsManager,
	)
	wsHub.OnDisconnect(conversationService.HandleDisconnect)

	// Инициализируем middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Инициализируем обработчики
	quizHandler := handler.NewQuizHandler(quizService, resultService)
	resultHandler := handler.NewResultHandler(resultService)
	wordHandler := handler.NewWordHandler(quizService)
	statusHandler := handler.NewStatusHandler(wsHub, conversationService)
	wsHandler := handler.NewWSHandler(
		wsHub,
		wsManager,
		quizService,
		conversationService,
		jwtService,
		rateLimiter,
		handler.WSHandlerConfig{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Client: ws.ClientConfig{
				BufferSize:     cfg.WebSocket.Buffers.ClientSendBuffer,
				PingInterval:   time.Duration(cfg.WebSocket.Ping.Interval) * time.Second,
				PongWait:       time.Duration(cfg.WebSocket.Ping.Timeout) * time.Second,
				WriteWait:      time.Duration(cfg.WebSocket.Limits.WriteWait) * time.Second,
				MaxMessageSize: int64(cfg.WebSocket.Limits.MaxMessageSize),
			},
		},
	)

	router := gin.Default()

	// В production не доверяем прокси-заголовкам (защита от IP spoofing)
	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	// Настройка CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-RateLimit-Remaining", "X-Result-Persist-Warning"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Настраиваем маршруты API
	api := router.Group("/api")
	api.Use(authMiddleware.RequireAuth())
	{
		// Словарь и прогресс
		api.GET("/words", wordHandler.ListWords)
		api.GET("/progress", wordHandler.GetProgress)
		api.PUT("/progress", wordHandler.UpdateProgress)

		// Викторины
		quizzes := api.Group("/quizzes")
		{
			quizzes.POST("", rateLimiter.Limit(middleware.QuizStartRateLimitConfig()), quizHandler.StartQuiz)

			current := quizzes.Group("/current")
			{
				current.GET("", quizHandler.GetCurrentQuiz)
				current.DELETE("", quizHandler.ResetQuiz)
				current.POST("/answer", quizHandler.Answer)
				current.POST("/skip", quizHandler.Skip)
				current.POST("/next", quizHandler.Next)
				current.POST("/previous", quizHandler.Previous)
				current.POST("/end", quizHandler.EndQuiz)
			}

			quizWithID := quizzes.Group("/:id")
			quizWithID.Use(middleware.ExtractUUIDParam("id", "quizID"))
			{
				quizWithID.GET("/result", quizHandler.GetQuizResult)
			}
		}

		// История результатов
		results := api.Group("/results")
		{
			results.GET("", resultHandler.ListResults)
			results.GET("/export", resultHandler.ExportResults)
		}
	}

	// WebSocket маршрут, токен передаётся в query
	router.GET("/ws", wsHandler.HandleConnection)
	router.GET("/ws/metrics", statusHandler.Metrics)
	router.GET("/ws/health", statusHandler.Health)

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// Сначала закрываем сессии, затем останавливаем хаб
	if err := conversationService.Shutdown(); err != nil {
		log.Printf("Error closing voice sessions: %v", err)
	}
	quizService.Shutdown()
	cancel()
	wsHub.Stop()

	if err := redisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Println("Server exited properly")
}

// loadWords читает словарь из файла или берёт встроенный
func loadWords(path string) ([]entity.Word, error) {
	if path == "" {
		return dataset.Words()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return dataset.Parse(data)
}

// conversationConfig накладывает настройки из конфигурации на значения по умолчанию
func conversationConfig(rc config.RealtimeConfig) service.ConversationConfig {
	cc := service.DefaultConversationConfig()
	if rc.Voice != "" {
		cc.Realtime.Voice = rc.Voice
	}
	if timeout := rc.NegotiationTimeout(); timeout > 0 {
		cc.Realtime.NegotiationTimeout = timeout
	}
	if rc.Backoff.MaxAttempts > 0 {
		cc.Backoff = realtime.ExponentialBackoff{
			Initial:     time.Duration(rc.Backoff.InitialMs) * time.Millisecond,
			Max:         time.Duration(rc.Backoff.MaxMs) * time.Millisecond,
			Multiplier:  rc.Backoff.Multiplier,
			MaxAttempts: rc.Backoff.MaxAttempts,
		}
	}
	return cc
}
