package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Quiz      QuizConfig
	Realtime  RealtimeConfig
	WebSocket WebSocketConfig
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	// MigrationsPath: каталог SQL-миграций для golang-migrate
	MigrationsPath string `mapstructure:"migrations_path"`
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Mode: Режим работы Redis ("single", "sentinel", "cluster"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: Список адресов Redis (хост:порт). Используется для всех режимов.
	Addrs []string `mapstructure:"addrs"`

	// Addr: Альтернативный адрес для режима 'single'. Используется, если Addrs пустой.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: Имя мастер-сервера Redis (только для режима "sentinel")
	MasterName string `mapstructure:"master_name"`

	// KeyPrefix: префикс всех ключей кеша приложения
	KeyPrefix string `mapstructure:"key_prefix"`

	MaxRetries      int `mapstructure:"max_retries"`
	MinRetryBackoff int `mapstructure:"min_retry_backoff"` // мс
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"` // мс
}

// JWTConfig содержит настройки проверки токенов сервиса авторизации
type JWTConfig struct {
	Secret   string `mapstructure:"secret"`
	Issuer   string `mapstructure:"issuer"`
	Audience string `mapstructure:"audience"`
}

// QuizConfig содержит настройки викторин
type QuizConfig struct {
	DefaultQuestionCount int `mapstructure:"default_question_count"`
	MaxQuestionCount     int `mapstructure:"max_question_count"`
	AutoAdvanceDelayMs   int `mapstructure:"auto_advance_delay_ms"` // 0 или меньше - без автоперехода
	ResultCacheTTLMin    int `mapstructure:"result_cache_ttl_min"`
	// DatasetPath: JSON-словарь вместо встроенного
	DatasetPath string `mapstructure:"dataset_path"`
}

// RealtimeConfig содержит настройки голосового собеседника
type RealtimeConfig struct {
	Endpoint              string   `mapstructure:"endpoint"`
	APIKey                string   `mapstructure:"api_key"`
	Model                 string   `mapstructure:"model"`
	Voice                 string   `mapstructure:"voice"`
	NegotiationTimeoutSec int      `mapstructure:"negotiation_timeout_sec"`
	ICEURLs               []string `mapstructure:"ice_urls"`
	Backoff               BackoffConfig
}

// BackoffConfig параметры переподключения голосовой сессии
type BackoffConfig struct {
	InitialMs   int     `mapstructure:"initial_ms"`
	MaxMs       int     `mapstructure:"max_ms"`
	Multiplier  float64 `mapstructure:"multiplier"`
	MaxAttempts int     `mapstructure:"max_attempts"`
}

// WebSocketConfig содержит настройки WebSocket-подсистемы
type WebSocketConfig struct {
	Buffers BuffersConfig
	Ping    PingConfig
	Limits  LimitsConfig
}

// BuffersConfig содержит настройки буферов
type BuffersConfig struct {
	ClientSendBuffer int `mapstructure:"client_send_buffer"`
}

// PingConfig содержит настройки пингов (секунды)
type PingConfig struct {
	Interval int
	Timeout  int
}

// LimitsConfig содержит настройки ограничений
type LimitsConfig struct {
	MaxMessageSize int `mapstructure:"max_message_size"`
	WriteWait      int `mapstructure:"write_wait"` // секунды
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// MigrationsURL возвращает источник миграций для golang-migrate
func (d *DatabaseConfig) MigrationsURL() string {
	return "file://" + d.MigrationsPath
}

// AutoAdvanceDelay задержка автоперехода после правильного ответа
func (q QuizConfig) AutoAdvanceDelay() time.Duration {
	return time.Duration(q.AutoAdvanceDelayMs) * time.Millisecond
}

// ResultCacheTTL время жизни снимка результата в Redis
func (q QuizConfig) ResultCacheTTL() time.Duration {
	return time.Duration(q.ResultCacheTTLMin) * time.Minute
}

// NegotiationTimeout тайм-аут согласования SDP
func (r RealtimeConfig) NegotiationTimeout() time.Duration {
	return time.Duration(r.NegotiationTimeoutSec) * time.Second
}

// Load загружает конфигурацию: .env, затем файл, затем переменные окружения
func Load(configPath string) (*Config, error) {
	// .env не обязателен: в контейнере переменные приходят из окружения
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Предупреждение: не удалось прочитать .env: %v", err)
	}

	vip := viper.New() // Используем новый экземпляр Viper, чтобы избежать глобального состояния

	// 1. Значения по умолчанию
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.readtimeout", 15)
	vip.SetDefault("server.writetimeout", 15)
	vip.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "http://localhost:3000"})
	vip.SetDefault("database.port", "5432")
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("database.migrations_path", "migrations")
	vip.SetDefault("redis.mode", "single")
	vip.SetDefault("redis.key_prefix", "vocab")
	vip.SetDefault("quiz.default_question_count", 10)
	vip.SetDefault("quiz.max_question_count", 50)
	vip.SetDefault("quiz.auto_advance_delay_ms", 1500)
	vip.SetDefault("quiz.result_cache_ttl_min", 60*24)
	vip.SetDefault("realtime.endpoint", "https://api.openai.com/v1/realtime")
	vip.SetDefault("realtime.model", "gpt-4o-realtime-preview")
	vip.SetDefault("realtime.voice", "alloy")
	vip.SetDefault("realtime.negotiation_timeout_sec", 15)
	vip.SetDefault("realtime.ice_urls", []string{"stun:stun.l.google.com:19302"})
	vip.SetDefault("realtime.backoff.initial_ms", 1000)
	vip.SetDefault("realtime.backoff.max_ms", 10000)
	vip.SetDefault("realtime.backoff.multiplier", 2.0)
	vip.SetDefault("realtime.backoff.max_attempts", 3)
	vip.SetDefault("websocket.buffers.client_send_buffer", 256)
	vip.SetDefault("websocket.ping.interval", 54)
	vip.SetDefault("websocket.ping.timeout", 60)
	vip.SetDefault("websocket.limits.max_message_size", 64*1024)
	vip.SetDefault("websocket.limits.write_wait", 10)

	// 2. Привязываем переменные окружения ЯВНО
	// Привязка для секции Database
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")
	vip.BindEnv("database.migrations_path", "DATABASE_MIGRATIONS_PATH")

	// Привязка для секции Redis
	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	// Привязка для секции JWT
	vip.BindEnv("jwt.secret", "JWT_SECRET")
	vip.BindEnv("jwt.issuer", "JWT_ISSUER")
	vip.BindEnv("jwt.audience", "JWT_AUDIENCE")

	// Привязка для Quiz
	vip.BindEnv("quiz.auto_advance_delay_ms", "QUIZ_AUTO_ADVANCE_DELAY_MS")
	vip.BindEnv("quiz.dataset_path", "QUIZ_DATASET_PATH")

	// Привязка для Realtime
	vip.BindEnv("realtime.endpoint", "REALTIME_ENDPOINT")
	vip.BindEnv("realtime.api_key", "REALTIME_API_KEY")
	vip.BindEnv("realtime.model", "REALTIME_MODEL")
	vip.BindEnv("realtime.voice", "REALTIME_VOICE")

	// Привязка для Server
	vip.BindEnv("server.port", "SERVER_PORT")
	vip.BindEnv("server.allowed_origins", "SERVER_ALLOWED_ORIGINS")

	// 3. Файл конфигурации (не страшно, если его нет, т.к. есть BindEnv)
	if configPath != "" {
		vip.SetConfigFile(configPath)
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	// 4. Анмаршалим конфигурацию (Viper объединит значения из файла и привязанных env vars)
	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Списки из переменных окружения приходят одной строкой через запятую
	cfg.Redis.Addrs = splitList(cfg.Redis.Addrs)
	cfg.Server.AllowedOrigins = splitList(cfg.Server.AllowedOrigins)

	// 5. Логирование конфигурации (только в debug режиме)
	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Загруженные значения конфигурации ---")
		log.Printf("Database Host: %s", cfg.Database.Host)
		log.Printf("Database Name: %s", cfg.Database.DBName)
		log.Printf("Redis Mode: %s, Addrs: %v", cfg.Redis.Mode, cfg.Redis.Addrs)
		log.Printf("JWT Secret Set: %t", cfg.JWT.Secret != "")
		log.Printf("Realtime Endpoint: %s, Model: %s, API Key Set: %t", cfg.Realtime.Endpoint, cfg.Realtime.Model, cfg.Realtime.APIKey != "")
		log.Printf("Quiz Auto Advance: %dms", cfg.Quiz.AutoAdvanceDelayMs)
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("-----------------------------------------")
	}

	if err := cfg.Validate(os.Getenv("GIN_MODE")); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет обязательные параметры
func (c *Config) Validate(ginMode string) error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required in config (check JWT_SECRET env var)")
	}
	if c.Database.Host == "" || c.Database.DBName == "" || c.Database.User == "" {
		return fmt.Errorf("database configuration (host, dbname, user) is incomplete in config (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	if c.Quiz.DefaultQuestionCount <= 0 || c.Quiz.MaxQuestionCount < c.Quiz.DefaultQuestionCount {
		return fmt.Errorf("quiz question counts are inconsistent: default=%d max=%d", c.Quiz.DefaultQuestionCount, c.Quiz.MaxQuestionCount)
	}
	// Вне debug считаем окружение боевым
	if ginMode == "release" {
		if c.Database.Password == "" {
			return fmt.Errorf("database password is required in production mode (check DATABASE_PASSWORD env var)")
		}
		if c.Realtime.APIKey == "" {
			log.Println("Warning: REALTIME_API_KEY is not set, voice conversations will fail to connect.")
		}
	}
	return nil
}

func splitList(values []string) []string {
	result := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				result = append(result, part)
			}
		}
	}
	return result
}
