package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App           AppConfig
	Server        ServerConfig
	Database      DatabaseConfig
	JWT           JWTConfig
	Redis         RedisConfig
	Routing       RoutingConfig
	Ranking       RankingConfig
	Bandit        BanditConfig
	Search        SearchConfig
	Cache         CacheConfig
	Affordability AffordabilityConfig
	LLM           LLMConfig
	Embedding     EmbeddingConfig
	PolicyPath    string
}

type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

type ServerConfig struct {
	Port           string
	RequestTimeout time.Duration
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type JWTConfig struct {
	SecretKey string
}

type RedisConfig struct {
	Enabled       bool
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
}

type RoutingConfig struct {
	FastThreshold  float64
	SmartThreshold float64
}

type RankingConfig struct {
	OutputSize          int
	ExploitPositions    int
	JitterSigma         float64
	MaxJitter           float64
	SerendipityBonus    float64
	ClusterAlternatives int
}

type BanditConfig struct {
	PriorAlpha float64
	PriorBeta  float64
	Epsilon    float64
}

type SearchConfig struct {
	TopK           int
	ScoreThreshold float64
	StageTimeout   time.Duration
}

type CacheConfig struct {
	TTL  time.Duration
	Size int
}

type AffordabilityConfig struct {
	URL     string
	Timeout time.Duration
}

type LLMConfig struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

type EmbeddingConfig struct {
	OllamaURL   string
	OllamaModel string
	OpenAIKey   string
	PersistPath string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, errors.New("invalid redis database")
	}

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "PriceSense Ranking API"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			RequestTimeout: getDuration("REQUEST_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Enabled:  getBool("DB_ENABLED", true),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "pricesense"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET", ""),
		},
		Redis: RedisConfig{
			Enabled:       getBool("REDIS_ENABLED", true),
			RedisHost:     getEnv("REDIS_HOST", "localhost"),
			RedisPort:     getEnv("REDIS_PORT", "6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       redisDB,
		},
		Routing: RoutingConfig{
			FastThreshold:  getFloat("ROUTING_FAST_THRESHOLD", 0.3),
			SmartThreshold: getFloat("ROUTING_SMART_THRESHOLD", 0.7),
		},
		Ranking: RankingConfig{
			OutputSize:          getInt("RANKING_OUTPUT_SIZE", 10),
			ExploitPositions:    getInt("RANKING_EXPLOIT_POSITIONS", 7),
			JitterSigma:         getFloat("RANKING_JITTER_SIGMA", 0.5),
			MaxJitter:           getFloat("RANKING_MAX_JITTER", 5),
			SerendipityBonus:    getFloat("RANKING_SERENDIPITY_BONUS", 15),
			ClusterAlternatives: getInt("RANKING_CLUSTER_ALTERNATIVES", 2),
		},
		Bandit: BanditConfig{
			PriorAlpha: getFloat("BANDIT_PRIOR_ALPHA", 1),
			PriorBeta:  getFloat("BANDIT_PRIOR_BETA", 1),
			Epsilon:    getFloat("BANDIT_EPSILON", 1e-6),
		},
		Search: SearchConfig{
			TopK:           getInt("SEARCH_TOP_K", 50),
			ScoreThreshold: getFloat("SEARCH_SCORE_THRESHOLD", 0.3),
			StageTimeout:   getDuration("STAGE_TIMEOUT", 3*time.Second),
		},
		Cache: CacheConfig{
			TTL:  getDuration("CACHE_TTL", time.Hour),
			Size: getInt("CACHE_SIZE", 1024),
		},
		Affordability: AffordabilityConfig{
			URL:     getEnv("AFFORDABILITY_URL", ""),
			Timeout: getDuration("AFFORDABILITY_TIMEOUT", 2*time.Second),
		},
		LLM: LLMConfig{
			Endpoint: getEnv("LLM_ENDPOINT", ""),
			APIKey:   getEnv("LLM_API_KEY", ""),
			Model:    getEnv("LLM_MODEL", "gpt-4o-mini"),
			Timeout:  getDuration("LLM_TIMEOUT", 4*time.Second),
		},
		Embedding: EmbeddingConfig{
			OllamaURL:   getEnv("OLLAMA_URL", ""),
			OllamaModel: getEnv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),
			OpenAIKey:   getEnv("OPENAI_API_KEY", ""),
			PersistPath: getEnv("VECTOR_PERSIST_PATH", ""),
		},
		PolicyPath: getEnv("RANKING_POLICY_PATH", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Database.Enabled && c.Database.Password == "" {
		return errors.New("missing database password")
	}

	if c.Routing.FastThreshold < 0 || c.Routing.SmartThreshold > 1 || c.Routing.FastThreshold >= c.Routing.SmartThreshold {
		return errors.New("routing thresholds must satisfy 0 <= fast < smart <= 1")
	}

	if c.Ranking.OutputSize <= c.Ranking.ExploitPositions {
		return errors.New("ranking output size must exceed exploit positions")
	}

	if c.Bandit.PriorAlpha <= 0 || c.Bandit.PriorBeta <= 0 || c.Bandit.Epsilon <= 0 {
		return errors.New("bandit priors and epsilon must be positive")
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultVal
}

func getFloat(key string, defaultVal float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultVal
}

func getBool(key string, defaultVal bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultVal
}
