package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	Port   int    `envconfig:"PORT" default:"8080"`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	Blibli struct {
		BaseURL       string        `envconfig:"BLIBLI_BASE_URL" default:"https://www.blibli.com"`
		ChannelID     string        `envconfig:"BLIBLI_CHANNEL_ID" default:"web"`
		UserAgent     string        `envconfig:"BLIBLI_USER_AGENT" default:"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36"`
		SessionCookie string        `envconfig:"BLIBLI_SESSION_COOKIE"`
		Timeout       time.Duration `envconfig:"BLIBLI_TIMEOUT" default:"10s"`
		RPS           float64       `envconfig:"BLIBLI_RPS" default:"2"`
	} `envconfig:""`

	Classifier struct {
		URL     string        `envconfig:"CLASSIFIER_URL" default:"http://localhost:8090"`
		Timeout time.Duration `envconfig:"CLASSIFIER_TIMEOUT" default:"45s"`
	} `envconfig:""`

	Gemini struct {
		APIKey  string        `envconfig:"GEMINI_API_KEY"`
		BaseURL string        `envconfig:"GEMINI_BASE_URL"`
		Model   string        `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
		Timeout time.Duration `envconfig:"GEMINI_TIMEOUT" default:"30s"`
	} `envconfig:""`

	Catalog struct {
		CSVPath string `envconfig:"CATEGORY_CSV_PATH" default:"data/c3_categories.csv"`
	} `envconfig:""`

	Mapper struct {
		TermsCSV     string `envconfig:"TERMS_CSV_PATH"`
		Backfill     bool   `envconfig:"MAPPER_BACKFILL" default:"false"`
		Reclassify   bool   `envconfig:"MAPPER_RECLASSIFY" default:"false"`
		ConsumeQueue bool   `envconfig:"MAPPER_CONSUME_QUEUE" default:"true"`
	} `envconfig:""`

	Checkpoint struct {
		Path  string `envconfig:"CHECKPOINT_PATH" default:"progress_checkpoint.json"`
		Every int    `envconfig:"CHECKPOINT_EVERY" default:"50"`
	} `envconfig:""`

	Limits struct {
		TopCategories int `envconfig:"TOP_CATEGORIES" default:"5"`
		PageSize      int `envconfig:"DASHBOARD_PAGE_SIZE" default:"10"`
		ProductLimit  int `envconfig:"PRODUCT_LIMIT" default:"40"`
		DefaultBoost  int `envconfig:"DEFAULT_BOOST" default:"100"`
	} `envconfig:""`

	Queues struct {
		Classify string `envconfig:"CLASSIFY_QUEUE_KEY" default:"classify_jobs"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
