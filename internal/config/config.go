package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	DataBackend         string // "database" (GORM) or "supabase" (hosted REST)
	DatabaseURL         string // postgres://... or sqlite file path (sqlite:marketplace.db)
	RedisURL            string // optional; session blobs go to files under SessionDir when empty
	SessionDir          string
	SessionTTL          time.Duration
	SessionSweep        string // cron spec for idle coordinator eviction, e.g. "@every 5m"
	SessionMaxIdle      time.Duration
	OperationTimeout    time.Duration
	SupabaseURL         string
	SupabaseKey         string
	SupabaseSecretKey   string // service_role key; only storage signing needs it
	MediaBucket         string
	GeminiAPIKey        string
	GeminiModel         string
	GeminiBaseURL       string
	GeminiRPM           int // advisor calls allowed per minute across the process
	SendinblueAPIKey    string
	MailFrom            string
	AppURL              string
	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
	HealthAdminKey      string
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("DATA_BACKEND", "database")
	viper.SetDefault("DATABASE_URL", "sqlite:marketplace.db")
	viper.SetDefault("SESSION_DIR", ".sessions")
	viper.SetDefault("SESSION_TTL", "720h")
	viper.SetDefault("SESSION_SWEEP", "@every 5m")
	viper.SetDefault("SESSION_MAX_IDLE", "30m")
	viper.SetDefault("OPERATION_TIMEOUT", "15s")
	viper.SetDefault("GEMINI_MODEL", "gemini-3-flash-preview")
	viper.SetDefault("GEMINI_RPM", 30)
	viper.SetDefault("MEDIA_BUCKET", "listing-media")
	viper.SetDefault("APP_URL", "http://localhost:3000")
	viper.SetDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")

	return &Config{
		Env:                 viper.GetString("APP_ENV"),
		Port:                viper.GetString("PORT"),
		DataBackend:         strings.ToLower(strings.TrimSpace(viper.GetString("DATA_BACKEND"))),
		DatabaseURL:         viper.GetString("DATABASE_URL"),
		RedisURL:            viper.GetString("REDIS_URL"),
		SessionDir:          viper.GetString("SESSION_DIR"),
		SessionTTL:          viper.GetDuration("SESSION_TTL"),
		SessionSweep:        viper.GetString("SESSION_SWEEP"),
		SessionMaxIdle:      viper.GetDuration("SESSION_MAX_IDLE"),
		OperationTimeout:    viper.GetDuration("OPERATION_TIMEOUT"),
		SupabaseURL:         viper.GetString("SUPABASE_URL"),
		SupabaseKey:         viper.GetString("SUPABASE_KEY"),
		SupabaseSecretKey:   viper.GetString("SUPABASE_SECRET_KEY"),
		MediaBucket:         viper.GetString("MEDIA_BUCKET"),
		GeminiAPIKey:        viper.GetString("GEMINI_API_KEY"),
		GeminiModel:         viper.GetString("GEMINI_MODEL"),
		GeminiBaseURL:       viper.GetString("GEMINI_BASE_URL"),
		GeminiRPM:           viper.GetInt("GEMINI_RPM"),
		SendinblueAPIKey:    viper.GetString("SENDINBLUE_API_KEY"),
		MailFrom:            viper.GetString("MAIL_FROM"),
		AppURL:              viper.GetString("APP_URL"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:   strings.EqualFold(viper.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
		HealthAdminKey:      viper.GetString("HEALTH_ADMIN_KEY"),
	}, nil
}

// IsProduction reports whether the app runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
