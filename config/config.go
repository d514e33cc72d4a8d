package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
	"strings"
)

type WebhookRegistration struct {
	URL   string `json:"url"`
	Event string `json:"event"`
}

type Configuration struct {
	ApiPort string `json:"api_port"`
	LogPath string `json:"log_path"`

	Database string `json:"database"` // "sqlite3" or "postgres"
	DbHost   string `json:"db_host"`
	DbPort   string `json:"db_port"`
	DbUser   string `json:"db_user"`
	DbName   string `json:"db_name"`
	DbPass   string `json:"db_pass"`

	Security struct {
		JwtSecret           string `json:"jwt_secret"`
		RefreshCodeLen      int    `json:"refresh_code_len"`
		RefreshCodeMaxValid int    `json:"refresh_code_max_valid_days"`
	} `json:"security"`

	Chat struct {
		DailyGenerationQuota int `json:"daily_generation_quota"`
		PreviewMaxLength     int `json:"preview_max_length"`
	} `json:"chat"`

	Webhook struct {
		MaxAttempts      int                   `json:"max_attempts"`
		BaseDelaySeconds int                   `json:"base_delay_seconds"`
		TimeoutSeconds   int                   `json:"timeout_seconds"`
		Registrations    []WebhookRegistration `json:"registrations"`
	} `json:"webhook"`

	Cleanup struct {
		OlderThanHours int `json:"older_than_hours"`
		BatchSize      int `json:"batch_size"`
		IntervalHours  int `json:"interval_hours"`
	} `json:"cleanup"`
}

// Get loads the JSON config file and applies defaults plus env overrides.
// Every tunable can be set from the environment so deployments don't need to
// rebake the config file.
func Get(path string) Configuration {
	b, err := os.ReadFile(path)
	if err != nil {
		log.Fatal(err)
	}
	var c Configuration
	if err := json.Unmarshal(b, &c); err != nil {
		log.Fatal(err)
	}

	// defaults
	if c.ApiPort == "" {
		c.ApiPort = "8080"
	}
	if c.LogPath == "" {
		c.LogPath = "logs/server.log"
	}
	if c.Database == "" {
		c.Database = "sqlite3"
	}
	if c.Security.RefreshCodeLen <= 0 {
		c.Security.RefreshCodeLen = 32
	}
	if c.Security.RefreshCodeMaxValid <= 0 {
		c.Security.RefreshCodeMaxValid = 30
	}
	if c.Security.JwtSecret == "" {
		c.Security.JwtSecret = "CHANGE_ME"
	}
	if c.Chat.DailyGenerationQuota <= 0 {
		// conservative: the external ceiling is higher, leave slack for the
		// check-then-increment race and clock skew
		c.Chat.DailyGenerationQuota = 500
	}
	if c.Chat.PreviewMaxLength <= 0 {
		c.Chat.PreviewMaxLength = 50
	}
	if c.Webhook.MaxAttempts <= 0 {
		c.Webhook.MaxAttempts = 3
	}
	if c.Webhook.BaseDelaySeconds <= 0 {
		c.Webhook.BaseDelaySeconds = 5
	}
	if c.Webhook.TimeoutSeconds <= 0 {
		c.Webhook.TimeoutSeconds = 5
	}
	if c.Cleanup.OlderThanHours <= 0 {
		c.Cleanup.OlderThanHours = 24
	}
	if c.Cleanup.BatchSize <= 0 {
		c.Cleanup.BatchSize = 500
	}
	if c.Cleanup.IntervalHours <= 0 {
		c.Cleanup.IntervalHours = 6
	}

	applyEnvOverrides(&c)

	return c
}

func applyEnvOverrides(c *Configuration) {
	envInt("SELENE_DAILY_GENERATION_QUOTA", &c.Chat.DailyGenerationQuota)
	envInt("SELENE_PREVIEW_MAX_LENGTH", &c.Chat.PreviewMaxLength)
	envInt("SELENE_WEBHOOK_MAX_ATTEMPTS", &c.Webhook.MaxAttempts)
	envInt("SELENE_WEBHOOK_BASE_DELAY_SECONDS", &c.Webhook.BaseDelaySeconds)
	envInt("SELENE_WEBHOOK_TIMEOUT_SECONDS", &c.Webhook.TimeoutSeconds)
	envInt("SELENE_CLEANUP_OLDER_THAN_HOURS", &c.Cleanup.OlderThanHours)
	envInt("SELENE_CLEANUP_BATCH_SIZE", &c.Cleanup.BatchSize)
	envInt("SELENE_CLEANUP_INTERVAL_HOURS", &c.Cleanup.IntervalHours)
	if v := strings.TrimSpace(os.Getenv("SELENE_JWT_SECRET")); v != "" {
		c.Security.JwtSecret = v
	}
}

func envInt(key string, dst *int) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return
	}
	*dst = n
}
