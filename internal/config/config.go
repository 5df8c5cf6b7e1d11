package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Bot       BotConfig
	Database  DatabaseConfig
	Dispatch  DispatchConfig
	Sessions  SessionConfig
	Kafka     KafkaConfig
	Timezones TimezoneConfig
	LogDir    string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type BotConfig struct {
	Token   string
	APIBase string
	Mode    string // "polling" or "webhook"
}

type DatabaseConfig struct {
	Path string
}

type DispatchConfig struct {
	Interval time.Duration
}

type SessionConfig struct {
	Backend   string // "memory" or "redis"
	RedisAddr string
	TTL       time.Duration
}

type KafkaConfig struct {
	Brokers  []string
	Topic    string
	Enabled  bool
	MockMode bool
}

type TimezoneConfig struct {
	Default   string
	Available []string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Bot: BotConfig{
			Token:   getEnv("BOT_TOKEN", ""),
			APIBase: getEnv("BOT_API_BASE", "https://api.telegram.org"),
			Mode:    getEnv("BOT_MODE", "polling"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "remindbot.db"),
		},
		Dispatch: DispatchConfig{
			Interval: time.Duration(getEnvInt("CHECK_INTERVAL_SECONDS", 30)) * time.Second,
		},
		Sessions: SessionConfig{
			Backend:   getEnv("SESSION_BACKEND", "memory"),
			RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
			TTL:       time.Duration(getEnvInt("SESSION_TTL_HOURS", 24)) * time.Hour,
		},
		Kafka: KafkaConfig{
			Brokers:  getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:    getEnv("KAFKA_TOPIC_DELIVERIES", "remindbot.deliveries"),
			Enabled:  getEnvBool("KAFKA_ENABLED", false),
			MockMode: getEnvBool("KAFKA_MOCK_MODE", false),
		},
		Timezones: TimezoneConfig{
			Default: getEnv("DEFAULT_TIMEZONE", "Europe/Moscow"),
			Available: getEnvList("AVAILABLE_TIMEZONES", []string{
				"Europe/Kaliningrad",
				"Europe/Moscow",
				"Europe/Samara",
				"Asia/Yekaterinburg",
				"Asia/Omsk",
				"Asia/Krasnoyarsk",
				"Asia/Irkutsk",
				"Asia/Yakutsk",
				"Asia/Vladivostok",
				"Asia/Magadan",
				"Asia/Kamchatka",
			}),
		},
		LogDir: getEnv("LOG_DIR", "logs"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
