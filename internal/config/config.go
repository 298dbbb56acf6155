package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN           string
	HTTPAddr        string
	Environment     string
	MigrationsPath  string
	TelegramToken   string // пустая строка - телеграм-уведомления выключены
	CalendarAPIURL  string
	CalendarTimeout time.Duration
	SyncHorizonDays int
	SyncInterval    time.Duration
	LessonDuration  time.Duration
	SlotStep        time.Duration
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	cfg := &Config{
		DBDSN:           os.Getenv("DB_DSN"),
		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		Environment:     os.Getenv("ENV"),
		MigrationsPath:  os.Getenv("MIGRATIONS_PATH"),
		TelegramToken:   os.Getenv("TELEGRAM_TOKEN"),
		CalendarAPIURL:  os.Getenv("CALENDAR_API_URL"),
		CalendarTimeout: durationEnv("CALENDAR_TIMEOUT_SECONDS", 10) * time.Second,
		SyncHorizonDays: intEnv("SYNC_HORIZON_DAYS", 14),
		SyncInterval:    durationEnv("SYNC_INTERVAL_HOURS", 12) * time.Hour,
		LessonDuration:  durationEnv("LESSON_DURATION_MINUTES", 25) * time.Minute,
		SlotStep:        durationEnv("SLOT_STEP_MINUTES", 30) * time.Minute,
	}

	// Устанавливаем дефолтные значения
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.MigrationsPath == "" {
		cfg.MigrationsPath = "migrations"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	// Проверяем обязательные поля
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}
	if cfg.CalendarAPIURL == "" {
		return nil, fmt.Errorf("CALENDAR_API_URL is required but not set")
	}
	if cfg.SyncHorizonDays <= 0 {
		return nil, fmt.Errorf("SYNC_HORIZON_DAYS must be positive")
	}
	if cfg.LessonDuration <= 0 || cfg.SlotStep <= 0 {
		return nil, fmt.Errorf("lesson duration and slot step must be positive")
	}

	return cfg, nil
}

func intEnv(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("⚠️  Invalid value for %s, using default %d", key, def)
		return def
	}
	return v
}

func durationEnv(key string, def int) time.Duration {
	return time.Duration(intEnv(key, def))
}
