// config реализует конфигурацию notify-service: загрузка из YAML/ENV с предсказуемым приоритетом.
package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/ilyakaznacheev/cleanenv"
)

// Источники триггеров изменений документов.
const (
	SourceChangeStream = "changestream"
	SourceNATS         = "nats"
	SourceHTTP         = "http"
)

// Драйверы шлюза push-уведомлений.
const (
	DriverFCM = "fcm"
	DriverLog = "log"
)

// fcmMulticastMax: нативный лимит токенов на один multicast-вызов FCM.
const fcmMulticastMax = 500

// Config: корневая конфигурация сервиса.
// Приоритет источников:
//  1. явный путь, переданный в MustLoad/Load;
//  2. переменная окружения CONFIG_PATH;
//  3. файл ./local.yaml из рабочей директории;
//  4. переменные окружения.
type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	GRPC      GRPCConfig      `yaml:"grpc"`
	HTTP      HTTPConfig      `yaml:"http"`
	DB        DBConfig        `yaml:"db"`
	Redis     RedisConfig     `yaml:"redis"`
	NATS      NATSConfig      `yaml:"nats"`
	Messaging MessagingConfig `yaml:"messaging"`
	Triggers  TriggersConfig  `yaml:"triggers"`
	Push      PushConfig      `yaml:"push"`
	Events    EventsConfig    `yaml:"events"`
	Timeouts  TimeoutConfig   `yaml:"timeouts"`
}

// TimeoutConfig: дедлайн обработки одного изменения и время на graceful shutdown.
type TimeoutConfig struct {
	Service  time.Duration `yaml:"service"  env:"SERVICE"  env-default:"10s"`
	Shutdown time.Duration `yaml:"shutdown" env:"SHUTDOWN" env-default:"10s"`
}

// GRPCConfig: gRPC-сервер со стандартным health-сервисом.
type GRPCConfig struct {
	Host string `yaml:"host" env:"GRPC_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"GRPC_PORT" env-default:"50064"`
}

// HTTPConfig: HTTP (health/metrics/push-эндпоинты триггеров).
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"50094"`
}

// Addr возвращает адрес в формате host:port.
func (g GRPCConfig) Addr() string {
	return net.JoinHostPort(g.Host, g.Port)
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// DBConfig: настройки подключения к MongoDB (хранилище документов users/posts/events).
type DBConfig struct {
	URL string `yaml:"url" env:"DATABASE_URL" env-required:"true"`
}

// RedisConfig: хранилище отметок об уже обработанных изменениях.
// Пустой URL отключает дедупликацию.
type RedisConfig struct {
	URL    string        `yaml:"url"    env:"REDIS_URL"`
	Prefix string        `yaml:"prefix" env:"DEDUP_PREFIX" env-default:"notify:seen:"`
	TTL    time.Duration `yaml:"ttl"    env:"DEDUP_TTL"    env-default:"24h"`
}

// NATSConfig: JetStream-подписка на изменения документов, пересылаемые из внешней платформы.
type NATSConfig struct {
	URL     string        `yaml:"url"      env:"NATS_URL"`
	Subject string        `yaml:"subject"  env:"NATS_SUBJECT"  env-default:"docstore.changes.>"`
	Durable string        `yaml:"durable"  env:"NATS_DURABLE"  env-default:"notify-service"`
	Queue   string        `yaml:"queue"    env:"NATS_QUEUE"    env-default:"notify-service"`
	AckWait time.Duration `yaml:"ack_wait" env:"NATS_ACK_WAIT" env-default:"30s"`
}

// MessagingConfig: шлюз push-уведомлений.
type MessagingConfig struct {
	// Driver: "fcm" для Firebase Cloud Messaging, "log" для локальной разработки (только логирование).
	Driver          string `yaml:"driver"           env:"MESSAGING_DRIVER"               env-default:"fcm"`
	ProjectID       string `yaml:"project_id"       env:"FIREBASE_PROJECT_ID"`
	CredentialsFile string `yaml:"credentials_file" env:"GOOGLE_APPLICATION_CREDENTIALS"`
	// BroadcastTopic: топик, на который подписаны все устройства.
	BroadcastTopic string `yaml:"broadcast_topic" env:"BROADCAST_TOPIC" env-default:"all_users"`
	// MulticastLimit: максимум токенов в одном multicast-вызове (у FCM не больше 500).
	MulticastLimit int `yaml:"multicast_limit" env:"MULTICAST_LIMIT" env-default:"500"`
}

// TriggersConfig: включённые источники изменений.
type TriggersConfig struct {
	Sources          []string      `yaml:"sources"           env:"TRIGGER_SOURCES"   env-separator:"," env-default:"changestream"`
	ReconnectBackoff time.Duration `yaml:"reconnect_backoff" env:"RECONNECT_BACKOFF" env-default:"5s"`
}

// Enabled сообщает, включён ли источник name.
func (t TriggersConfig) Enabled(name string) bool {
	for _, s := range t.Sources {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return true
		}
	}

	return false
}

// PushConfig: проверка Bearer JWT на push-эндпоинтах (источник "http"; без Secret не запускается).
type PushConfig struct {
	Secret string `yaml:"secret" env:"PUSH_SECRET"`
	Issuer string `yaml:"issuer" env:"PUSH_ISSUER"`
}

// EventsConfig: форматирование даты мероприятия в тексте уведомления.
type EventsConfig struct {
	Timezone   string `yaml:"timezone"    env:"EVENT_TIMEZONE"    env-default:"America/New_York"`
	DateLayout string `yaml:"date_layout" env:"EVENT_DATE_LAYOUT" env-default:"Monday, January 2 at 3:04 PM"`
}

// MustLoad: обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)

	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// После чтения файла накладываем ENV-переменные поверх значений из YAML.
func Load(path string) (*Config, error) {
	var cfg Config

	readFile := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	var (
		c   *Config
		err error
	)

	switch envPath := os.Getenv("CONFIG_PATH"); {
	case path != "":
		c, err = readFile(path)
	case envPath != "":
		c, err = readFile(envPath)
	default:
		if _, statErr := os.Stat("local.yaml"); statErr == nil {
			c, err = readFile("local.yaml")
			break
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
		}
		c = &cfg
	}

	if err != nil {
		return nil, err
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// validate: базовая валидация значений.
func (c *Config) validate() error {
	if c.DB.URL == "" {
		return fmt.Errorf("db.url is required")
	}

	if len(c.Triggers.Sources) == 0 {
		return fmt.Errorf("triggers.sources must not be empty")
	}

	for _, s := range c.Triggers.Sources {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case SourceChangeStream, SourceNATS, SourceHTTP:
		default:
			return fmt.Errorf("triggers.sources: unknown source %q", s)
		}
	}

	if c.Triggers.ReconnectBackoff <= 0 {
		return fmt.Errorf("triggers.reconnect_backoff must be > 0")
	}

	if c.Triggers.Enabled(SourceNATS) && c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required when nats source is enabled")
	}

	if c.Triggers.Enabled(SourceHTTP) && strings.TrimSpace(c.Push.Secret) == "" {
		return fmt.Errorf("push.secret is required when http source is enabled")
	}

	switch c.Messaging.Driver {
	case DriverFCM:
		if c.Messaging.ProjectID == "" {
			return fmt.Errorf("messaging.project_id is required for fcm driver")
		}
	case DriverLog:
	default:
		return fmt.Errorf("messaging.driver: unknown driver %q", c.Messaging.Driver)
	}

	if strings.TrimSpace(c.Messaging.BroadcastTopic) == "" {
		return fmt.Errorf("messaging.broadcast_topic must not be empty")
	}

	if c.Messaging.MulticastLimit <= 0 || c.Messaging.MulticastLimit > fcmMulticastMax {
		return fmt.Errorf("messaging.multicast_limit must be in 1..%d", fcmMulticastMax)
	}

	if c.Redis.URL != "" && c.Redis.TTL < time.Minute {
		return fmt.Errorf("redis.ttl must be at least 1m")
	}

	if _, err := time.LoadLocation(c.Events.Timezone); err != nil {
		return fmt.Errorf("events.timezone: %w", err)
	}

	if c.Timeouts.Service <= 0 || c.Timeouts.Shutdown <= 0 {
		return fmt.Errorf("timeouts must be > 0")
	}

	return nil
}
