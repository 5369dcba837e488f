package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	SQLiteDriver          string
	SQLiteDSN             string
	SQLitePath            string
	SQLiteMaxOpenConns    int
	SQLiteMaxIdleConns    int
	SQLiteConnMaxLifetime time.Duration
	// LogSQL wraps the driver so every statement is logged at debug level.
	LogSQL bool

	// MQTTBroker empty disables the MQTT ingest subscriber.
	MQTTBroker   string
	MQTTPort     int
	MQTTTopic    string
	MQTTClientID string
	// MQTTReplace makes documents received over MQTT overwrite stored years.
	MQTTReplace bool
}

// fileConfig is the optional YAML file named by CONFIG_FILE. Its values sit
// between the built-in defaults and the environment.
type fileConfig struct {
	AppEnv   string `yaml:"app_env"`
	LogLevel string `yaml:"log_level"`
	HTTPAddr string `yaml:"http_addr"`

	SQLite struct {
		Driver          string `yaml:"driver"`
		DSN             string `yaml:"dsn"`
		Path            string `yaml:"path"`
		MaxOpenConns    string `yaml:"max_open_conns"`
		MaxIdleConns    string `yaml:"max_idle_conns"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		LogSQL          string `yaml:"log_sql"`
	} `yaml:"sqlite"`

	MQTT struct {
		Broker   string `yaml:"broker"`
		Port     string `yaml:"port"`
		Topic    string `yaml:"topic"`
		ClientID string `yaml:"client_id"`
		Replace  string `yaml:"replace"`
	} `yaml:"mqtt"`
}

func LoadFromEnv() (Config, error) {
	fc, err := loadFile(strings.TrimSpace(os.Getenv("CONFIG_FILE")))
	if err != nil {
		return Config{}, err
	}

	appEnv := lookup("APP_ENV", fc.AppEnv, "dev")
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(lookup("LOG_LEVEL", fc.LogLevel, "info"))
	if err != nil {
		return Config{}, err
	}

	httpAddr := lookup("HTTP_ADDR", fc.HTTPAddr, ":8080")

	maxOpenConnsStr := lookup("DB_MAX_OPEN_CONNS", fc.SQLite.MaxOpenConns, "1")
	maxOpenConns, err := strconv.Atoi(maxOpenConnsStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_MAX_OPEN_CONNS %q: %w", maxOpenConnsStr, err)
	}

	maxIdleConnsStr := lookup("DB_MAX_IDLE_CONNS", fc.SQLite.MaxIdleConns, "1")
	maxIdleConns, err := strconv.Atoi(maxIdleConnsStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_MAX_IDLE_CONNS %q: %w", maxIdleConnsStr, err)
	}

	connMaxLifetimeStr := lookup("DB_CONN_MAX_LIFETIME", fc.SQLite.ConnMaxLifetime, "0s")
	connMaxLifetime, err := time.ParseDuration(connMaxLifetimeStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME %q: %w", connMaxLifetimeStr, err)
	}

	logSQLStr := lookup("DB_LOG_SQL", fc.SQLite.LogSQL, "false")
	logSQL, err := strconv.ParseBool(logSQLStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_LOG_SQL %q: %w", logSQLStr, err)
	}

	mqttPortStr := lookup("MQTT_PORT", fc.MQTT.Port, "1883")
	mqttPort, err := strconv.Atoi(mqttPortStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %q: %w", mqttPortStr, err)
	}
	if mqttPort < 1 || mqttPort > 65535 {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %d (allowed: 1-65535)", mqttPort)
	}

	mqttReplaceStr := lookup("MQTT_REPLACE", fc.MQTT.Replace, "false")
	mqttReplace, err := strconv.ParseBool(mqttReplaceStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid MQTT_REPLACE %q: %w", mqttReplaceStr, err)
	}

	return Config{
		AppEnv:                appEnv,
		LogLevel:              level,
		HTTPAddr:              httpAddr,
		SQLiteDriver:          lookup("DB_DRIVER", fc.SQLite.Driver, "sqlite3"),
		SQLiteDSN:             lookup("DB_DSN", fc.SQLite.DSN, ""),
		SQLitePath:            lookup("SQLITE_PATH", fc.SQLite.Path, "data/ukweather.db"),
		SQLiteMaxOpenConns:    maxOpenConns,
		SQLiteMaxIdleConns:    maxIdleConns,
		SQLiteConnMaxLifetime: connMaxLifetime,
		LogSQL:                logSQL,
		MQTTBroker:            lookup("MQTT_BROKER", fc.MQTT.Broker, ""),
		MQTTPort:              mqttPort,
		MQTTTopic:             lookup("MQTT_TOPIC", fc.MQTT.Topic, "ukweather/import"),
		MQTTClientID:          lookup("MQTT_CLIENT_ID", fc.MQTT.ClientID, "ukweather-server"),
		MQTTReplace:           mqttReplace,
	}, nil
}

// lookup returns the trimmed env value, else the file value, else def.
func lookup(key, fromFile, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	if v := strings.TrimSpace(fromFile); v != "" {
		return v
	}
	return def
}

func loadFile(path string) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read CONFIG_FILE %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse CONFIG_FILE %q: %w", path, err)
	}
	return fc, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
