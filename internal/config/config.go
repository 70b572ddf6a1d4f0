package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds all environment-driven settings for the service.
type Config struct {
	Port     string
	MongoURI string
	MongoDB  string

	JWTSecret string

	// Bootstrap admin credentials used only while no admin record exists.
	AdminEmail    string
	AdminPassword string

	AMQPURL      string
	AMQPExchange string

	EmailHost string
	EmailPort string
	EmailUser string
	EmailPass string
	EmailFrom string

	OTLPEndpoint string
	Environment  string
	DebugRoutes  bool
}

// Load reads configuration from the environment, honoring a local .env file
// when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:     getEnv("PORT", "8083"),
		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "geofriends"),

		JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-me"),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		AMQPURL:      os.Getenv("AMQP_URL"),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "geofriends.events"),

		EmailHost: os.Getenv("EMAIL_HOST"),
		EmailPort: getEnv("EMAIL_PORT", "587"),
		EmailUser: os.Getenv("EMAIL_USER"),
		EmailPass: os.Getenv("EMAIL_PASS"),
		EmailFrom: os.Getenv("EMAIL_FROM"),

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Environment:  getEnv("ENVIRONMENT", "development"),
		DebugRoutes:  os.Getenv("DEBUG_ROUTES") == "true",
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
