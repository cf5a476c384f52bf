package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for our application
type Config struct {
	Port                      string
	Origin                    string
	Environment               string
	JWTSecret                 string
	JWTRefreshSecret          string
	Database                  DatabaseConfig
	Clinic                    ClinicConfig
	JWTExpirationMinutes      int
	JWTRefreshExpirationHours int
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// ClinicConfig holds the scheduling settings: the daily operating window,
// the slot stride, and the clinic's local timezone. The same values feed
// booking validation and slot enumeration.
type ClinicConfig struct {
	OpenHour          int
	CloseHour         int
	SlotStrideMinutes int
	Timezone          string
	Location          *time.Location
}

// Stride returns the slot stride as a duration.
func (c ClinicConfig) Stride() time.Duration {
	return time.Duration(c.SlotStrideMinutes) * time.Minute
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "3306"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "vetclinic"),
	}

	// Build DSN (Data Source Name) for MySQL connection
	dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)

	openHour, err := getEnvInt("CLINIC_OPEN_HOUR", 8)
	if err != nil {
		return nil, err
	}
	closeHour, err := getEnvInt("CLINIC_CLOSE_HOUR", 20)
	if err != nil {
		return nil, err
	}
	if openHour < 0 || closeHour > 24 || openHour >= closeHour {
		return nil, fmt.Errorf("invalid operating window %d-%d", openHour, closeHour)
	}
	stride, err := getEnvInt("CLINIC_SLOT_STRIDE_MINUTES", 30)
	if err != nil {
		return nil, err
	}

	tz := getEnv("CLINIC_TIMEZONE", "Asia/Manila")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid CLINIC_TIMEZONE %q: %w", tz, err)
	}

	jwtExpMinutes, err := getEnvInt("JWT_EXPIRATION_MINUTES", 15)
	if err != nil {
		return nil, err
	}
	jwtRefreshExpHours, err := getEnvInt("JWT_REFRESH_EXPIRATION_HOURS", 168) // 7 days
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:             getEnv("PORT", "3001"),
		Origin:           getEnv("ORIGIN", "http://localhost:4200"),
		Environment:      getEnv("APP_ENV", "development"),
		JWTSecret:        getEnv("JWT_SECRET", "default_jwt_secret"),
		JWTRefreshSecret: getEnv("JWT_REFRESH_SECRET", "default_refresh_secret"),
		Database:         dbConfig,
		Clinic: ClinicConfig{
			OpenHour:          openHour,
			CloseHour:         closeHour,
			SlotStrideMinutes: stride,
			Timezone:          tz,
			Location:          loc,
		},
		JWTExpirationMinutes:      jwtExpMinutes,
		JWTRefreshExpirationHours: jwtRefreshExpHours,
	}, nil
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
