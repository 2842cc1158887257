package env

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

var values map[string]string

// envFileCandidates covers running from the repo root and from the cmd/
// binaries during development.
var envFileCandidates = []string{".env", "../../.env", "../../../.env"}

// SetupEnvFile loads the first .env file found. Without one the process
// cannot know its database or gateway credentials, so this is fatal.
func SetupEnvFile() {
	for _, candidate := range envFileCandidates {
		if parsed, err := godotenv.Read(candidate); err == nil {
			values = parsed
			return
		}
	}
	panic("no .env file found")
}

// GetEnv returns the configured value for key, preferring the .env file
// over the process environment.
func GetEnv(key, def string) string {
	if val, ok := values[key]; ok {
		return val
	}
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// GetInt returns the configured value for key as an integer. Unset,
// unparsable or non-positive values fall back to def.
func GetInt(key string, def int) int {
	raw := GetEnv(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func IsDev() bool {
	return GetEnv("APP_ENV", "prod") == "dev"
}
