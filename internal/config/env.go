package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// ReadEnv loads the dotenv file picked by ENV from dir. Variables already set
// in the process win. It returns os.ErrNotExist when the file is missing.
func ReadEnv(dir string) error {
	env := strings.ToLower(strings.TrimSpace(os.Getenv("ENV")))
	if env == "" {
		env = strings.ToLower(strings.TrimSpace(os.Getenv("env")))
	}
	name := ".env"
	switch env {
	case "prd", "prod", "production":
		name = ".env.production"
	case "stg", "staging":
		name = ".env.staging"
	case "dev", "development":
		name = ".env.development"
	case "local":
		name = ".env.local"
	}
	filename := filepath.Join(dir, name)
	if _, err := os.Stat(filename); err != nil {
		return err
	}

	envMap, err := godotenv.Read(filename)
	if err != nil {
		return err
	}
	for k, v := range envMap {
		if _, set := os.LookupEnv(k); set {
			continue
		}
		_ = os.Setenv(k, v)
	}
	return nil
}
