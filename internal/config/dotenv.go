package config

import "github.com/joho/godotenv"

// LoadDotEnv reads .env style files into the environment.
// Variables already set in the environment are not overridden.
// A missing file is reported as an error the caller may ignore.
func LoadDotEnv(paths ...string) error {
	return godotenv.Load(paths...)
}
