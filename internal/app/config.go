package app

import (
	"time"

	"github.com/echolabs/twinsight-backend/internal/logger"
	"github.com/echolabs/twinsight-backend/internal/server"
	"github.com/echolabs/twinsight-backend/internal/utils"
)

type Config struct {
	JWTSecretKey      string
	TokenCipherSecret string
	TokenCipherSalt   string
	AllowOrigins      []string

	// Pattern detection tuning
	WindowMinutes  int
	MinOccurrences int
	MinConfidence  float64
	LookbackDays   int

	// Tracker loop
	TrackerInterval   time.Duration
	TrackerBatchLimit int

	Environment string
	Version     string
}

func LoadConfig(log *logger.Logger) Config {
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	cipherSecret := utils.GetEnv("TOKEN_CIPHER_SECRET", "defaultcipher", log)
	cipherSalt := utils.GetEnv("TOKEN_CIPHER_SALT", "twinsight-token-salt", log)
	origins := server.SplitOrigins(utils.GetEnv("CORS_ALLOW_ORIGINS", "", log))

	windowMinutes := utils.GetEnvAsInt("PATTERN_WINDOW_MINUTES", 180, log)
	minOccurrences := utils.GetEnvAsInt("PATTERN_MIN_OCCURRENCES", 3, log)
	minConfidence := utils.GetEnvAsFloat("PATTERN_MIN_CONFIDENCE", 50, log)
	lookbackDays := utils.GetEnvAsInt("PATTERN_LOOKBACK_DAYS", 90, log)

	trackerIntervalMins := utils.GetEnvAsInt("TRACKER_INTERVAL_MINUTES", 15, log)
	trackerBatchLimit := utils.GetEnvAsInt("TRACKER_BATCH_LIMIT", 5, log)

	return Config{
		JWTSecretKey:      jwtSecretKey,
		TokenCipherSecret: cipherSecret,
		TokenCipherSalt:   cipherSalt,
		AllowOrigins:      origins,
		WindowMinutes:     windowMinutes,
		MinOccurrences:    minOccurrences,
		MinConfidence:     minConfidence,
		LookbackDays:      lookbackDays,
		TrackerInterval:   time.Duration(trackerIntervalMins) * time.Minute,
		TrackerBatchLimit: trackerBatchLimit,
		Environment:       utils.GetEnv("APP_ENV", "development", log),
		Version:           utils.GetEnv("APP_VERSION", "dev", log),
	}
}
