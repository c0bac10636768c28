package config

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
)

var (
	// Process-wide dependencies, set once in main (or TestMain) and
	// never mutated afterwards.
	DB          *sql.DB
	RedisClient *redis.Client
	SecretKey   = []byte("secret")
	Validate    = validator.New()
	Ctx         = context.Background()
	UploadDir   = "uploads"
)
