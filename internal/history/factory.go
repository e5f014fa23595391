package history

import (
	"fmt"
	"strings"
	"time"

	"github.com/ricesearch/matcheval/internal/config"
	apperrors "github.com/ricesearch/matcheval/internal/pkg/errors"
)

// NewStore creates a Store based on the configuration.
func NewStore(cfg config.HistoryConfig) (Store, error) {
	switch strings.ToLower(cfg.Type) {
	case "memory", "":
		return NewMemoryStore(cfg.MaxRuns), nil

	case "redis":
		if cfg.RedisURL == "" {
			return nil, apperrors.ValidationError("redis history requires a redis URL")
		}
		store, err := NewRedisStore(cfg.RedisURL, time.Duration(cfg.TTLHours)*time.Hour)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeUnavailable, "connecting to run history", err)
		}
		return store, nil

	default:
		return nil, apperrors.ValidationError(fmt.Sprintf("unknown history type: %s", cfg.Type))
	}
}
