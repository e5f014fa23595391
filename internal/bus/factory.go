package bus

import (
	"fmt"
	"strings"

	"github.com/ricesearch/matcheval/internal/config"
	"github.com/ricesearch/matcheval/internal/pkg/errors"
	"github.com/ricesearch/matcheval/internal/pkg/logger"
)

// NewBus creates a Bus based on the configuration, journaled when an event
// log path is set.
func NewBus(cfg config.BusConfig, log *logger.Logger) (Bus, error) {
	var b Bus

	switch strings.ToLower(cfg.Type) {
	case "memory", "":
		b = NewMemoryBus(log)

	case "kafka":
		brokers := ParseKafkaBrokers(cfg.KafkaBrokers)
		if len(brokers) == 0 {
			return nil, errors.New(errors.CodeValidation, "kafka brokers not configured")
		}

		consumerGroup := cfg.KafkaGroup
		if consumerGroup == "" {
			consumerGroup = "matcheval"
		}

		kb, err := NewKafkaBus(KafkaConfig{
			Brokers:       brokers,
			ConsumerGroup: consumerGroup,
			ClientID:      "matcheval-bus",
			Version:       cfg.KafkaVersion,
		}, log)
		if err != nil {
			return nil, err
		}
		b = kb

	default:
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("unknown bus type: %s", cfg.Type))
	}

	if cfg.EventLog == "" {
		return b, nil
	}

	journal, err := OpenJournal(cfg.EventLog)
	if err != nil {
		b.Close()
		return nil, errors.Wrap(errors.CodeInternal, "opening event journal", err)
	}
	return NewJournaledBus(b, journal, log), nil
}
