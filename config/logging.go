package config

import (
	"fmt"

	"github.com/kilianp07/carbridge/infra/logger"
)

func validateLevel(level string) error {
	if _, err := logger.ParseLevel(level); err != nil {
		return fmt.Errorf("%w: log_level: %v", ErrConfiguration, err)
	}
	return nil
}

func validateLogFile(f logger.FileConfig) error {
	if f.MaxSizeMB < 0 || f.MaxBackups < 0 || f.MaxAgeDays < 0 {
		return fmt.Errorf("%w: log_file: sizes must not be negative", ErrConfiguration)
	}
	return nil
}
