package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig configures a rotating log file written next to the console
// output. Zero sizes use the lumberjack defaults.
type FileConfig struct {
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
	Compress   bool   `json:"compress"`
}

var (
	fileMu sync.RWMutex
	fileW  io.Writer
)

func fileWriter() io.Writer {
	fileMu.RLock()
	defer fileMu.RUnlock()
	return fileW
}

// OpenFile tees loggers created afterwards into a rotating JSON file. Closing
// the returned value detaches the file.
func OpenFile(cfg FileConfig) (io.Closer, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("log file: empty path")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("log file: %w", err)
		}
	}
	lj := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	fileMu.Lock()
	fileW = lj
	fileMu.Unlock()
	return &logFile{lj: lj}, nil
}

type logFile struct {
	lj *lumberjack.Logger
}

func (f *logFile) Close() error {
	fileMu.Lock()
	if fileW == f.lj {
		fileW = nil
	}
	fileMu.Unlock()
	return f.lj.Close()
}
