package logger

import (
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultFilePath  = "logs/healthmate.log"
	defaultMaxSizeMB = 50
	defaultMaxFiles  = 5
)

// FileConfig controls the rotating log file.
type FileConfig struct {
	Path      string
	MaxSizeMB int
	MaxFiles  int
}

// NewFileWriter opens a size-rotated, gzip-compressed log file. Zero values
// fall back to package defaults. The parent directory is created on first
// write.
func NewFileWriter(cfg FileConfig) *lumberjack.Logger {
	if cfg.Path == "" {
		cfg.Path = defaultFilePath
	}
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = defaultMaxSizeMB
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = defaultMaxFiles
	}
	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxFiles,
		LocalTime:  false,
		Compress:   true,
	}
}
