package services

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"
)

// LoggerService handles application logging: one file per day under the log
// directory, mirrored to stdout through the standard logger.
type LoggerService struct {
	logDir     string
	logFile    *os.File
	currentDay string
}

// NewLoggerService creates a new logger service writing under logDir
func NewLoggerService(logDir string) *LoggerService {
	service := &LoggerService{logDir: logDir}
	service.initializeLogger()
	return service
}

func (s *LoggerService) initializeLogger() {
	if s.logDir == "" {
		s.logDir = "logs"
	}
	if err := os.MkdirAll(s.logDir, 0755); err != nil {
		log.Printf("Warning: could not create logs directory: %v. Logging to stdout only.", err)
		log.SetFlags(log.LstdFlags | log.Lshortfile)
		return
	}

	if err := s.rotateLogFile(); err != nil {
		log.Printf("Warning: could not create log file: %v. Logging to stdout only.", err)
		log.SetFlags(log.LstdFlags | log.Lshortfile)
		return
	}
}

// rotateLogFile opens the log file for today, closing yesterday's
func (s *LoggerService) rotateLogFile() error {
	day := time.Now().Format("2006-01-02")
	if day == s.currentDay && s.logFile != nil {
		return nil
	}

	if s.logFile != nil {
		s.logFile.Close()
	}

	path := filepath.Join(s.logDir, fmt.Sprintf("posledger_%s.log", day))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	s.logFile = file
	s.currentDay = day
	log.SetOutput(io.MultiWriter(os.Stdout, s.logFile))
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	return nil
}

// LogInfo logs an informational message
func (s *LoggerService) LogInfo(message string, details ...string) {
	s.rotateLogFile()
	if len(details) > 0 {
		log.Printf("[INFO] %s: %s", message, details[0])
	} else {
		log.Printf("[INFO] %s", message)
	}
}

// LogWarning logs a warning
func (s *LoggerService) LogWarning(message string, details ...string) {
	s.rotateLogFile()
	if len(details) > 0 {
		log.Printf("[WARN] %s: %s", message, details[0])
	} else {
		log.Printf("[WARN] %s", message)
	}
}

// LogError logs an error with its message
func (s *LoggerService) LogError(message string, err error) {
	s.rotateLogFile()
	if err != nil {
		log.Printf("[ERROR] %s: %v", message, err)
	} else {
		log.Printf("[ERROR] %s", message)
	}
}

// RecoverPanic logs a recovered panic with its stack. Use as a deferred call
// in goroutines so one crashing worker does not take the process down.
func (s *LoggerService) RecoverPanic() {
	if r := recover(); r != nil {
		log.Printf("[PANIC] %v\n%s", r, debug.Stack())
	}
}

// Close closes the current log file
func (s *LoggerService) Close() {
	if s.logFile != nil {
		s.logFile.Close()
		s.logFile = nil
	}
}
