package buildlog

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	libsql "github.com/tursodatabase/libsql-client-go/libsql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Log wraps the gorm handle for the compile-run log.
type Log struct {
	db *gorm.DB
}

// Connect opens the build log and runs migrations. dsn is either a file
// path or a libsql URL (libsql:// or wss://); a shared team log uses the
// latter with A7C_LIBSQL_AUTH_TOKEN for authentication.
func Connect(dsn string, debug bool) (*Log, error) {
	if !isURL(dsn) {
		dir := filepath.Dir(dsn)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	config := &gorm.Config{}
	if debug {
		config.Logger = logger.Default.LogMode(logger.Info)
	}

	var dialector gorm.Dialector
	if isURL(dsn) {
		var (
			connector driver.Connector
			err       error
		)
		token := os.Getenv("A7C_LIBSQL_AUTH_TOKEN")
		if token != "" {
			connector, err = libsql.NewConnector(dsn, libsql.WithAuthToken(token))
		} else {
			connector, err = libsql.NewConnector(dsn)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create libsql connector: %w", err)
		}
		conn := sql.OpenDB(connector)
		dialector = sqlite.New(sqlite.Config{
			DriverName: "libsql",
			Conn:       conn,
			DSN:        dsn,
		})
	} else {
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, config)
	if err != nil {
		return nil, fmt.Errorf("failed to open build log: %w", err)
	}
	if err := db.AutoMigrate(&Run{}); err != nil {
		return nil, fmt.Errorf("failed to migrate build log: %w", err)
	}
	return &Log{db: db}, nil
}

func isURL(dsn string) bool {
	return strings.Contains(dsn, "://")
}

// Record inserts one run, assigning a uuid when ID is empty. Empty stage
// or diagnostic columns are stored as {} and [].
func (l *Log) Record(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if len(run.Stages) == 0 {
		run.Stages = []byte("{}")
	}
	if len(run.Diagnostics) == 0 {
		run.Diagnostics = []byte("[]")
	}
	if err := l.db.Create(run).Error; err != nil {
		return fmt.Errorf("build log insert: %w", err)
	}
	return nil
}

// NewRun builds a Run row from the interesting parts of a compilation.
func NewRun(inputPath, mode, backend, status string, exitCode int, timingMS int64,
	stages map[string]any, diagnostics []map[string]any) *Run {

	stagesJSON, err := json.Marshal(stages)
	if err != nil {
		stagesJSON = []byte("{}")
	}
	diagJSON, err := json.Marshal(diagnostics)
	if err != nil {
		diagJSON = []byte("[]")
	}

	return &Run{
		ID:          uuid.NewString(),
		InputPath:   inputPath,
		Mode:        mode,
		Backend:     backend,
		Status:      status,
		ExitCode:    exitCode,
		TimingMS:    timingMS,
		Stages:      stagesJSON,
		Diagnostics: diagJSON,
	}
}

// Recent returns the latest n runs, newest first.
func (l *Log) Recent(n int) ([]Run, error) {
	var runs []Run
	err := l.db.Order("created_at DESC").Limit(n).Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("build log query: %w", err)
	}
	return runs, nil
}

// RecentFor returns the latest n runs for one input path, newest first.
func (l *Log) RecentFor(inputPath string, n int) ([]Run, error) {
	var runs []Run
	err := l.db.Where("input_path = ?", inputPath).
		Order("created_at DESC").Limit(n).Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("build log query: %w", err)
	}
	return runs, nil
}
