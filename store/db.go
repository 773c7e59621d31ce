package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"flashcw/logger"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	// 纯 Go 的 sqlite 驱动，不需要 CGO
	_ "modernc.org/sqlite"
)

// Config 解码记录的存储配置
type Config struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"` // sqlite 文件路径
}

// DB 包装 gorm 连接
type DB struct {
	db     *gorm.DB
	logger *logger.Logger
}

// NewDB 打开 (或创建) 数据库并迁移表结构
func NewDB(cfg Config, log *logger.Logger) (*DB, error) {
	if cfg.Path == "" {
		cfg.Path = "flashcw.db"
	}
	if log == nil {
		log = logger.Discard()
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	gormLog := gormlogger.New(
		&gormLogAdapter{log: log},
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	// gorm 的 sqlite 方言 + modernc 驱动
	dialector := sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        cfg.Path,
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to run %q: %w", pragma, err)
		}
	}

	if err := db.AutoMigrate(&Transcript{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Database initialized", logger.String("path", cfg.Path))
	return &DB{db: db, logger: log}, nil
}

// Close 关闭连接
func (d *DB) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetDB 底层 gorm 连接
func (d *DB) GetDB() *gorm.DB {
	return d.db
}

// Transcripts 解码记录仓库
func (d *DB) Transcripts() *TranscriptRepository {
	return NewTranscriptRepository(d.db)
}

// gormLogAdapter 把 gorm 的日志转到我们的 logger
type gormLogAdapter struct {
	log *logger.Logger
}

func (l *gormLogAdapter) Printf(format string, args ...interface{}) {
	l.log.Warn(fmt.Sprintf(format, args...))
}
