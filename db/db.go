package db

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"equipment_lending/models"
)

type Config struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	SSLMode  string
	Debug    bool
}

func (c Config) DSN() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.Host, c.User, c.Password, c.Name, c.Port, sslmode,
	)
}

// ConnectDB opens the pool, pings it and runs migrations.
func ConnectDB(cfg Config) (*gorm.DB, error) {
	return Open(cfg.DSN(), cfg.Debug)
}

func Open(dsn string, debug bool) (*gorm.DB, error) {
	gormLogger := logger.Default.LogMode(logger.Error)
	if debug {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:  gormLogger,
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := Migrate(conn); err != nil {
		return nil, fmt.Errorf("failed to migrate models: %w", err)
	}
	return conn, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Equipment{}, &models.BookingRequest{}, &models.Loan{}); err != nil {
		return err
	}

	// 占用计算只扫 BORROWED
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_borrowed_window
	  ON %s (equipment_id, borrowed_at, due_at)
	  WHERE status = 'BORROWED';
	`, models.LoanTable, models.LoanTable)).Error; err != nil {
		return err
	}

	// 待审批列表
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_pending_created
	  ON %s (created_at)
	  WHERE status = 'PENDING';
	`, models.BookingTable, models.BookingTable)).Error; err != nil {
		return err
	}

	return nil
}
