// Package persistence records StrategyReport events for later analysis.
// It is an optional ambient collaborator: no core package imports it, and
// the orchestrator runs unaffected if it is never wired in.
package persistence

import (
	"fmt"
	"math/big"
	"time"

	"github.com/blackholedex/arbengine/internal/orchestrator"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ReportRecord is the database model for one StrategyReport event.
type ReportRecord struct {
	ID               uint      `gorm:"primaryKey;autoIncrement"`
	Timestamp        time.Time `gorm:"index;not null"`
	VaultName        string    `gorm:"index;not null"`
	EventType        string    `gorm:"not null"`
	Message          string    `gorm:"type:text"`
	Phase            int       `gorm:"not null;comment:orchestrator.StrategyPhase as integer"`
	GasCostWei       string    `gorm:"type:varchar(78);not null;comment:big.Int as string"`
	CumulativeGasWei string    `gorm:"type:varchar(78);not null;comment:big.Int as string"`
	ProfitUSD        float64
	NetPnLUSD        float64
	ErrorMessage     string `gorm:"type:text"`
	NFTTokenID       string    `gorm:"type:varchar(78);comment:big.Int as string"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM.
func (ReportRecord) TableName() string { return "strategy_reports" }

// Recorder persists StrategyReport events.
type Recorder interface {
	RecordReport(vaultName string, report orchestrator.StrategyReport) error
}

// MySQLRecorder implements Recorder using GORM and MySQL.
type MySQLRecorder struct {
	db *gorm.DB
}

// NewMySQLRecorder dials dsn and auto-migrates the report schema.
func NewMySQLRecorder(dsn string) (*MySQLRecorder, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		return nil, fmt.Errorf("persistence: connecting to mysql: %w", err)
	}
	if err := db.AutoMigrate(&ReportRecord{}); err != nil {
		return nil, fmt.Errorf("persistence: migrating schema: %w", err)
	}
	return &MySQLRecorder{db: db}, nil
}

// NewMySQLRecorderWithDB wraps an existing GORM DB instance (for example a
// sqlmock-backed connection) and auto-migrates the report schema.
func NewMySQLRecorderWithDB(db *gorm.DB) (*MySQLRecorder, error) {
	if err := db.AutoMigrate(&ReportRecord{}); err != nil {
		return nil, fmt.Errorf("persistence: migrating schema: %w", err)
	}
	return &MySQLRecorder{db: db}, nil
}

// RecordReport implements Recorder.
func (r *MySQLRecorder) RecordReport(vaultName string, report orchestrator.StrategyReport) error {
	errMsg := ""
	if report.Err != nil {
		errMsg = report.Err.Error()
	}

	record := ReportRecord{
		Timestamp:        report.Timestamp,
		VaultName:        vaultName,
		EventType:        report.EventType,
		Message:          report.Message,
		Phase:            int(report.Phase),
		GasCostWei:       bigIntToString(report.GasCostWei),
		CumulativeGasWei: bigIntToString(report.CumulativeGasWei),
		ProfitUSD:        report.ProfitUSD,
		NetPnLUSD:        report.NetPnLUSD,
		ErrorMessage:     errMsg,
		NFTTokenID:       bigIntToString(report.NFTTokenID),
	}

	if result := r.db.Create(&record); result.Error != nil {
		return fmt.Errorf("persistence: recording report: %w", result.Error)
	}
	return nil
}

// Close closes the underlying database connection.
func (r *MySQLRecorder) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("persistence: getting underlying db: %w", err)
	}
	return sqlDB.Close()
}

// CountReports returns the total number of persisted reports.
func (r *MySQLRecorder) CountReports() (int64, error) {
	var count int64
	if result := r.db.Model(&ReportRecord{}).Count(&count); result.Error != nil {
		return 0, fmt.Errorf("persistence: counting reports: %w", result.Error)
	}
	return count, nil
}

func bigIntToString(value *big.Int) string {
	if value == nil {
		return "0"
	}
	return value.String()
}
