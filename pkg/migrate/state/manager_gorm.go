package state

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type GormManager struct {
	DB *gorm.DB
}

// NewSqliteGormManager opens (and migrates) the run history database at path.
func NewSqliteGormManager(path string) (*GormManager, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("could not open run history db %s : %w", path, err)
	}
	if err := db.AutoMigrate(&RunLog{}); err != nil {
		return nil, fmt.Errorf("could not migrate run history : %w", err)
	}
	if err := db.AutoMigrate(&TableRunLog{}); err != nil {
		return nil, fmt.Errorf("could not migrate run history : %w", err)
	}
	return &GormManager{DB: db}, nil
}

func (m *GormManager) OnShutDownEv() {
	run := m.GetLastRun()
	if run == nil || run.Status != Started {
		return
	}
	tx := m.DB.Begin()
	errTx := tx.Model(&RunLog{}).Where("run_id = ? AND status = ?", run.RunID, Started).Update("status", Aborted).Error
	if errTx != nil {
		tx.Rollback()
		return
	}
	errTx = tx.Model(&TableRunLog{}).Where("parent_run_id = ? AND status = ?", run.RunID, Started).Update("status", Aborted).Error
	if errTx != nil {
		tx.Rollback()
		return
	}
	tx.Commit()
}

func (m *GormManager) GetLastRun() *RunLog {
	var lastRun RunLog
	m.DB.Order("created_at desc").First(&lastRun)
	if lastRun.RunID == "" {
		return nil
	}
	return &lastRun
}

func (m *GormManager) GetRunLog(runID string) *RunLog {
	var runLog RunLog
	m.DB.Where("run_id = ?", runID).First(&runLog)
	return &runLog
}

func (m *GormManager) GetTableRunLogs(runID string) []*TableRunLog {
	var tableRunLogs []*TableRunLog
	m.DB.Where("parent_run_id = ?", runID).Find(&tableRunLogs)
	return tableRunLogs
}

func (m *GormManager) InitRunLog(runID string, totalTableCount int) {
	m.DB.Create(&RunLog{
		RunID:                 runID,
		TotalTablesForThisRun: totalTableCount,
		Status:                Started,
		Base:                  Base{CreatedAt: currentTime(), UpdatedAt: currentTime()},
	})
}

func (m *GormManager) FailedRunLog(runID string, rowsMigrated int64, err error) {
	var errMsg string
	if err != nil {
		errMsg = err.Error()
	}
	m.updateRunStatus(runID, Failed, rowsMigrated, errMsg)
}

func (m *GormManager) PassedRunLog(runID string, rowsMigrated int64) {
	m.updateRunStatus(runID, Success, rowsMigrated, "")
}

func (m *GormManager) CancelledRunLog(runID string, rowsMigrated int64) {
	m.updateRunStatus(runID, Cancelled, rowsMigrated, "")
}

func (m *GormManager) InitTableRunLog(runID string, tableName string) {
	m.DB.Create(&TableRunLog{
		ParentRunID: runID,
		TableName:   tableName,
		Status:      Started,
		Base:        Base{CreatedAt: currentTime(), UpdatedAt: currentTime()},
	})
}

func (m *GormManager) FailedTableRun(runID string, tableName string, errMsg string) {
	m.updateTableRunStatus(runID, tableName, Failed, 0, errMsg)
}

func (m *GormManager) PassedTableRun(runID string, tableName string, rowsWritten int64) {
	m.updateTableRunStatus(runID, tableName, Success, rowsWritten, "")
}

func (m *GormManager) CancelledTableRun(runID string, tableName string, rowsWritten int64) {
	m.updateTableRunStatus(runID, tableName, Cancelled, rowsWritten, "")
}

func (m *GormManager) DidTableFailForRun(runID string) bool {
	var failedTableRunLogs int64
	m.DB.Model(&TableRunLog{}).Where("parent_run_id = ? AND status = ?", runID, Failed).Count(&failedTableRunLogs)
	return failedTableRunLogs > 0
}

func (m *GormManager) updateRunStatus(runID string, status RunLogState, rows int64, errMsg string) {
	m.DB.Model(&RunLog{}).Where("run_id = ?", runID).Updates(map[string]any{
		"status":        status,
		"rows_migrated": rows,
		"err_msg":       errMsg,
		"updated_at":    currentTime(),
	})
}

func (m *GormManager) updateTableRunStatus(runID string, tableName string, status RunLogState, rows int64, errMsg string) {
	m.DB.Model(&TableRunLog{}).Where("parent_run_id = ? AND table_name = ?", runID, tableName).Updates(map[string]any{
		"status":       status,
		"rows_written": rows,
		"err_msg":      errMsg,
		"updated_at":   currentTime(),
	})
}

func currentTime() *time.Time {
	now := time.Now()
	return &now
}
