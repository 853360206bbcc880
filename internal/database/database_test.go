package database

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testSeq int

// openTestDB opens a migrated in-memory database for store tests
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	// Extra pool connections would each get their own empty in-memory database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access connection pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	err = db.AutoMigrate(
		&LLMSettings{},
		&SlackSettings{},
		&Incident{},
		&Postmortem{},
		&PostmortemEmbedding{},
		&IncidentRecommendation{},
	)
	if err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return db
}

func createIncident(t *testing.T, db *gorm.DB) Incident {
	t.Helper()
	testSeq++
	incident := Incident{
		UUID:     fmt.Sprintf("00000000-0000-4000-8000-%012d", testSeq),
		Number:   fmt.Sprintf("INC-T%04d", testSeq),
		Title:    "Test incident",
		Severity: IncidentSeverityMedium,
		Status:   IncidentStatusOpen,
	}
	if err := db.Create(&incident).Error; err != nil {
		t.Fatalf("failed to create incident: %v", err)
	}
	return incident
}

func createPostmortem(t *testing.T, db *gorm.DB, incidentID uint, status PostmortemStatus) Postmortem {
	t.Helper()
	testSeq++
	pm := Postmortem{
		UUID:       fmt.Sprintf("pm-%d-%d", incidentID, testSeq),
		IncidentID: incidentID,
		Status:     status,
	}
	if status == PostmortemStatusPublished {
		now := time.Now()
		pm.PublishedAt = &now
	}
	if err := db.Create(&pm).Error; err != nil {
		t.Fatalf("failed to create postmortem: %v", err)
	}
	return pm
}
