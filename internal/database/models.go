package database

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// StringList is a custom type for JSON string-array columns
type StringList []string

// Scan implements the sql.Scanner interface
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return errors.New("type assertion to []byte failed")
		}
		bytes = []byte(s)
	}
	return json.Unmarshal(bytes, l)
}

// Value implements the driver.Valuer interface
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(l)
}

// IncidentSeverity represents normalized severity levels
type IncidentSeverity string

const (
	IncidentSeverityCritical IncidentSeverity = "critical"
	IncidentSeverityHigh     IncidentSeverity = "high"
	IncidentSeverityMedium   IncidentSeverity = "medium"
	IncidentSeverityLow      IncidentSeverity = "low"
)

// IncidentStatus represents the status of an incident
type IncidentStatus string

const (
	IncidentStatusOpen          IncidentStatus = "open"
	IncidentStatusInvestigating IncidentStatus = "investigating"
	IncidentStatusResolved      IncidentStatus = "resolved"
	IncidentStatusClosed        IncidentStatus = "closed"
)

// IsTerminal returns true once an incident is resolved or closed.
// Callers stop requesting recommendation refreshes for terminal incidents.
func (s IncidentStatus) IsTerminal() bool {
	return s == IncidentStatusResolved || s == IncidentStatusClosed
}

// Incident represents a tracked production incident
type Incident struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	UUID             string           `gorm:"uniqueIndex;size:36;not null" json:"uuid"`
	Number           string           `gorm:"uniqueIndex;size:32;not null" json:"number"` // Human-facing identifier, e.g. "INC-1042"
	Title            string           `gorm:"type:varchar(255);not null" json:"title"`
	Description      string           `gorm:"type:text" json:"description"`
	Severity         IncidentSeverity `gorm:"type:varchar(20);not null;default:'medium'" json:"severity"`
	Status           IncidentStatus   `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	ProblemStatement string           `gorm:"type:text" json:"problem_statement"`
	Impact           string           `gorm:"type:text" json:"impact"`
	Causes           string           `gorm:"type:text" json:"causes"`
	StepsToResolve   string           `gorm:"type:text" json:"steps_to_resolve"`
	AffectedServices StringList       `gorm:"type:text" json:"affected_services"`
	DetectedAt       *time.Time       `json:"detected_at,omitempty"`
	ResolvedAt       *time.Time       `json:"resolved_at,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func (Incident) TableName() string {
	return "incidents"
}

// GetIncidentByUUID returns an incident by UUID
func GetIncidentByUUID(db *gorm.DB, uuid string) (*Incident, error) {
	var incident Incident
	if err := db.Where("uuid = ?", uuid).First(&incident).Error; err != nil {
		return nil, err
	}
	return &incident, nil
}

// GetIncidentByID returns an incident by primary key
func GetIncidentByID(db *gorm.DB, id uint) (*Incident, error) {
	var incident Incident
	if err := db.First(&incident, id).Error; err != nil {
		return nil, err
	}
	return &incident, nil
}

// DeleteIncident removes an incident and everything derived from it:
// its postmortem, the postmortem's embedding, and any recommendation
// cache rows that reference the incident on either side.
func DeleteIncident(db *gorm.DB, incidentID uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var pm Postmortem
		err := tx.Where("incident_id = ?", incidentID).First(&pm).Error
		if err == nil {
			if err := tx.Where("postmortem_id = ?", pm.ID).Delete(&PostmortemEmbedding{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&pm).Error; err != nil {
				return err
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := tx.Where("query_incident_id = ? OR recommended_incident_id = ?", incidentID, incidentID).
			Delete(&IncidentRecommendation{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Incident{}, incidentID).Error
	})
}
