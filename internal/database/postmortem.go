package database

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// PostmortemStatus represents the lifecycle status of a postmortem
type PostmortemStatus string

const (
	PostmortemStatusDraft     PostmortemStatus = "draft"
	PostmortemStatusPublished PostmortemStatus = "published"
)

// ActionItem is a single follow-up action attached to a causal factor
type ActionItem struct {
	Description string `json:"description"`
	Priority    string `json:"priority"` // high, medium, low
}

// CausalFactor is one entry in a postmortem's causal analysis.
// InterceptionLayer names the lifecycle phase where the issue could have
// been caught: define, design, build, test, release, deploy, operate, response.
type CausalFactor struct {
	InterceptionLayer string       `json:"interception_layer"`
	Cause             string       `json:"cause"`
	SubCause          string       `json:"sub_cause,omitempty"`
	Description       string       `json:"description"`
	ActionItems       []ActionItem `json:"action_items,omitempty"`
}

// IsValid reports whether the factor carries the required fields.
// Factors missing any of these are dropped, never partially kept.
func (f CausalFactor) IsValid() bool {
	return f.InterceptionLayer != "" && f.Cause != "" && f.Description != ""
}

// CausalFactors is a custom type for a JSON column of causal factors
type CausalFactors []CausalFactor

// Scan implements the sql.Scanner interface
func (c *CausalFactors) Scan(value interface{}) error {
	if value == nil {
		*c = CausalFactors{}
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
	return json.Unmarshal(bytes, c)
}

// Value implements the driver.Valuer interface
func (c CausalFactors) Value() (driver.Value, error) {
	if c == nil {
		return json.Marshal([]CausalFactor{})
	}
	return json.Marshal(c)
}

// Postmortem is the structured record built from an incident after resolution.
// One postmortem exists per incident. AI generation overwrites whole sections;
// manual edits patch single fields.
type Postmortem struct {
	ID         uint             `gorm:"primaryKey" json:"id"`
	UUID       string           `gorm:"uniqueIndex;size:36;not null" json:"uuid"`
	IncidentID uint             `gorm:"uniqueIndex;not null" json:"incident_id"`
	Status     PostmortemStatus `gorm:"type:varchar(20);not null;default:'draft'" json:"status"`

	// Business impact section
	BusinessImpactApplication string     `gorm:"type:varchar(255)" json:"business_impact_application"`
	BusinessImpactStart       *time.Time `json:"business_impact_start,omitempty"`
	BusinessImpactEnd         *time.Time `json:"business_impact_end,omitempty"`
	DurationMinutes           *int       `json:"duration_minutes,omitempty"`
	BusinessImpactDescription string     `gorm:"type:text" json:"business_impact_description"`
	AffectedCountries         StringList `gorm:"type:text" json:"affected_countries"`
	RegulatoryReporting       bool       `gorm:"default:false" json:"regulatory_reporting"`
	RegulatoryEntity          string     `gorm:"type:varchar(255)" json:"regulatory_entity"`

	MitigationDescription string `gorm:"type:text" json:"mitigation_description"`

	CausalAnalysis CausalFactors `gorm:"type:text" json:"causal_analysis"`

	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Belongs to Incident
	Incident Incident `gorm:"foreignKey:IncidentID" json:"-"`
}

func (Postmortem) TableName() string {
	return "postmortems"
}

// RecomputeDuration derives DurationMinutes from the impact boundaries.
// Only computed when both boundaries are set; floored to whole minutes and
// never negative. Must be called whenever either boundary changes.
func (p *Postmortem) RecomputeDuration() {
	if p.BusinessImpactStart == nil || p.BusinessImpactEnd == nil {
		p.DurationMinutes = nil
		return
	}
	minutes := int(p.BusinessImpactEnd.Sub(*p.BusinessImpactStart).Minutes())
	if minutes < 0 {
		minutes = 0
	}
	p.DurationMinutes = &minutes
}

// GetPostmortemByIncidentID returns the postmortem belonging to an incident
func GetPostmortemByIncidentID(db *gorm.DB, incidentID uint) (*Postmortem, error) {
	var pm Postmortem
	if err := db.Where("incident_id = ?", incidentID).First(&pm).Error; err != nil {
		return nil, err
	}
	return &pm, nil
}

// SavePostmortem persists the full postmortem record
func SavePostmortem(db *gorm.DB, pm *Postmortem) error {
	pm.RecomputeDuration()
	return db.Save(pm).Error
}

// PublishPostmortem transitions a postmortem from draft to published.
// PublishedAt is set exactly once: re-publishing after an edit keeps the
// original timestamp. Returns the updated record.
func PublishPostmortem(db *gorm.DB, incidentID uint) (*Postmortem, error) {
	var pm *Postmortem
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		pm, err = GetPostmortemByIncidentID(tx, incidentID)
		if err != nil {
			return err
		}
		updates := map[string]interface{}{"status": PostmortemStatusPublished}
		if pm.PublishedAt == nil {
			now := time.Now().UTC()
			pm.PublishedAt = &now
			updates["published_at"] = &now
		}
		pm.Status = PostmortemStatusPublished
		return tx.Model(pm).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return pm, nil
}
