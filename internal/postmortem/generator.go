package postmortem

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/erikwj/sre-platform/internal/database"
	"github.com/erikwj/sre-platform/internal/llm"
)

// Stage identifies one chunk of the sequential postmortem generation
type Stage string

const (
	StageBusinessImpact Stage = "business_impact"
	StageMitigation     Stage = "mitigation"
	StageCausalAnalysis Stage = "causal_analysis"
)

// generationStages is the fixed execution order
var generationStages = []Stage{StageBusinessImpact, StageMitigation, StageCausalAnalysis}

// stageMarkers maps each stage to the section marker its prompt requests
var stageMarkers = map[Stage]string{
	StageBusinessImpact: markerBusinessImpact,
	StageMitigation:     markerMitigation,
	StageCausalAnalysis: markerCausalAnalysis,
}

// ErrGenerationInProgress is returned when a generate request arrives while
// another run for the same incident is still in flight. Interleaved runs
// would corrupt the record with out-of-order section merges.
var ErrGenerationInProgress = errors.New("postmortem generation already in progress for this incident")

// GenerationState is the queryable progress of a generation run
type GenerationState struct {
	Stage           Stage     `json:"stage"`
	CompletedStages []Stage   `json:"completed_stages"`
	Running         bool      `json:"running"`
	LastError       string    `json:"last_error,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Generator drives chunked postmortem generation: one completion per
// section, each independently extracted and merged, with partial progress
// persisted after every stage.
type Generator struct {
	db        *gorm.DB
	providers llm.Factory

	stageTimeout time.Duration
	maxTokens    int

	mu     sync.Mutex
	states map[uint]*GenerationState
}

// NewGenerator creates a generator backed by the given provider factory
func NewGenerator(db *gorm.DB, providers llm.Factory, stageTimeout time.Duration, maxTokens int) *Generator {
	return &Generator{
		db:           db,
		providers:    providers,
		stageTimeout: stageTimeout,
		maxTokens:    maxTokens,
		states:       make(map[uint]*GenerationState),
	}
}

// Status returns a copy of the last known generation state for an incident.
// The zero state (no stage, not running) means generation has never run.
func (g *Generator) Status(incidentID uint) GenerationState {
	g.mu.Lock()
	defer g.mu.Unlock()
	if st, ok := g.states[incidentID]; ok {
		cp := *st
		cp.CompletedStages = append([]Stage(nil), st.CompletedStages...)
		return cp
	}
	return GenerationState{}
}

// Generate runs all stages in order for an incident, merging each stage's
// extraction into the postmortem and saving after every stage. A stage
// failure aborts the remaining stages but keeps everything already merged;
// the caller may retry, which re-runs from the first stage over the
// existing record (AI generation overwrites whole sections).
//
// Exactly one run per incident may be in flight; concurrent requests get
// ErrGenerationInProgress.
func (g *Generator) Generate(ctx context.Context, incidentID uint) (*database.Postmortem, error) {
	if err := g.begin(incidentID); err != nil {
		return nil, err
	}
	defer g.finish(incidentID)

	completions, err := g.providers.Completions()
	if err != nil {
		g.recordError(incidentID, err)
		return nil, fmt.Errorf("completion provider: %w", err)
	}

	incident, err := database.GetIncidentByID(g.db, incidentID)
	if err != nil {
		g.recordError(incidentID, err)
		return nil, fmt.Errorf("failed to load incident %d: %w", incidentID, err)
	}

	pm, err := g.getOrCreateDraft(incidentID)
	if err != nil {
		g.recordError(incidentID, err)
		return nil, err
	}

	for _, stage := range generationStages {
		g.setStage(incidentID, stage)

		stageCtx, cancel := context.WithTimeout(ctx, g.stageTimeout)
		completion, err := completions.Complete(stageCtx, BuildStagePrompt(stage, incident), g.maxTokens)
		cancel()
		if err != nil {
			g.recordError(incidentID, err)
			// Earlier stages stay merged; the caller sees the partial
			// record alongside the error and may retry.
			return pm, fmt.Errorf("generation stage %s failed: %w", stage, err)
		}

		g.mergeStage(pm, stage, completion, incident)

		if err := database.SavePostmortem(g.db, pm); err != nil {
			g.recordError(incidentID, err)
			return pm, fmt.Errorf("failed to persist stage %s: %w", stage, err)
		}
		g.completeStage(incidentID, stage)
		log.Printf("Generator: incident %d stage %s completed", incidentID, stage)
	}

	return pm, nil
}

// mergeStage applies one stage's extraction as a full-section overwrite.
// Completions are asked to lead with their marker line; strip it so section
// parsers see only the body (the causal array scanner would otherwise latch
// onto the marker's own brackets).
func (g *Generator) mergeStage(pm *database.Postmortem, stage Stage, completion string, incident *database.Incident) {
	if body, ok := splitSections(completion)[stageMarkers[stage]]; ok {
		completion = body
	}
	switch stage {
	case StageBusinessImpact:
		impact := ExtractBusinessImpact(completion, incident)
		pm.BusinessImpactApplication = impact.Application
		pm.BusinessImpactStart = impact.Start
		pm.BusinessImpactEnd = impact.End
		pm.BusinessImpactDescription = impact.Description
		pm.AffectedCountries = impact.AffectedCountries
		pm.RegulatoryReporting = impact.RegulatoryReporting
		pm.RegulatoryEntity = impact.RegulatoryEntity
	case StageMitigation:
		pm.MitigationDescription = ExtractMitigation(completion)
	case StageCausalAnalysis:
		pm.CausalAnalysis = ExtractCausalAnalysis(completion)
	}
}

// getOrCreateDraft loads the incident's postmortem, creating an empty draft
// on first generation
func (g *Generator) getOrCreateDraft(incidentID uint) (*database.Postmortem, error) {
	pm, err := database.GetPostmortemByIncidentID(g.db, incidentID)
	if err == nil {
		return pm, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load postmortem: %w", err)
	}
	pm = &database.Postmortem{
		UUID:       uuid.NewString(),
		IncidentID: incidentID,
		Status:     database.PostmortemStatusDraft,
	}
	if err := g.db.Create(pm).Error; err != nil {
		return nil, fmt.Errorf("failed to create postmortem draft: %w", err)
	}
	return pm, nil
}

func (g *Generator) begin(incidentID uint) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if st, ok := g.states[incidentID]; ok && st.Running {
		return ErrGenerationInProgress
	}
	g.states[incidentID] = &GenerationState{
		Running:   true,
		UpdatedAt: time.Now(),
	}
	return nil
}

func (g *Generator) finish(incidentID uint) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if st, ok := g.states[incidentID]; ok {
		st.Running = false
		st.UpdatedAt = time.Now()
	}
}

func (g *Generator) setStage(incidentID uint, stage Stage) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if st, ok := g.states[incidentID]; ok {
		st.Stage = stage
		st.UpdatedAt = time.Now()
	}
}

func (g *Generator) completeStage(incidentID uint, stage Stage) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if st, ok := g.states[incidentID]; ok {
		st.CompletedStages = append(st.CompletedStages, stage)
		st.UpdatedAt = time.Now()
	}
}

func (g *Generator) recordError(incidentID uint, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if st, ok := g.states[incidentID]; ok {
		st.LastError = err.Error()
		st.UpdatedAt = time.Now()
	}
}
