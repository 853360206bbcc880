package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/erikwj/sre-platform/internal/database"
	"github.com/erikwj/sre-platform/internal/llm"
	"github.com/erikwj/sre-platform/internal/postmortem"
	"github.com/erikwj/sre-platform/internal/utils"
)

// RecommendationItem is one entry of the outward recommendations payload.
// Field names are a stable contract with callers.
type RecommendationItem struct {
	IncidentID      uint     `json:"incidentId"`
	IncidentNumber  string   `json:"incidentNumber"`
	Title           string   `json:"title"`
	Severity        string   `json:"severity"`
	SimilarityScore float64  `json:"similarityScore"`
	Recommendation  string   `json:"recommendation"`
	Details         string   `json:"details"`
	Actions         []string `json:"actions"`
}

// Recommendations is the outward payload for a recommendation request.
// Available=false means no provider is configured (hide the feature);
// an empty Recommendations list with Available=true is a valid cold-start
// outcome, not an error.
type Recommendations struct {
	Available       bool                 `json:"available"`
	Cached          bool                 `json:"cached"`
	Message         string               `json:"message,omitempty"`
	Error           string               `json:"error,omitempty"`
	Recommendations []RecommendationItem `json:"recommendations"`
}

// Recommender answers "which past incidents looked like this one" with
// LLM-synthesized, time-box-cached recommendations.
type Recommender struct {
	db        *gorm.DB
	providers llm.Factory

	freshness        time.Duration
	topN             int
	embedTimeout     time.Duration
	synthesisTimeout time.Duration
	maxTokens        int

	mu       sync.Mutex
	inflight map[uint]*sync.Mutex
}

// RecommenderOptions carries the tunable policy parameters
type RecommenderOptions struct {
	Freshness        time.Duration
	TopN             int
	EmbedTimeout     time.Duration
	SynthesisTimeout time.Duration
	MaxTokens        int
}

// NewRecommender creates a recommender with the given policy
func NewRecommender(db *gorm.DB, providers llm.Factory, opts RecommenderOptions) *Recommender {
	return &Recommender{
		db:               db,
		providers:        providers,
		freshness:        opts.Freshness,
		topN:             opts.TopN,
		embedTimeout:     opts.EmbedTimeout,
		synthesisTimeout: opts.SynthesisTimeout,
		maxTokens:        opts.MaxTokens,
		inflight:         make(map[uint]*sync.Mutex),
	}
}

// GetRecommendations returns cached recommendations when fresh, otherwise
// computes a new set: embed the incident's live fields, retrieve similar
// published postmortems, synthesize per-candidate recommendations, and
// atomically replace the cache. Concurrent refreshes for the same incident
// serialize behind each other.
func (r *Recommender) GetRecommendations(ctx context.Context, incidentID uint, forceRefresh bool) (*Recommendations, error) {
	completions, err := r.providers.Completions()
	if errors.Is(err, llm.ErrNotConfigured) {
		return &Recommendations{
			Available:       false,
			Message:         "No AI provider is configured; recommendations are unavailable.",
			Recommendations: []RecommendationItem{},
		}, nil
	}
	if err != nil {
		return nil, err
	}
	embeddings, err := r.providers.Embeddings()
	if err != nil {
		return nil, err
	}

	lock := r.incidentLock(incidentID)
	lock.Lock()
	defer lock.Unlock()

	if !forceRefresh {
		if result := r.fromCache(incidentID); result != nil {
			return result, nil
		}
	}

	incident, err := database.GetIncidentByID(r.db, incidentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load incident %d: %w", incidentID, err)
	}

	embedCtx, cancel := context.WithTimeout(ctx, r.embedTimeout)
	queryVector, err := embeddings.Embed(embedCtx, buildQueryText(incident))
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to embed incident %d query: %w", incidentID, err)
	}

	candidates, err := database.ListPublishedEmbeddings(r.db)
	if err != nil {
		return nil, fmt.Errorf("failed to load embedding index: %w", err)
	}

	matches, err := RankSimilar(candidates, queryVector, incidentID, r.topN)
	if err != nil {
		return nil, err
	}

	if len(matches) == 0 {
		// Cold start: no published postmortems to recommend from.
		if err := database.ReplaceRecommendations(r.db, incidentID, nil); err != nil {
			log.Printf("Recommender: failed to clear cache for incident %d: %v", incidentID, err)
		}
		return &Recommendations{Available: true, Recommendations: []RecommendationItem{}}, nil
	}

	refs, err := r.loadReferences(matches)
	if err != nil {
		return nil, err
	}

	synthCtx, cancel := context.WithTimeout(ctx, r.synthesisTimeout)
	completion, err := completions.Complete(synthCtx, buildSynthesisPrompt(incident, refs), r.maxTokens)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize recommendations for incident %d: %w", incidentID, err)
	}

	items, rows := r.assembleRecommendations(refs, completion)

	if err := database.ReplaceRecommendations(r.db, incidentID, rows); err != nil {
		// The cache is an optimization; a store failure degrades to
		// recomputation on the next request, not a user-facing error.
		log.Printf("Recommender: failed to cache recommendations for incident %d: %v", incidentID, err)
	}

	return &Recommendations{Available: true, Recommendations: items}, nil
}

// reference bundles everything known about one retrieval candidate
type reference struct {
	match    Match
	incident database.Incident
	pm       database.Postmortem
}

// fromCache returns a payload built from fresh cache rows, or nil on miss.
// Cache-store failures are logged and treated as a miss.
func (r *Recommender) fromCache(incidentID uint) *Recommendations {
	rows, err := database.GetFreshRecommendations(r.db, incidentID, r.freshness)
	if err != nil {
		log.Printf("Recommender: cache read failed for incident %d, recomputing: %v", incidentID, err)
		return nil
	}
	if len(rows) == 0 {
		return nil
	}

	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.RecommendedIncidentID)
	}
	var incidents []database.Incident
	if err := r.db.Where("id IN ?", ids).Find(&incidents).Error; err != nil {
		log.Printf("Recommender: failed to load referenced incidents, recomputing: %v", err)
		return nil
	}
	byID := make(map[uint]database.Incident, len(incidents))
	for _, inc := range incidents {
		byID[inc.ID] = inc
	}

	items := make([]RecommendationItem, 0, len(rows))
	for _, row := range rows {
		inc := byID[row.RecommendedIncidentID]
		items = append(items, RecommendationItem{
			IncidentID:      row.RecommendedIncidentID,
			IncidentNumber:  inc.Number,
			Title:           inc.Title,
			Severity:        string(inc.Severity),
			SimilarityScore: row.SimilarityScore,
			Recommendation:  row.Payload.Title,
			Details:         row.Payload.Rationale,
			Actions:         row.Payload.Actions,
		})
	}
	return &Recommendations{Available: true, Cached: true, Recommendations: items}
}

// loadReferences resolves each match to its incident and postmortem
func (r *Recommender) loadReferences(matches []Match) ([]reference, error) {
	refs := make([]reference, 0, len(matches))
	for _, match := range matches {
		var inc database.Incident
		if err := r.db.First(&inc, match.Embedding.IncidentID).Error; err != nil {
			return nil, fmt.Errorf("failed to load incident %d: %w", match.Embedding.IncidentID, err)
		}
		var pm database.Postmortem
		if err := r.db.First(&pm, match.Embedding.PostmortemID).Error; err != nil {
			return nil, fmt.Errorf("failed to load postmortem %d: %w", match.Embedding.PostmortemID, err)
		}
		refs = append(refs, reference{match: match, incident: inc, pm: pm})
	}
	return refs, nil
}

// rawRecommendation matches the JSON shape the synthesis prompt asks for
type rawRecommendation struct {
	IncidentNumber string   `json:"incidentNumber"`
	Title          string   `json:"title"`
	Rationale      string   `json:"rationale"`
	Actions        []string `json:"actions"`
}

// assembleRecommendations pairs synthesized entries with their candidates.
// Model output is re-validated with the same bracketed-array discipline as
// section extraction; entries missing required fields are dropped, and a
// candidate without a usable entry gets a minimal fallback so retrieval
// results are never lost to a synthesis formatting slip.
func (r *Recommender) assembleRecommendations(refs []reference, completion string) ([]RecommendationItem, []database.IncidentRecommendation) {
	var raw []rawRecommendation
	if candidate := postmortem.ExtractJSONArray(completion); candidate != "" {
		if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
			log.Printf("Recommender: synthesis output did not parse as array: %v (output: %s)", err, utils.EscapeForLogging(candidate, 200))
		}
	} else {
		log.Printf("Recommender: no JSON array found in synthesis output: %s", utils.EscapeForLogging(completion, 200))
	}

	byNumber := make(map[string]rawRecommendation, len(raw))
	for _, entry := range raw {
		if entry.Title == "" || entry.Rationale == "" {
			continue
		}
		byNumber[strings.TrimSpace(entry.IncidentNumber)] = entry
	}

	items := make([]RecommendationItem, 0, len(refs))
	rows := make([]database.IncidentRecommendation, 0, len(refs))
	for i, ref := range refs {
		entry, ok := byNumber[ref.incident.Number]
		if !ok && i < len(raw) && raw[i].Title != "" && raw[i].Rationale != "" {
			// Positional fallback when the model mangled the number.
			entry, ok = raw[i], true
		}
		if !ok {
			entry = rawRecommendation{
				Title:     fmt.Sprintf("Review incident %s", ref.incident.Number),
				Rationale: fmt.Sprintf("This past incident is similar to the current one (%s).", ref.incident.Title),
			}
		}

		payload := database.RecommendationPayload{
			Title:     entry.Title,
			Rationale: entry.Rationale,
			Actions:   entry.Actions,
		}
		rows = append(rows, database.IncidentRecommendation{
			RecommendedIncidentID: ref.incident.ID,
			SimilarityScore:       ref.match.Score,
			Payload:               payload,
		})
		items = append(items, RecommendationItem{
			IncidentID:      ref.incident.ID,
			IncidentNumber:  ref.incident.Number,
			Title:           ref.incident.Title,
			Severity:        string(ref.incident.Severity),
			SimilarityScore: ref.match.Score,
			Recommendation:  payload.Title,
			Details:         payload.Rationale,
			Actions:         payload.Actions,
		})
	}
	return items, rows
}

// incidentLock returns the per-incident serialization lock
func (r *Recommender) incidentLock(incidentID uint) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lock, ok := r.inflight[incidentID]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	r.inflight[incidentID] = lock
	return lock
}

// buildQueryText renders the incident's current live fields as the
// similarity query. The incident may not have a postmortem of its own yet,
// so this never reads from the postmortem store.
func buildQueryText(incident *database.Incident) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", incident.Number, incident.Title)
	if incident.Impact != "" {
		fmt.Fprintf(&b, "Impact: %s\n", incident.Impact)
	}
	if incident.StepsToResolve != "" {
		fmt.Fprintf(&b, "Steps To Resolve: %s\n", incident.StepsToResolve)
	}
	if incident.ProblemStatement != "" {
		fmt.Fprintf(&b, "Problem Statement: %s\n", incident.ProblemStatement)
	}
	if incident.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", incident.Description)
	}
	return b.String()
}

// buildSynthesisPrompt asks the model for one strictly-parseable
// recommendation per candidate
func buildSynthesisPrompt(incident *database.Incident, refs []reference) string {
	var b strings.Builder
	b.WriteString("You are an SRE assistant. An incident is being investigated. ")
	b.WriteString("For each similar past incident below, produce one actionable recommendation for the current investigation.\n\n")
	b.WriteString("## Current Incident\n\n")
	fmt.Fprintf(&b, "%s: %s\nSeverity: %s\n", incident.Number, incident.Title, incident.Severity)
	if incident.ProblemStatement != "" {
		fmt.Fprintf(&b, "Problem Statement: %s\n", incident.ProblemStatement)
	}
	if incident.Impact != "" {
		fmt.Fprintf(&b, "Impact: %s\n", incident.Impact)
	}

	b.WriteString("\n## Similar Past Incidents\n")
	for _, ref := range refs {
		fmt.Fprintf(&b, "\n%s: %s (severity %s)\n", ref.incident.Number, ref.incident.Title, ref.incident.Severity)
		if ref.pm.BusinessImpactDescription != "" {
			fmt.Fprintf(&b, "Impact: %s\n", ref.pm.BusinessImpactDescription)
		}
		if ref.pm.MitigationDescription != "" {
			fmt.Fprintf(&b, "Mitigation: %s\n", ref.pm.MitigationDescription)
		}
		for _, factor := range ref.pm.CausalAnalysis {
			fmt.Fprintf(&b, "Cause (%s): %s\n", factor.InterceptionLayer, factor.Cause)
		}
	}

	b.WriteString(`
Respond with ONLY a JSON array, one object per past incident, in the same order:
[{"incidentNumber": "<number of the past incident>", "title": "<short recommendation title>", "rationale": "<why this past incident is relevant>", "actions": ["<concrete action>", "..."]}]
No markdown, no commentary.`)
	return b.String()
}
