// Package notify sends best-effort Slack notifications for postmortem
// lifecycle events. A notification failure is logged, never propagated:
// publishing must not depend on Slack being reachable.
package notify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"github.com/erikwj/sre-platform/internal/database"
	"github.com/erikwj/sre-platform/internal/utils"
)

// Notifier posts postmortem notifications to the configured Slack channel.
// Settings are read per call so channel or token changes apply without a
// restart.
type Notifier struct{}

// NewNotifier creates a Slack notifier
func NewNotifier() *Notifier {
	return &Notifier{}
}

// PostmortemPublished announces a published postmortem. Returns silently
// when Slack is disabled or not configured.
func (n *Notifier) PostmortemPublished(ctx context.Context, incident *database.Incident, pm *database.Postmortem) {
	settings, err := database.GetSlackSettings()
	if err != nil {
		log.Printf("Notifier: could not load Slack settings: %v", err)
		return
	}
	if !settings.IsActive() {
		return
	}

	client := slack.New(settings.BotToken)
	message := formatPublishMessage(incident, pm)

	_, _, err = client.PostMessageContext(ctx, settings.Channel,
		slack.MsgOptionText(message, false),
		slack.MsgOptionDisableLinkUnfurl(),
	)
	if err != nil {
		log.Printf("Notifier: failed to post publish notification for incident %s: %v", incident.Number, err)
		return
	}
	log.Printf("Notifier: posted publish notification for incident %s to %s", incident.Number, settings.Channel)
}

// formatPublishMessage renders the Slack message body for a published postmortem
func formatPublishMessage(incident *database.Incident, pm *database.Postmortem) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("📋 *Postmortem Published* %s: %s\n", incident.Number, incident.Title))
	sb.WriteString(fmt.Sprintf("Severity: %s\n", incident.Severity))

	if pm.BusinessImpactDescription != "" {
		sb.WriteString(fmt.Sprintf("\n*Business Impact*\n%s\n", pm.BusinessImpactDescription))
	}
	if pm.DurationMinutes != nil {
		sb.WriteString(fmt.Sprintf("Impact duration: %s\n", utils.FormatDuration(time.Duration(*pm.DurationMinutes)*time.Minute)))
	}
	if pm.MitigationDescription != "" {
		sb.WriteString(fmt.Sprintf("\n*Mitigation*\n%s\n", pm.MitigationDescription))
	}

	if len(pm.CausalAnalysis) > 0 {
		sb.WriteString("\n*Causal Factors*\n")
		for _, factor := range pm.CausalAnalysis {
			sb.WriteString(fmt.Sprintf("• [%s] %s\n", factor.InterceptionLayer, utils.TruncateText(factor.Cause, 160)))
		}
	}

	return sb.String()
}
