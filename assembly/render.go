package assembly

import (
	"fmt"
	"strings"
)

// renderComponent produces the text for one situation section. Empty
// output means the section has nothing to say and is omitted.
func renderComponent(kind ComponentKind, data ProjectData, pat Patterns) string {
	switch kind {
	case KindProjectOverview:
		return renderProjectOverview(data)
	case KindProcessProfile:
		return renderProcessProfile(data)
	case KindDocuments:
		return renderDocuments(data)
	case KindCurrentStructure:
		return renderStructure(data)
	case KindDeferredTasks:
		return renderDeferredTasks(data)
	case KindSessionHistory:
		return renderSessionHistory(data)
	case KindEstimateCalibration:
		return renderCalibration(data)
	case KindCrossSessionPatterns:
		return renderPatterns(pat)
	case KindPortfolioSummary:
		return renderPortfolio(data)
	default:
		return ""
	}
}

func renderProjectOverview(data ProjectData) string {
	p := data.Project
	if p.Name == "" && p.Description == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Project\n")
	fmt.Fprintf(&b, "Name: %s\n", p.Name)
	if p.Status != "" {
		fmt.Fprintf(&b, "Status: %s\n", p.Status)
	}
	if p.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", p.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderProcessProfile(data ProjectData) string {
	p := data.Process
	if p.PlanningDepth == "" && p.WorkingStyle == "" && p.Notes == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString("## How this user works\n")
	if p.PlanningDepth != "" {
		fmt.Fprintf(&b, "Planning depth: %s\n", p.PlanningDepth)
	}
	if p.WorkingStyle != "" {
		fmt.Fprintf(&b, "Working style: %s\n", p.WorkingStyle)
	}
	if p.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", p.Notes)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderDocuments(data ProjectData) string {
	if len(data.Documents) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Project documents\n")
	for i, d := range data.Documents {
		if i > 0 {
			b.WriteString("\n")
		}
		title := d.Title
		if d.Type != "" {
			title += " (" + d.Type + ")"
		}
		fmt.Fprintf(&b, "### %s\n%s\n", title, strings.TrimSpace(d.Body))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderStructure(data ProjectData) string {
	if len(data.Structure) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Current structure\n")
	for _, ph := range data.Structure {
		fmt.Fprintf(&b, "%s:\n", ph.Name)
		for _, t := range ph.Tasks {
			fmt.Fprintf(&b, "  - [%s] %s (%s)", t.Status, t.Title, t.ID)
			if t.Estimate != "" {
				fmt.Fprintf(&b, " est %s", t.Estimate)
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderDeferredTasks(data ProjectData) string {
	if len(data.DeferredTasks) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Frequently deferred\n")
	for _, d := range data.DeferredTasks {
		fmt.Fprintf(&b, "- %s: deferred %d times", d.Title, d.Count)
		if d.LastReason != "" {
			fmt.Fprintf(&b, ", last reason: %s", d.LastReason)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderSessionHistory(data ProjectData) string {
	if len(data.Summaries) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Recent sessions\n")
	for _, s := range data.Summaries {
		fmt.Fprintf(&b, "- %s session (%s)", s.Mode, s.CompletionStatus)
		if len(s.Established.Decisions) > 0 {
			fmt.Fprintf(&b, "; decided: %s", strings.Join(s.Established.Decisions, "; "))
		}
		if len(s.Next.NextActions) > 0 {
			fmt.Fprintf(&b, "; next: %s", s.Next.NextActions[0])
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderCalibration(data ProjectData) string {
	if len(data.Calibration) == 0 {
		return ""
	}
	var estimated, actual float64
	for _, s := range data.Calibration {
		estimated += s.EstimatedHours
		actual += s.ActualHours
	}
	var b strings.Builder
	b.WriteString("## Estimate calibration\n")
	fmt.Fprintf(&b, "Across %d completed tasks: %.1fh estimated, %.1fh actual", len(data.Calibration), estimated, actual)
	if estimated > 0 {
		fmt.Fprintf(&b, " (ratio %.1fx)", actual/estimated)
	}
	return b.String()
}

func renderPatterns(pat Patterns) string {
	if pat.CountedSessions == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Cross-session patterns\n")
	fmt.Fprintf(&b, "Sessions on record: %d. Last session %d days ago.", pat.CountedSessions, pat.DaysSinceLastSession)
	if pat.CountedSessions > 1 {
		fmt.Fprintf(&b, " Average gap %.1f days, trend %s.", pat.AverageGapDays, pat.Trend)
	}
	if pat.IsReturn {
		b.WriteString(" The user is returning after a long break.")
	}
	if pat.AbandonedSessions > 0 {
		fmt.Fprintf(&b, " %d sessions ended by timeout rather than on purpose.", pat.AbandonedSessions)
	}
	if pat.Deferrals.TotalDeferrals > 0 {
		fmt.Fprintf(&b, " Deferrals: %d across %d tasks, most deferred %q (%d times).",
			pat.Deferrals.TotalDeferrals, pat.Deferrals.DeferredTasks,
			pat.Deferrals.MostDeferred, pat.Deferrals.MostDeferredCount)
	}
	return b.String()
}

func renderPortfolio(data ProjectData) string {
	if len(data.Portfolio) == 0 {
		return ""
	}
	now := data.now()
	var b strings.Builder
	b.WriteString("## Portfolio\n")
	for _, p := range data.Portfolio {
		days := int(now.Sub(p.LastActive).Hours() / 24)
		fmt.Fprintf(&b, "- %s (%s): %d open tasks, last active %d days ago\n", p.Name, p.Status, p.OpenTasks, days)
	}
	return strings.TrimRight(b.String(), "\n")
}
