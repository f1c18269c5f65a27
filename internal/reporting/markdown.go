package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders the report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# Hourly Bid Analysis: %s\n\n", r.EntityID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Mode: %s | Window: %d days (%s to %s)\n\n",
		r.Mode, r.WindowDays,
		r.WindowFrom.Format("2006-01-02"), r.WindowTo.Format("2006-01-02")))

	// Data Summary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Samples | %d |\n", r.DataSummary.Samples))
	sb.WriteString(fmt.Sprintf("| Impressions | %d |\n", r.DataSummary.Impressions))
	sb.WriteString(fmt.Sprintf("| Clicks | %d |\n", r.DataSummary.Clicks))
	sb.WriteString(fmt.Sprintf("| Conversions | %d |\n", r.DataSummary.Conversions))
	sb.WriteString(fmt.Sprintf("| Spend | %.2f |\n", r.DataSummary.Spend))
	sb.WriteString(fmt.Sprintf("| Revenue | %.2f |\n", r.DataSummary.Revenue))
	if r.DataSummary.Samples > 0 {
		sb.WriteString(fmt.Sprintf("| First Date | %s |\n", r.DataSummary.FirstDate.Format("2006-01-02")))
		sb.WriteString(fmt.Sprintf("| Last Date | %s |\n", r.DataSummary.LastDate.Format("2006-01-02")))
	}
	sb.WriteString("\n")

	// Bucket Analysis
	sb.WriteString("## Bucket Analysis\n\n")
	if len(r.Buckets) > 0 {
		sb.WriteString("| Bucket | Samples | ConvRate | ConvRel | Conv p | Return | ReturnRel | Return p | Confidence | Class | Recommended |\n")
		sb.WriteString("|--------|---------|----------|---------|--------|--------|-----------|----------|------------|-------|-------------|\n")
		for _, b := range r.Buckets {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.4f | %.3f | %.4f | %.4f | %.3f | %.4f | %s | %s | %.2f |\n",
				b.Key, b.Samples,
				b.ConvRateMean, b.ConvRelative, b.ConvPValue,
				b.ReturnMean, b.ReturnRelative, b.ReturnPValue,
				b.Confidence, b.Classification, b.Recommended))
		}
	} else {
		sb.WriteString("No buckets analyzed.\n")
	}
	sb.WriteString("\n")

	// Proposed Multipliers
	sb.WriteString("## Proposed Multipliers\n\n")
	if len(r.Proposed) > 0 {
		sb.WriteString(fmt.Sprintf("Raised: %d | Lowered: %d | Neutral: %d | Range: [%.2f, %.2f] | Mean: %.3f\n\n",
			r.Stats.Raised, r.Stats.Lowered, r.Stats.Neutral,
			r.Stats.Min, r.Stats.Max, r.Stats.Mean))
		sb.WriteString("| Bucket | Current | Proposed | Confidence | Class |\n")
		sb.WriteString("|--------|---------|----------|------------|-------|\n")
		for _, p := range r.Proposed {
			current := "-"
			if p.Current != nil {
				current = fmt.Sprintf("%.2f", *p.Current)
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %.2f | %s | %s |\n",
				p.Key, current, p.Proposed, p.Confidence, p.Classification))
		}
	} else {
		sb.WriteString("No multipliers proposed.\n")
	}
	sb.WriteString("\n")

	// Changes vs Active Set
	sb.WriteString("## Changes vs Active Set\n\n")
	if len(r.Diff.Changed) > 0 {
		sb.WriteString("| Bucket | Old | New | Delta |\n")
		sb.WriteString("|--------|-----|-----|-------|\n")
		for _, c := range r.Diff.Changed {
			sb.WriteString(fmt.Sprintf("| %s | %.2f | %.2f | %+.2f |\n",
				c.Key, c.Old, c.New, c.Delta))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("Added: %d | Removed: %d | Changed: %d | Unchanged: %d\n\n",
		len(r.Diff.Added), len(r.Diff.Removed), len(r.Diff.Changed), r.Diff.Unchanged))

	// Feedback
	sb.WriteString("## Feedback\n\n")
	if r.Feedback.Total > 0 {
		sb.WriteString(fmt.Sprintf("Records: %d | Evaluated: %d | Success Rate: %.2f\n\n",
			r.Feedback.Total, r.Feedback.Evaluated, r.Feedback.SuccessRate))
		if len(r.Feedback.Rows) > 0 {
			sb.WriteString("| Bucket | Applied | Applied At | Evaluated At | Score | Success |\n")
			sb.WriteString("|--------|---------|------------|--------------|-------|--------|\n")
			for _, f := range r.Feedback.Rows {
				sb.WriteString(fmt.Sprintf("| %s | %.2f | %s | %s | %.3f | %v |\n",
					f.Key, f.Applied,
					f.AppliedAt.Format("2006-01-02 15:04"),
					f.EvaluatedAt.Format("2006-01-02 15:04"),
					f.Score, f.Success))
			}
		}
	} else {
		sb.WriteString("No feedback recorded in the window.\n")
	}
	sb.WriteString("\n")

	// Rollbacks
	sb.WriteString("## Rollbacks\n\n")
	if len(r.Rollbacks) > 0 {
		sb.WriteString("| Rolled Back At | Reason | Snapshot | Restored |\n")
		sb.WriteString("|----------------|--------|----------|----------|\n")
		for _, rb := range r.Rollbacks {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %v |\n",
				rb.RolledBackAt.Format(time.RFC3339), rb.Reason, rb.Snapshot, rb.Restored))
		}
	} else {
		sb.WriteString("No rollbacks on record.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
