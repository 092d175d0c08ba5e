// Package observability provides formatted terminal output for pipeline runs started from the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/recruiter-agent/internal/db"
	"github.com/jonathan/recruiter-agent/internal/events"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	for _, line := range lines {
		// Truncate long lines
		if len([]rune(line)) > boxWidth-4 {
			line = string([]rune(line)[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintJob outputs a summary of the job a run is sourcing for.
func (p *Printer) PrintJob(job *db.Job) {
	if job == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Title:    %s\n", job.Title))
	sb.WriteString(fmt.Sprintf("Company:  %s\n", job.Company))
	if job.Location != "" {
		sb.WriteString(fmt.Sprintf("Location: %s\n", job.Location))
	}
	if job.ExperienceLevel != "" {
		sb.WriteString(fmt.Sprintf("Level:    %s\n", job.ExperienceLevel))
	}
	if len(job.RequiredSkills) > 0 {
		sb.WriteString("\nRequired skills:\n")
		count := min(len(job.RequiredSkills), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", job.RequiredSkills[i]))
		}
		if len(job.RequiredSkills) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(job.RequiredSkills)-maxItemsToShow))
		}
	}
	sb.WriteString(fmt.Sprintf("\nJob ID: %s", job.ID))

	p.printBox("JOB", sb.String())
}

// PrintEvent outputs one pipeline event as a progress line.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintEvent(e events.Event) {
	icon := "•"
	switch e.Type {
	case events.TypePipelineStart:
		icon = "🚀"
	case events.TypeAgentStart:
		icon = "▶"
	case events.TypeAgentProgress:
		icon = "…"
	case events.TypeAgentComplete:
		icon = "✓"
	case events.TypePipelineComplete:
		icon = "✅"
	case events.TypePipelineError:
		icon = "❌"
	}

	line := e.Message
	if line == "" {
		line = string(e.Type)
	}
	if e.Agent != "" {
		line = fmt.Sprintf("[%s] %s", e.Agent, line)
	}
	if e.Total > 0 && e.Count > 0 {
		line = fmt.Sprintf("%s %s", line, progressBar(e.Count, e.Total, 20))
	}
	if e.Error != "" && !strings.Contains(line, e.Error) {
		line = fmt.Sprintf("%s: %s", line, e.Error)
	}
	fmt.Fprintf(p.out, "%s %s\n", icon, line)
}

// progressBar renders count/total as a fixed-width bar
func progressBar(count, total, width int) string {
	if total <= 0 {
		return ""
	}
	filled := min(count*width/total, width)
	return fmt.Sprintf("[%s%s] %d/%d", strings.Repeat("█", filled), strings.Repeat("░", width-filled), count, total)
}

// PrintStats outputs aggregate counts for a job.
func (p *Printer) PrintStats(stats *db.JobStats) {
	if stats == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Sourced:   %d\n", stats.TotalSourced))
	sb.WriteString(fmt.Sprintf("Pending:   %d\n", stats.Pending))
	sb.WriteString(fmt.Sprintf("Accepted:  %d\n", stats.Accepted))
	sb.WriteString(fmt.Sprintf("Rejected:  %d\n", stats.Rejected))
	sb.WriteString(fmt.Sprintf("Contacted: %d\n", stats.Contacted))
	sb.WriteString(fmt.Sprintf("Pitches:   %d (sent %d, failed %d)", stats.PitchesGenerated, stats.OutreachSent, stats.OutreachFailed))

	p.printBox("JOB STATS", sb.String())
}

// PrintTopCandidates outputs the best-scored candidates, highest first.
func (p *Printer) PrintTopCandidates(candidates []db.CandidateWithMatch) {
	if len(candidates) == 0 {
		return
	}

	var sb strings.Builder
	count := min(len(candidates), maxItemsToShow)
	for i := 0; i < count; i++ {
		c := candidates[i]
		sb.WriteString(fmt.Sprintf("%d. [%.0f] %s\n", i+1, c.Match.Score, c.Candidate.Name))
		role := c.Candidate.CurrentRole
		if c.Candidate.CurrentCompany != "" {
			role = fmt.Sprintf("%s at %s", role, c.Candidate.CurrentCompany)
		}
		if role != "" {
			sb.WriteString(fmt.Sprintf("   %s\n", role))
		}
		for _, h := range c.Match.KeyHighlights {
			sb.WriteString(fmt.Sprintf("   • %s\n", h))
		}
	}
	if len(candidates) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more", len(candidates)-maxItemsToShow))
	}

	p.printBox("TOP CANDIDATES", sb.String())
}
