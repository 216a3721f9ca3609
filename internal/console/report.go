package console

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/casualjim/roost/process"
	"github.com/casualjim/roost/workflow"
	"github.com/charmbracelet/glamour"
)

// FrameworkMarkdown describes a framework and its process tree as markdown.
func FrameworkMarkdown(fw *process.Framework) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", fw.Name)
	fmt.Fprintf(&b, "`%s` · %s", fw.ID, fw.Type)
	if fw.Version != "" {
		fmt.Fprintf(&b, " · v%s", fw.Version)
	}
	b.WriteString("\n\n")
	if fw.Description != "" {
		b.WriteString(fw.Description + "\n\n")
	}
	for _, p := range fw.Processes {
		writeProcess(&b, p, 0)
	}
	return b.String()
}

func writeProcess(b *strings.Builder, p *process.Process, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(b, "%s- **%s** `%s`\n", indent, p.Name, p.ID)
	for _, a := range p.Activities {
		fmt.Fprintf(b, "%s  - %s `%s`", indent, a.Name, a.ID)
		if len(a.RequiredInputs) > 0 {
			fmt.Fprintf(b, " needs %s", strings.Join(a.RequiredInputs, ", "))
		}
		if len(a.Outputs) > 0 {
			fmt.Fprintf(b, " gives %s", strings.Join(a.Outputs, ", "))
		}
		b.WriteByte('\n')
	}
	for _, sub := range p.Subprocesses {
		writeProcess(b, sub, depth+1)
	}
}

// StatusMarkdown summarises a workflow instance as markdown.
func StatusMarkdown(st workflow.Status) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Workflow %s\n\n", st.ID)
	fmt.Fprintf(&b, "`%s/%s` is **%s**: %d of %d activities completed, %d failed (%.0f%%)\n\n",
		st.FrameworkID, st.ProcessID, st.State, st.Completed, st.Total, st.Failed, st.Progress)

	b.WriteString("| # | activity | state | agent | note |\n|---|---|---|---|---|\n")
	for i, rec := range st.Activities {
		note := ""
		if rec.Result != nil && !rec.Result.Success {
			note = rec.Result.Reason
			if rec.Result.Message != "" {
				note += ": " + rec.Result.Message
			}
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n", i+1, rec.Activity.ID, rec.State, rec.AgentID, escape(note))
	}

	if len(st.Data) > 0 {
		b.WriteString("\n## Data\n\n")
		for _, k := range slices.Sorted(maps.Keys(st.Data)) {
			fmt.Fprintf(&b, "- `%s`: %v\n", k, st.Data[k])
		}
	}
	return b.String()
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// Render renders markdown for a terminal of the given width.
func Render(markdown string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create renderer: %w", err)
	}
	out, err := r.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}
