package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dmitrijs2005/gigbook/internal/client/models"
	"github.com/dmitrijs2005/gigbook/internal/client/status"
	"github.com/dmitrijs2005/gigbook/internal/schema"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	keyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))

	platformStyles = map[schema.Platform]lipgloss.Style{
		schema.Web:    lipgloss.NewStyle().Foreground(lipgloss.Color("141")),
		schema.Native: lipgloss.NewStyle().Foreground(lipgloss.Color("212")),
	}
	stateStyles = map[status.State]lipgloss.Style{
		status.Idle:    subtleStyle,
		status.Syncing: keyStyle,
		status.Synced:  successStyle,
		status.Offline: warningStyle,
	}
)

func success(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, successStyle.Render(fmt.Sprintf(format, args...)))
}

func warning(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, warningStyle.Render("Warning: "+fmt.Sprintf(format, args...)))
}

func failure(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, errorStyle.Render("ERROR: "+fmt.Sprintf(format, args...)))
}

func renderPlatform(p schema.Platform) string {
	return platformStyles[p].Render(string(p))
}

func renderState(s status.State) string {
	if st, ok := stateStyles[s]; ok {
		return st.Render(string(s))
	}
	return string(s)
}

func renderValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// summary is the one-line form used by list: id, platform and the first
// descriptive field present.
func summary(r *models.Record) string {
	label := ""
	for _, k := range []string{"title", "name", "label"} {
		if v, ok := r.Fields[k]; ok {
			label = renderValue(v)
			break
		}
	}
	synced := ""
	if r.LastSyncedAt == nil {
		synced = subtleStyle.Render(" (pending)")
	}
	return fmt.Sprintf("%s  %-6s  %s%s", titleStyle.Render(r.ID), renderPlatform(r.Platform), label, synced)
}

// detail renders every field of a record, sorted by name.
func detail(r *models.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", titleStyle.Render(r.ID))
	fmt.Fprintf(&b, "  %s %s\n", keyStyle.Render("platform:"), renderPlatform(r.Platform))
	fmt.Fprintf(&b, "  %s %s\n", keyStyle.Render("updatedAt:"), models.FormatTime(r.UpdatedAt))
	if r.LastSyncedAt != nil {
		fmt.Fprintf(&b, "  %s %s\n", keyStyle.Render("lastSyncedAt:"), models.FormatTime(*r.LastSyncedAt))
	} else {
		fmt.Fprintf(&b, "  %s %s\n", keyStyle.Render("lastSyncedAt:"), subtleStyle.Render("never"))
	}

	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s %s\n", keyStyle.Render(k+":"), renderValue(r.Fields[k]))
	}
	return b.String()
}
