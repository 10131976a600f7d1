package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/BuzzLyutic/taskr/internal/model"
)

// printer shows notifications and navigation on a terminal. It implements
// ui.Notifier and ui.Navigator for the command line client.
type printer struct {
	w      io.Writer
	failed bool

	success lipgloss.Style
	failure lipgloss.Style
	dim     lipgloss.Style
	header  lipgloss.Style
	done    lipgloss.Style
	tag     map[model.Tag]lipgloss.Style
}

// maxTitleWidth bounds the title column in cells.
const maxTitleWidth = 60

func newPrinter(w io.Writer, noColor bool) *printer {
	r := lipgloss.NewRenderer(w)
	if noColor {
		r.SetColorProfile(termenv.Ascii)
	}
	tagStyle := func(c string) lipgloss.Style { return r.NewStyle().Foreground(lipgloss.Color(c)) }
	return &printer{
		w:       w,
		success: r.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		failure: r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		dim:     r.NewStyle().Faint(true),
		header:  r.NewStyle().Bold(true).Underline(true),
		done:    r.NewStyle().Faint(true).Strikethrough(true),
		tag: map[model.Tag]lipgloss.Style{
			model.TagDocumentation: tagStyle("39"),
			model.TagFeature:       tagStyle("42"),
			model.TagFix:           tagStyle("214"),
			model.TagBug:           tagStyle("196"),
			model.TagTodo:          tagStyle("244"),
		},
	}
}

func (p *printer) Notify(n model.Notification) {
	if n.OK() {
		fmt.Fprintf(p.w, "%s %s\n", p.success.Render(n.Title), n.Description)
		return
	}
	p.failed = true
	fmt.Fprintf(p.w, "%s %s\n", p.failure.Render(n.Title), n.Description)
}

func (p *printer) Navigate(target string) {
	fmt.Fprintln(p.w, p.dim.Render("-> "+target))
}

// result turns the last notification into the command's exit status.
func (p *printer) result() error {
	if p.failed {
		return ErrFailed
	}
	return nil
}

func (p *printer) user(u model.User) {
	fmt.Fprintf(p.w, "%s %s <%s>\n", p.success.Render(u.Initial()), u.Name, u.Email)
	fmt.Fprintln(p.w, p.dim.Render("id "+u.ID))
}

// tasks prints tasks as a table; padding is applied before styling so escape
// codes don't break alignment.
func (p *printer) tasks(tasks []model.Task, filter string) {
	if len(tasks) == 0 {
		if filter != "" {
			fmt.Fprintf(p.w, "No tasks match %q.\n", filter)
			return
		}
		fmt.Fprintln(p.w, "No tasks yet.")
		return
	}

	idWidth, serialWidth := len("ID"), len("SERIAL")
	for _, t := range tasks {
		idWidth = max(idWidth, len(t.ID))
		serialWidth = max(serialWidth, len(t.Serial))
	}
	tagWidth := len(model.TagDocumentation)

	row := func(serial, id, tag, status, title string) string {
		return fmt.Sprintf("%-*s  %-*s  %-*s  %-6s  %s", serialWidth, serial, idWidth, id, tagWidth, tag, status, title)
	}
	fmt.Fprintln(p.w, p.header.Render(row("SERIAL", "ID", "TAG", "STATUS", "TITLE")))

	for _, t := range tasks {
		tag := fmt.Sprintf("%-*s", tagWidth, t.Tag)
		if s, ok := p.tag[t.Tag]; ok {
			tag = s.Render(tag)
		}
		status, title := "open", ansi.Truncate(t.Title, maxTitleWidth, "…")
		if t.Completed {
			status, title = "done", p.done.Render(title)
		}
		line := fmt.Sprintf("%-*s  %-*s  %s  %-6s  %s", serialWidth, t.Serial, idWidth, t.ID, tag, status, title)
		fmt.Fprintln(p.w, strings.TrimRight(line, " "))
	}
}
