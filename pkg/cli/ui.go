package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/wagoodman/go-partybus"

	"github.com/go-mason/mason/pkg/brick"
	"github.com/go-mason/mason/pkg/generate"
)

const (
	EventTypeResolving      = partybus.EventType("brick.resolving")
	EventTypeGenerateReport = partybus.EventType("brick.generate-report")
)

type UI struct {
	Output io.Writer
}

func (ui *UI) Setup(_ partybus.Unsubscribable) error {
	return nil
}

func (ui *UI) Handle(event partybus.Event) error {
	switch event.Type {
	case EventTypeResolving:
		ref := event.Source.(map[string]string)["ref"]
		ui.println(descriptionStyle.Render("Resolving " + ref + "..."))

	case EventTypeGenerateReport:
		report := event.Value.(generate.GenerateReport)
		for _, f := range report.Files {
			ui.print(dispositionStyle(f.Disposition).Render(string(f.Disposition)))
			ui.println(" " + f.AbsPath)
		}
	}
	return nil
}

func (ui *UI) Teardown(_ bool) error {
	return nil
}

func (ui *UI) print(a ...any) {
	fmt.Fprint(ui.Output, a...) //nolint:errcheck // don't care
}

func (ui *UI) println(a ...any) {
	fmt.Fprintln(ui.Output, a...) //nolint:errcheck // don't care
}

var (
	descriptionStyle = lipgloss.NewStyle()

	createdStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}).
			Margin(0, 1, 0, 0)
	modifiedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#874BFD")).
			Margin(0, 1, 0, 0)
	skippedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#777777")).
			Margin(0, 1, 0, 0)
)

func dispositionStyle(d brick.Disposition) lipgloss.Style {
	switch d {
	case brick.DispositionCreated:
		return createdStyle
	case brick.DispositionOverwritten, brick.DispositionAppended:
		return modifiedStyle
	default:
		return skippedStyle
	}
}
