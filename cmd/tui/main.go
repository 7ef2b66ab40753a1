package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/SPGundewar/Delftia-Analysis-tool/internal/assembly"
)

// Colors for modern design
var (
	primaryColor   = lipgloss.Color("#7C3AED") // Purple
	secondaryColor = lipgloss.Color("#10B981") // Green
	accentColor    = lipgloss.Color("#F59E0B") // Amber
	dangerColor    = lipgloss.Color("#EF4444") // Red
	surfaceColor   = lipgloss.Color("#1F2937") // Dark gray
	textColor      = lipgloss.Color("#F3F4F6") // Light gray
	mutedColor     = lipgloss.Color("#9CA3AF") // Muted gray
	borderColor    = lipgloss.Color("#374151") // Border gray
)

// Styles
var (
	containerStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor)

	titleStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(textColor).
			Background(surfaceColor).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().Foreground(mutedColor).Width(26)
	valueStyle = lipgloss.NewStyle().Foreground(textColor)

	// High_quality styles
	hqTrueStyle    = lipgloss.NewStyle().Foreground(secondaryColor).Bold(true)
	hqFalseStyle   = lipgloss.NewStyle().Foreground(dangerColor)
	hqUnknownStyle = lipgloss.NewStyle().Foreground(accentColor)
)

type listItem struct {
	row assembly.Row
}

func (i listItem) FilterValue() string {
	return i.row.GenBank.String() + " " + i.row.ScientificName.String() + " " + i.row.Assembly.String()
}

func (i listItem) Title() string {
	if i.row.GenBank.Valid {
		return i.row.GenBank.String()
	}
	// fallback to the assembly name when no accession was reported
	return i.row.Assembly.String()
}

func (i listItem) Description() string {
	level := i.row.Level.String()
	if level == "" {
		level = "unknown"
	}
	return fmt.Sprintf("%s    %.2f Mb    HQ: %s", level, i.row.SizeMb, renderHQ(i.row.HighQuality))
}

func renderHQ(f assembly.Flag) string {
	switch {
	case !f.Valid:
		return hqUnknownStyle.Render("n/a")
	case f.Value:
		return hqTrueStyle.Render(f.String())
	default:
		return hqFalseStyle.Render(f.String())
	}
}

type mode int

const (
	modeIdentifiers mode = iota
	modeStructure
	modeQuality
	modeCount
)

func (m mode) String() string {
	switch m {
	case modeIdentifiers:
		return "Identifiers"
	case modeStructure:
		return "Structure"
	case modeQuality:
		return "Quality"
	default:
		return "Unknown"
	}
}

type model struct {
	list          list.Model
	rows          []assembly.Row
	summary       assembly.Summary
	currentMode   mode
	showHelp      bool
	width         int
	height        int
	selectedIndex int
}

func newModel(rows []assembly.Row) model {
	items := make([]list.Item, len(rows))
	for i, r := range rows {
		items[i] = listItem{row: r}
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Assemblies"
	l.SetShowStatusBar(false)
	l.SetShowPagination(true)
	l.SetFilteringEnabled(true)

	return model{
		list:        l,
		rows:        rows,
		summary:     assembly.Summarize(rows),
		currentMode: modeIdentifiers,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) cycleMode() model {
	m.currentMode = (m.currentMode + 1) % modeCount
	return m
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		// left panel takes 1/3 of width
		m.list.SetWidth(msg.Width / 3)
		m.list.SetHeight(msg.Height - 4)
		return m, nil

	case tea.KeyMsg:
		// keys go to the filter input while the user is typing
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "h":
			m.showHelp = !m.showHelp
			return m, nil
		case "tab":
			return m.cycleMode(), nil
		case "1":
			m.currentMode = modeIdentifiers
			return m, nil
		case "2":
			m.currentMode = modeStructure
			return m, nil
		case "3":
			m.currentMode = modeQuality
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	m.selectedIndex = m.list.Index()
	return m, cmd
}

func (m model) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelpModal()
	}

	main := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderLeftPanel(),
		m.renderRightPanel(),
	)
	return lipgloss.JoinVertical(lipgloss.Left, main, m.renderStatusBar())
}

func (m model) renderLeftPanel() string {
	return containerStyle.
		Width(m.width/3 - 2).
		Height(m.height - 4).
		Render(m.list.View())
}

func (m model) renderRightPanel() string {
	panel := containerStyle.
		Width((m.width*2)/3 - 2).
		Height(m.height - 4)

	if len(m.rows) == 0 {
		return panel.Render("No assemblies available")
	}
	selected, ok := m.list.SelectedItem().(listItem)
	if !ok {
		return panel.Render("No assembly selected")
	}

	header := titleStyle.Render(fmt.Sprintf("%s  %s", selected.Title(), selected.row.ScientificName))
	return panel.Render(lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		"",
		strings.Join(m.buildRightLines(selected.row), "\n"),
	))
}

type field struct {
	label string
	value string
}

// fields returns the label/value pairs the current mode shows for r.
func (m model) fields(r assembly.Row) []field {
	switch m.currentMode {
	case modeStructure:
		return []field{
			{"Level", r.Level.String()},
			{"Size (Mb)", fmt.Sprintf("%.2f", r.SizeMb)},
			{"Chromosomes", r.Chromosomes.String()},
			{"Contigs", r.Contigs.String()},
			{"Scaffolds", r.Scaffolds.String()},
			{"Contig N50 (kb)", fmt.Sprintf("%.2f", r.ContigN50Kb)},
			{"Scaffold N50 (kb)", fmt.Sprintf("%.2f", r.ScaffoldN50Kb)},
			{"GC percent", r.GCPercent.String()},
			{"Genes", r.Genes.String()},
			{"Protein coding", r.ProteinCoding.String()},
			{"Pseudogenes", r.Pseudogenes.String()},
			{"Sequencing technology", r.SequencingTechnology.String()},
		}
	case modeQuality:
		return []field{
			{"High quality", r.HighQuality.String()},
			{"CheckM marker set", r.CheckMMarkerSet.String()},
			{"CheckM completeness (%)", r.CheckMCompleteness.String()},
			{"CheckM contamination (%)", r.CheckMContamination.String()},
			{"BUSCO", r.BUSCO.String()},
			{"Taxonomy check", r.TaxonomyCheckStatus.String()},
			{"Type material", r.TypeMaterial.String()},
		}
	default:
		return []field{
			{"Assembly", r.Assembly.String()},
			{"GenBank", r.GenBank.String()},
			{"RefSeq", r.RefSeq.String()},
			{"Scientific name", r.ScientificName.String()},
			{"Tax ID", r.TaxID.String()},
			{"Modifier", r.Modifier.String()},
			{"Release date", r.ReleaseDate.String()},
			{"Annotation", r.Annotation.String()},
			{"Annotation date", r.AnnotationDate.String()},
			{"Submitter", r.Submitter.String()},
			{"BioProject", r.BioProject.String()},
			{"BioSample", r.BioSample.String()},
			{"WGS accession", r.WGSAccession.String()},
		}
	}
}

// buildRightLines renders the detail lines for r, one field per line.
// Missing values show as a dash.
func (m model) buildRightLines(r assembly.Row) []string {
	fs := m.fields(r)
	lines := make([]string, 0, len(fs))
	for _, f := range fs {
		v := f.value
		if v == "" {
			v = "-"
		}
		lines = append(lines, labelStyle.Render(f.label)+valueStyle.Render(v))
	}
	return lines
}

func (m model) renderStatusBar() string {
	leftInfo := fmt.Sprintf("%d/%d assemblies  %d high quality", m.selectedIndex+1, m.summary.Assemblies, m.summary.HighQuality)
	centerInfo := fmt.Sprintf("Mode: %s", m.currentMode)
	rightInfo := "Press 'h' for help • 'q' to quit"

	spacing := m.width - lipgloss.Width(leftInfo) - lipgloss.Width(centerInfo) - lipgloss.Width(rightInfo) - 6
	var statusContent string
	if spacing > 0 {
		leftSpacing := spacing / 2
		statusContent = leftInfo + strings.Repeat(" ", leftSpacing) + centerInfo + strings.Repeat(" ", spacing-leftSpacing) + rightInfo
	} else {
		// narrow terminals
		statusContent = fmt.Sprintf("%s | %s", leftInfo, centerInfo)
	}
	return statusBarStyle.Width(m.width).Render(statusContent)
}

func (m model) renderHelpModal() string {
	helpContent := `Assembly Browser - Help

Navigation:
  ↑/↓, j/k     Navigate list
  /            Filter by accession or name

View Modes:
  1            Identifiers
  2            Structure and size
  3            Quality
  tab          Next mode

General:
  h            Toggle this help
  q, Ctrl+C    Quit application

Current Mode: ` + m.currentMode.String() + `
Assemblies: ` + fmt.Sprintf("%d (median %.2f Mb)", m.summary.Assemblies, m.summary.MedianSizeMb) + `
`

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(primaryColor).
		Padding(1, 2).
		Background(surfaceColor).
		Foreground(textColor).
		Width(60).
		Render(helpContent)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
}

func main() {
	path := kingpin.Flag("data", "assemblies JSON written by delftia fetch --json").Default(assembly.DefaultDumpPath).String()
	kingpin.Parse()

	rows, err := assembly.ReadDump(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	p := tea.NewProgram(newModel(rows), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v", err)
		os.Exit(1)
	}
}
