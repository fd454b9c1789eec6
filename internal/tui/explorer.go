// Package tui is an interactive terminal explorer for the datasets this
// tool reads and writes: a variable list with summary statistics and a
// plot pane that walks the grid column by column.
package tui

import (
	"context"
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/vremap/internal/dataset"
	"github.com/san-kum/vremap/internal/remap"
	"github.com/san-kum/vremap/internal/store"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	subStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("51")).Bold(true)
	rowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	dimRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(10)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

const (
	stateList = iota
	statePlot
)

type model struct {
	path           string
	ds             *dataset.Dataset
	stats          []remap.FieldStats
	state, cursor  int
	timeIdx        int
	latIdx, lonIdx int
	width, height  int
}

func newModel(path string, ds *dataset.Dataset) model {
	return model{
		path:   path,
		ds:     ds,
		stats:  remap.DatasetStats(ds),
		latIdx: len(ds.Lat) / 2,
		lonIdx: len(ds.Lon) / 2,
		width:  80, height: 24,
	}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.state == stateList {
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.stats)-1 {
				m.cursor++
			}
		case "enter", " ":
			if len(m.stats) > 0 {
				m.state = statePlot
			}
		}
		return m, nil
	}
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "q", "escape":
		m.state = stateList
	case "[":
		m.timeIdx = clamp(m.timeIdx-1, len(m.ds.Time))
	case "]":
		m.timeIdx = clamp(m.timeIdx+1, len(m.ds.Time))
	case "left", "h":
		m.lonIdx = clamp(m.lonIdx-1, len(m.ds.Lon))
	case "right", "l":
		m.lonIdx = clamp(m.lonIdx+1, len(m.ds.Lon))
	case "up", "k":
		m.latIdx = clamp(m.latIdx-1, len(m.ds.Lat))
	case "down", "j":
		m.latIdx = clamp(m.latIdx+1, len(m.ds.Lat))
	case "tab":
		if m.cursor < len(m.stats)-1 {
			m.cursor++
		} else {
			m.cursor = 0
		}
	}
	return m, nil
}

func (m model) View() string {
	if m.state == statePlot {
		return m.viewPlot()
	}
	return m.viewList()
}

func (m model) viewList() string {
	var b strings.Builder
	b.WriteString("\n  " + headerStyle.Render("VREMAP") + "  " + subStyle.Render(m.path) + "\n")
	b.WriteString("  " + subStyle.Render(m.describeGrid()) + "\n\n")
	b.WriteString("  " + subStyle.Render(fmt.Sprintf("  %-14s %-10s %12s %12s %12s", "VARIABLE", "UNITS", "MIN", "MEAN", "MAX")) + "\n")
	for i, st := range m.stats {
		line := fmt.Sprintf("%-14s %-10s %12.4g %12.4g %12.4g", st.Name, st.Units, st.Min, st.Mean, st.Max)
		if st.Missing > 0 {
			line += dimRowStyle.Render(fmt.Sprintf("  (%d missing)", st.Missing))
		}
		if i == m.cursor {
			b.WriteString("  " + cursorStyle.Render("▸ ") + rowStyle.Bold(true).Render(line) + "\n")
		} else {
			b.WriteString("    " + dimRowStyle.Render(line) + "\n")
		}
	}
	b.WriteString(helpStyle.Render("\n  j/k navigate  enter plot  q quit"))
	return b.String()
}

func (m model) viewPlot() string {
	st := m.stats[m.cursor]
	f, ok := m.ds.Field(st.Name)
	if !ok {
		return "variable disappeared"
	}
	var b strings.Builder
	b.WriteString("\n  " + headerStyle.Render(strings.ToUpper(st.Name)) + "  " + subStyle.Render(st.Units) + "\n")
	b.WriteString("  " + subStyle.Render(m.describePoint(f)) + "\n")

	series, axis, missing := m.series(f)
	if len(series) > 1 {
		w := m.width - 20
		if w < 30 {
			w = 30
		} else if w > 100 {
			w = 100
		}
		chart := asciigraph.Plot(series, asciigraph.Height(12), asciigraph.Width(w),
			asciigraph.Caption(fmt.Sprintf("%s over %s", st.Name, axis)))
		b.WriteString(graphStyle.Render(chart) + "\n")
	} else {
		b.WriteString("\n  " + dimRowStyle.Render("not enough values to plot") + "\n")
	}

	b.WriteString("  " + labelStyle.Render("min") + valueStyle.Render(fmt.Sprintf("%.6g", st.Min)) + "\n")
	b.WriteString("  " + labelStyle.Render("max") + valueStyle.Render(fmt.Sprintf("%.6g", st.Max)) + "\n")
	b.WriteString("  " + labelStyle.Render("mean") + valueStyle.Render(fmt.Sprintf("%.6g", st.Mean)) + "\n")
	if missing > 0 {
		b.WriteString("  " + labelStyle.Render("missing") + valueStyle.Render(fmt.Sprintf("%d of the plotted slice", missing)) + "\n")
	}
	b.WriteString(helpStyle.Render("\n  [ ] time  h/l longitude  j/k latitude  tab next variable  esc back"))
	return b.String()
}

// describeGrid summarizes the coordinate extent for the list header.
func (m model) describeGrid() string {
	parts := []string{}
	if n := len(m.ds.Time); n > 0 {
		parts = append(parts, fmt.Sprintf("%d time steps", n))
	}
	if n := len(m.ds.Vertical); n > 0 {
		parts = append(parts, fmt.Sprintf("%d %s levels", n, m.ds.VDim))
	}
	if len(m.ds.Lat) > 0 && len(m.ds.Lon) > 0 {
		parts = append(parts, fmt.Sprintf("%dx%d grid %.3g..%.3g / %.3g..%.3g",
			len(m.ds.Lat), len(m.ds.Lon),
			m.ds.Lat[len(m.ds.Lat)-1], m.ds.Lat[0],
			m.ds.Lon[0], m.ds.Lon[len(m.ds.Lon)-1]))
	}
	return strings.Join(parts, "  ·  ")
}

// describePoint names the slice the plot shows for this field layout.
func (m model) describePoint(f *dataset.Field) string {
	parts := []string{}
	if hasDim(f.Dims, dataset.DimTime) && len(m.ds.Time) > 0 && !m.plotsOverTime(f) {
		parts = append(parts, fmt.Sprintf("time %g %s", m.ds.Time[m.timeIdx], m.ds.TimeUnits))
	}
	if hasDim(f.Dims, dataset.DimLat) && m.latIdx < len(m.ds.Lat) {
		parts = append(parts, fmt.Sprintf("lat %.3f", m.ds.Lat[m.latIdx]))
	}
	if hasDim(f.Dims, dataset.DimLon) && m.lonIdx < len(m.ds.Lon) {
		parts = append(parts, fmt.Sprintf("lon %.3f", m.ds.Lon[m.lonIdx]))
	}
	if len(parts) == 0 {
		return "whole record"
	}
	return strings.Join(parts, "  ")
}

// plotsOverTime reports whether the plot axis for this field is time
// rather than the vertical coordinate.
func (m model) plotsOverTime(f *dataset.Field) bool {
	return !hasDim(f.Dims, m.ds.VDim)
}

// series extracts the plotted values for the current position, dropping
// missing values so the graph keeps a finite range.
func (m model) series(f *dataset.Field) (vals []float64, axis string, missing int) {
	var raw []float64
	switch {
	case dimsEqual(f.Dims, []string{dataset.DimTime, m.ds.VDim, dataset.DimLat, dataset.DimLon}):
		raw = make([]float64, len(m.ds.Vertical))
		for k := range raw {
			raw[k] = f.Data.Get(m.timeIdx, k, m.latIdx, m.lonIdx)
		}
		axis = m.ds.VDim
	case dimsEqual(f.Dims, []string{dataset.DimTime, m.ds.VDim}):
		raw = make([]float64, len(m.ds.Vertical))
		for k := range raw {
			raw[k] = f.Data.Get(m.timeIdx, k)
		}
		axis = m.ds.VDim
	case dimsEqual(f.Dims, []string{dataset.DimTime, dataset.DimLat, dataset.DimLon}):
		raw = make([]float64, len(m.ds.Time))
		for t := range raw {
			raw[t] = f.Data.Get(t, m.latIdx, m.lonIdx)
		}
		axis = dataset.DimTime
	case dimsEqual(f.Dims, []string{dataset.DimTime}):
		raw = make([]float64, len(m.ds.Time))
		for t := range raw {
			raw[t] = f.Data.Get(t)
		}
		axis = dataset.DimTime
	default:
		return nil, "", 0
	}
	vals = make([]float64, 0, len(raw))
	for _, v := range raw {
		if math.IsNaN(v) {
			missing++
			continue
		}
		vals = append(vals, v)
	}
	return vals, axis, missing
}

func hasDim(dims []string, name string) bool {
	for _, d := range dims {
		if d == name {
			return true
		}
	}
	return false
}

func dimsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func clamp(idx, n int) int {
	if idx < 0 {
		return 0
	}
	if idx >= n {
		if n == 0 {
			return 0
		}
		return n - 1
	}
	return idx
}

// Explore loads the file at path and runs the explorer until the user
// quits.
func Explore(path string) error {
	ds, err := store.Load(context.Background(), path, nil)
	if err != nil {
		return err
	}
	if len(ds.Names()) == 0 {
		return fmt.Errorf("tui: %s holds no variables", path)
	}
	return tea.NewProgram(newModel(path, ds), tea.WithAltScreen()).Start()
}
