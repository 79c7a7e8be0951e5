package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/ffi-bridge/translate"
	"github.com/wippyai/ffi-bridge/typemap"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	declStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type declKind int

const (
	declFunc declKind = iota
	declStruct
	declEnum
	declTypedef
	declConst
)

type declItem struct {
	kind    declKind
	name    string
	summary string
	index   int
}

type modelState int

const (
	stateList modelState = iota
	stateFilter
	stateDetail
)

type inspectorModel struct {
	err       error
	req       translate.Request
	platforms []typemap.Platform
	platIdx   int
	mapped    map[string]*typemap.Mapped
	mapErrs   map[string]error
	all       []declItem
	items     []declItem
	filter    textinput.Model
	selected  int
	state     modelState
	detail    []string
}

func newInspectorModel(req translate.Request) *inspectorModel {
	ti := textinput.New()
	ti.Placeholder = "type to filter"
	ti.Prompt = "/ "
	ti.Width = 32

	m := &inspectorModel{
		req:       req,
		platforms: typemap.Platforms(),
		filter:    ti,
		state:     stateList,
	}
	for i, p := range m.platforms {
		if p.Name == req.Platform.Name {
			m.platIdx = i
			break
		}
	}
	return m
}

type loadedMsg struct {
	err     error
	mapped  map[string]*typemap.Mapped
	mapErrs map[string]error
}

func (m *inspectorModel) Init() tea.Cmd {
	return m.load
}

// load maps the headers once per platform, so cycling through targets in
// the inspector is instant.
func (m *inspectorModel) load() tea.Msg {
	mapped := make(map[string]*typemap.Mapped)
	mapErrs := make(map[string]error)
	for _, p := range m.platforms {
		mp, err := parseAndMap(m.req, p)
		if err != nil {
			mapErrs[p.Name] = err
			continue
		}
		mapped[p.Name] = mp
	}
	if len(mapped) == 0 {
		return loadedMsg{err: mapErrs[m.platforms[m.platIdx].Name]}
	}
	return loadedMsg{mapped: mapped, mapErrs: mapErrs}
}

func (m *inspectorModel) current() *typemap.Mapped {
	return m.mapped[m.platforms[m.platIdx].Name]
}

func (m *inspectorModel) rebuildItems() {
	m.all = nil
	cur := m.current()
	if cur == nil {
		m.items = nil
		return
	}
	for i, fi := range cur.Funcs {
		m.all = append(m.all, declItem{kind: declFunc, name: fi.Decl.Name, summary: funcSignature(fi), index: i})
	}
	for i, si := range cur.Structs {
		m.all = append(m.all, declItem{kind: declStruct, name: si.Decl.Tag, summary: structSummary(si), index: i})
	}
	for i, ei := range cur.Enums {
		name := ei.Decl.Tag
		if name == "" {
			name = strings.ToLower(ei.GoName)
		}
		m.all = append(m.all, declItem{kind: declEnum, name: name, summary: enumSummary(ei), index: i})
	}
	for i, td := range cur.Typedefs {
		m.all = append(m.all, declItem{kind: declTypedef, name: td.Decl.Name, summary: typedefSummary(td), index: i})
	}
	for i, ci := range cur.Consts {
		m.all = append(m.all, declItem{kind: declConst, name: ci.Decl.Name, summary: constSummary(ci), index: i})
	}
	m.applyFilter()
}

func (m *inspectorModel) applyFilter() {
	q := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	if q == "" {
		m.items = m.all
	} else {
		m.items = nil
		for _, it := range m.all {
			if strings.Contains(strings.ToLower(it.name), q) {
				m.items = append(m.items, it)
			}
		}
	}
	if m.selected >= len(m.items) {
		m.selected = len(m.items) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m *inspectorModel) detailFor(it declItem) []string {
	cur := m.current()
	switch it.kind {
	case declFunc:
		return funcDetail(cur.Funcs[it.index])
	case declStruct:
		return structDetail(cur.Structs[it.index])
	case declEnum:
		return enumDetail(cur.Enums[it.index])
	case declTypedef:
		return typedefDetail(cur.Typedefs[it.index])
	default:
		return []string{constSummary(cur.Consts[it.index])}
	}
}

func (m *inspectorModel) cyclePlatform() {
	if len(m.mapped) == 0 {
		return
	}

	var prev declItem
	hasPrev := false
	if m.state == stateDetail && m.selected < len(m.items) {
		prev = m.items[m.selected]
		hasPrev = true
	}

	m.platIdx = (m.platIdx + 1) % len(m.platforms)
	m.rebuildItems()

	if m.state == stateDetail {
		if hasPrev {
			for i, it := range m.items {
				if it.kind == prev.kind && it.name == prev.name {
					m.selected = i
					m.detail = m.detailFor(it)
					return
				}
			}
		}
		m.state = stateList
	}
}

func (m *inspectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state == stateFilter {
			switch msg.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "enter", "esc":
				m.state = stateList
				m.filter.Blur()
			default:
				var cmd tea.Cmd
				m.filter, cmd = m.filter.Update(msg)
				m.applyFilter()
				return m, cmd
			}
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.state == stateList && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateList && m.selected < len(m.items)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateList:
				if len(m.items) > 0 {
					m.detail = m.detailFor(m.items[m.selected])
					m.state = stateDetail
				}
			case stateDetail:
				m.state = stateList
			}

		case "esc":
			switch {
			case m.state == stateDetail:
				m.state = stateList
			case m.state == stateList && m.filter.Value() != "":
				m.filter.SetValue("")
				m.applyFilter()
			}

		case "/":
			if m.state == stateList {
				m.state = stateFilter
				m.filter.Focus()
			}

		case "p":
			m.cyclePlatform()
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.mapped = msg.mapped
		m.mapErrs = msg.mapErrs
		m.rebuildItems()
	}

	return m, nil
}

func (m *inspectorModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if m.mapped == nil {
		return "Translating headers..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("FFI Bridge Inspector"))
	b.WriteString(" ")
	b.WriteString(strings.Join(m.req.HeaderPaths, ", "))
	b.WriteString("  ")
	b.WriteString(typeStyle.Render(m.platforms[m.platIdx].Name))
	b.WriteString("\n\n")

	if platErr := m.mapErrs[m.platforms[m.platIdx].Name]; platErr != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error on this platform: %v", platErr)))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("p platform • q quit"))
		return b.String()
	}

	if m.state == stateDetail {
		for _, line := range m.detail {
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("esc back • p platform • q quit"))
		return b.String()
	}

	b.WriteString(m.filter.View())
	b.WriteString("\n\n")

	if len(m.items) == 0 {
		b.WriteString(helpStyle.Render("no declarations match"))
		b.WriteString("\n")
	}
	for i, it := range m.items {
		if i == m.selected && m.state == stateList {
			b.WriteString(selectedStyle.Render("> " + it.name))
		} else {
			b.WriteString("  " + declStyle.Render(it.name))
		}
		b.WriteString("  ")
		b.WriteString(typeStyle.Render(it.summary))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.state == stateFilter {
		b.WriteString(helpStyle.Render("type to filter • enter apply • esc cancel"))
	} else {
		b.WriteString(helpStyle.Render("↑/↓ select • enter inspect • / filter • p platform • q quit"))
	}
	return b.String()
}

func runInteractive(req translate.Request) error {
	p := tea.NewProgram(newInspectorModel(req), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
