package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"mert-convert/internal/discovery"
)

type wizardFieldKind int

const (
	wizardFieldString wizardFieldKind = iota
	wizardFieldInt
	wizardFieldSelect
)

type wizardField struct {
	Key      string
	Label    string
	Help     string
	Kind     wizardFieldKind
	Value    string
	Options  []string
	Validate func(string) error
}

// wizardModel walks the prompts one at a time and ends on a summary that
// must be confirmed with y.
type wizardModel struct {
	fields     []wizardField
	index      int
	input      textinput.Model
	err        string
	confirming bool
	notice     string
	width      int

	confirmed bool
	cancelled bool
}

var (
	wizardTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	wizardMutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	wizardErrorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	wizardOKStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	wizardNoticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	wizardPanelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	wizardSelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Bold(true)
)

func newWizardModel(defaults conversionPlan, videoAvailable bool, width int) wizardModel {
	mediaOptions := []string{mediaImages}
	notice := ""
	if videoAvailable {
		mediaOptions = []string{mediaImages, mediaVideos, mediaBoth}
	} else {
		notice = "ffmpeg/ffprobe not found: video conversion is disabled. Run `mert-convert doctor` for details."
	}

	fields := []wizardField{
		{Key: "media", Label: "Media Type", Help: "left/right/space to change", Kind: wizardFieldSelect, Value: mediaOptions[0], Options: mediaOptions},
		{Key: "input", Label: "Input Path", Help: "A file, a folder, or several files dragged in (space separated)", Kind: wizardFieldString, Validate: validateInputField},
		{Key: "max_kb", Label: "Max Size (KB)", Help: "Target size per output file", Kind: wizardFieldInt, Value: strconv.Itoa(defaults.MaxKB), Validate: validateMaxKB},
		{Key: "quality", Label: "Quality", Help: "Starting quality 0-100; lowered automatically to reach the size", Kind: wizardFieldInt, Value: strconv.Itoa(defaults.Quality), Validate: validateQuality},
		{Key: "output", Label: "Output Dir", Help: "Created if missing", Kind: wizardFieldString, Value: defaults.OutputDir, Validate: validateOutputField},
	}

	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 4096
	input.Width = clampInt(width-8, 20, 120)
	m := wizardModel{fields: fields, input: input, notice: notice, width: width}
	m.loadFieldIntoInput()
	m.input.Focus()
	return m
}

func validateInputField(v string) error {
	if strings.TrimSpace(v) == "" {
		return errors.New("input path is required")
	}
	_, _, err := resolveInputs(v)
	return err
}

func validateMaxKB(v string) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return errors.New("max size must be a whole number of KB greater than 0")
	}
	return nil
}

func validateQuality(v string) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 || n > 100 {
		return errors.New("quality must be a whole number between 0 and 100")
	}
	return nil
}

func validateOutputField(v string) error {
	if strings.TrimSpace(v) == "" {
		return errors.New("output directory is required")
	}
	_, err := discovery.ValidatePath(v)
	return err
}

func (m wizardModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m wizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = clampInt(m.width-8, 20, 120)
		return m, nil
	case tea.KeyMsg:
		if m.confirming {
			return m.updateConfirm(msg)
		}
		return m.updateField(msg)
	}
	return m, nil
}

func (m wizardModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch strings.ToLower(msg.String()) {
	case "y":
		m.confirmed = true
		return m, tea.Quit
	case "ctrl+c", "esc", "n", "enter":
		m.cancelled = true
		return m, tea.Quit
	case "up", "shift+tab":
		m.confirming = false
		m.loadFieldIntoInput()
		return m, nil
	}
	return m, nil
}

func (m wizardModel) updateField(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := strings.ToLower(msg.String())
	kind := m.currentField().Kind
	switch key {
	case "ctrl+c", "esc":
		m.cancelled = true
		return m, tea.Quit
	case "up", "shift+tab":
		m.commitInput()
		if m.index > 0 {
			m.index--
		}
		m.err = ""
		m.loadFieldIntoInput()
		return m, nil
	case "enter", "tab", "down":
		m.commitInput()
		f := m.currentField()
		if f.Validate != nil {
			if err := f.Validate(f.Value); err != nil {
				m.err = err.Error()
				return m, nil
			}
		}
		m.err = ""
		if m.index < len(m.fields)-1 {
			m.index++
			m.loadFieldIntoInput()
			return m, nil
		}
		m.confirming = true
		return m, nil
	case " ", "space", "right", "l":
		if kind == wizardFieldSelect {
			m.cycleSelect(1)
			return m, nil
		}
	case "left", "h":
		if kind == wizardFieldSelect {
			m.cycleSelect(-1)
			return m, nil
		}
	}

	if kind == wizardFieldSelect {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.fields[m.index].Value = m.input.Value()
	return m, cmd
}

func (m *wizardModel) currentField() wizardField {
	if len(m.fields) == 0 {
		return wizardField{}
	}
	m.index = clampInt(m.index, 0, len(m.fields)-1)
	return m.fields[m.index]
}

func (m *wizardModel) commitInput() {
	if len(m.fields) == 0 || m.fields[m.index].Kind == wizardFieldSelect {
		return
	}
	m.fields[m.index].Value = strings.TrimSpace(m.input.Value())
}

func (m *wizardModel) loadFieldIntoInput() {
	if len(m.fields) == 0 {
		return
	}
	m.input.SetValue(m.fields[m.index].Value)
	m.input.CursorEnd()
}

func (m *wizardModel) cycleSelect(step int) {
	curr := m.fields[m.index]
	if len(curr.Options) == 0 {
		return
	}
	pos := 0
	for i, opt := range curr.Options {
		if strings.EqualFold(opt, curr.Value) {
			pos = i
			break
		}
	}
	pos = (pos + step + len(curr.Options)) % len(curr.Options)
	m.fields[m.index].Value = curr.Options[pos]
	m.loadFieldIntoInput()
}

func (m wizardModel) value(key string) string {
	for _, f := range m.fields {
		if f.Key == key {
			return strings.TrimSpace(f.Value)
		}
	}
	return ""
}

// toPlan merges the answers into base. Fields are validated again because
// the user may have stepped back and edited an earlier answer.
func (m wizardModel) toPlan(base conversionPlan) (conversionPlan, error) {
	for _, f := range m.fields {
		if f.Validate == nil {
			continue
		}
		if err := f.Validate(f.Value); err != nil {
			return conversionPlan{}, fmt.Errorf("%s: %w", strings.ToLower(f.Label), err)
		}
	}
	plan := base
	var err error
	if plan.Media, err = parseMedia(m.value("media")); err != nil {
		return conversionPlan{}, err
	}
	if plan.Inputs, plan.Flatten, err = resolveInputs(m.value("input")); err != nil {
		return conversionPlan{}, err
	}
	plan.MaxKB, _ = strconv.Atoi(m.value("max_kb"))
	plan.Quality, _ = strconv.Atoi(m.value("quality"))
	plan.OutputDir, _ = discovery.ValidatePath(m.value("output"))
	return plan, nil
}

func (m wizardModel) View() string {
	if m.confirmed || m.cancelled {
		return ""
	}
	width := m.width
	if width <= 0 {
		width = 100
	}
	header := wizardTitleStyle.Render("mert-convert") + "\n" +
		wizardMutedStyle.Render("enter: next | up/shift+tab: back | esc: cancel")

	lines := make([]string, 0, len(m.fields)+2)
	for i, f := range m.fields {
		if i > m.index && !m.confirming {
			break
		}
		display := strings.TrimSpace(f.Value)
		if f.Kind == wizardFieldSelect {
			opts := make([]string, 0, len(f.Options))
			for _, opt := range f.Options {
				if strings.EqualFold(opt, display) {
					opts = append(opts, wizardSelStyle.Render(" "+opt+" "))
				} else {
					opts = append(opts, " "+opt+" ")
				}
			}
			display = strings.Join(opts, " ")
		}
		if display == "" {
			display = wizardMutedStyle.Render("(empty)")
		}
		prefix := "  "
		if i == m.index && !m.confirming {
			prefix = "> "
		}
		lines = append(lines, wrapOrTrim(fmt.Sprintf("%s%s: %s", prefix, f.Label, display), maxInt(width-6, 20)))
	}

	var body string
	if m.confirming {
		body = strings.Join(lines, "\n") + "\n\n" + wizardOKStyle.Render("Start conversion? (y/N)")
	} else {
		curr := m.currentField()
		body = strings.Join(lines, "\n") + "\n\n" + curr.Label + "\n"
		if curr.Help != "" {
			body += wizardMutedStyle.Render(curr.Help) + "\n"
		}
		if curr.Kind != wizardFieldSelect {
			body += m.input.View()
		}
		if m.err != "" {
			body += "\n" + wizardErrorStyle.Render(m.err)
		}
	}

	parts := []string{header}
	if m.notice != "" {
		parts = append(parts, wizardNoticeStyle.Render(m.notice))
	}
	parts = append(parts, wizardPanelStyle.Width(maxInt(width-2, 40)).Render(body))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
