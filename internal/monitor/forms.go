package monitor

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/rileyhilliard/zonedash/internal/relay"
)

type formKind int

const (
	formRGB formKind = iota
	formThreshold
)

// formInputs holds the text bound to the form fields. It lives behind a pointer
// so huh can write into it while the model is passed by value, and it keeps the
// last submitted values as the next form's defaults.
type formInputs struct {
	kind formKind

	red, green, blue string
	threshold, hyst  string
}

func newFormInputs() *formInputs {
	return &formInputs{
		red:       strconv.Itoa(relay.DefaultRGB[0]),
		green:     strconv.Itoa(relay.DefaultRGB[1]),
		blue:      strconv.Itoa(relay.DefaultRGB[2]),
		threshold: strconv.FormatFloat(relay.DefaultThreshold, 'f', -1, 64),
		hyst:      strconv.FormatFloat(relay.DefaultHyst, 'f', -1, 64),
	}
}

// payload builds the command for the submitted form. Values were validated by
// the form, so parse errors cannot occur here.
func (in *formInputs) payload() relay.Payload {
	switch in.kind {
	case formThreshold:
		th, _ := strconv.ParseFloat(strings.TrimSpace(in.threshold), 64)
		hy, _ := strconv.ParseFloat(strings.TrimSpace(in.hyst), 64)
		return relay.FanThreshold(th, hy)
	default:
		r, _ := strconv.Atoi(strings.TrimSpace(in.red))
		g, _ := strconv.Atoi(strings.TrimSpace(in.green))
		b, _ := strconv.Atoi(strings.TrimSpace(in.blue))
		return relay.SetRGB(r, g, b)
	}
}

// validateChannel accepts an integer color channel in 0-255.
func validateChannel(s string) error {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("enter a whole number")
	}
	if v < 0 || v > 255 {
		return fmt.Errorf("must be between 0 and 255")
	}
	return nil
}

// validateRange returns a validator accepting a number in [lo, hi].
func validateRange(lo, hi float64) func(string) error {
	return func(s string) error {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("enter a number")
		}
		if v < lo || v > hi {
			return fmt.Errorf("must be between %g and %g", lo, hi)
		}
		return nil
	}
}

// buildForm creates the huh form for kind, bound to in.
func buildForm(kind formKind, in *formInputs, node string) *huh.Form {
	in.kind = kind

	var group *huh.Group
	switch kind {
	case formThreshold:
		group = huh.NewGroup(
			huh.NewInput().
				Title("Fan threshold (°C)").
				Description(fmt.Sprintf("Fan turns on above this temperature on %s", node)).
				Value(&in.threshold).
				Validate(validateRange(relay.MinThreshold, relay.MaxThreshold)),
			huh.NewInput().
				Title("Hysteresis (°C)").
				Description("Fan turns off this far below the threshold").
				Value(&in.hyst).
				Validate(validateRange(relay.MinHyst, relay.MaxHyst)),
		)
	default:
		group = huh.NewGroup(
			huh.NewInput().Title("Red").Description("LED color for "+node).Value(&in.red).Validate(validateChannel),
			huh.NewInput().Title("Green").Value(&in.green).Validate(validateChannel),
			huh.NewInput().Title("Blue").Value(&in.blue).Validate(validateChannel),
		)
	}

	return huh.NewForm(group).WithShowHelp(true)
}

func formWidth(termWidth int) int {
	if termWidth <= 0 || termWidth > 60 {
		return 60
	}
	return termWidth - 2
}

// openForm shows the command form of kind for the selected node.
func (m *Model) openForm(kind formKind) tea.Cmd {
	m.form = buildForm(kind, m.inputs, m.node).WithWidth(formWidth(m.width))
	m.viewMode = ViewForm
	return m.form.Init()
}

// closeForm returns to the dashboard without sending anything.
func (m *Model) closeForm() {
	m.form = nil
	m.viewMode = ViewDashboard
}

// updateForm forwards msg to the active form and dispatches its command once completed.
func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == KeyClose {
		m.closeForm()
		return m, nil
	}

	model, cmd := m.form.Update(msg)
	if f, ok := model.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		payload := m.inputs.payload()
		m.closeForm()
		return m, m.dispatch(payload)
	case huh.StateAborted:
		m.closeForm()
		return m, nil
	}
	return m, cmd
}
