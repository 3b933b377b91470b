package settings

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/dskvich/fluentmind-bot/pkg/domain"
)

var (
	ErrUnknownAction = errors.New("unknown settings action")
	ErrTextRejected  = errors.New("this menu does not accept text")
)

const (
	ActionModel       = "model"
	ActionMemory      = "memory"
	ActionDone        = "done"
	ActionBack        = "back"
	ActionEngine      = "engine"
	ActionTemperature = "temperature"
	ActionMaxTokens   = "max_tokens"
	ActionToggle      = "toggle"
	ActionMemorySize  = "memory_size"
)

type Button struct {
	Text   string
	Action string
}

// CallbackData is the payload Telegram sends back when the button is pressed.
func (b Button) CallbackData() string {
	return domain.SettingsCallbackPrefix + b.Action
}

type Menu struct {
	Text    string
	Buttons [][]Button
}

// Transition either moves to Next or, when Apply is set, changes the settings
// and stays in the current state.
type Transition struct {
	Next  domain.State
	Apply func(domain.Settings) domain.Settings
}

type step struct {
	render      func(domain.Settings) Menu
	transitions map[string]Transition
}

var table = map[domain.State]step{
	domain.StateSelectingSetting: {
		render: func(domain.Settings) Menu {
			return Menu{
				Text: "⚙️ What would you like to change?",
				Buttons: [][]Button{
					{{Text: "🧠 Model parameters", Action: ActionModel}, {Text: "💾 Memory", Action: ActionMemory}},
					{{Text: "✅ Done", Action: ActionDone}},
				},
			}
		},
		transitions: map[string]Transition{
			ActionModel:  {Next: domain.StateModelParameters},
			ActionMemory: {Next: domain.StateMemorySettings},
			ActionDone:   {Next: domain.StateDone},
		},
	},
	domain.StateModelParameters: {
		render: func(s domain.Settings) Menu {
			return Menu{
				Text: fmt.Sprintf("🧠 Model parameters\n\nEngine: %s\nTemperature: %s\nMax tokens: %d",
					s.Model, FormatTemperature(s.Temperature), s.MaxTokens),
				Buttons: [][]Button{
					{{Text: "Engine: " + s.Model, Action: ActionEngine}},
					{{Text: "Temperature", Action: ActionTemperature}, {Text: fmt.Sprintf("Max tokens: %d", s.MaxTokens), Action: ActionMaxTokens}},
					{{Text: "⬅️ Back", Action: ActionBack}},
				},
			}
		},
		transitions: map[string]Transition{
			ActionEngine: {Apply: func(s domain.Settings) domain.Settings {
				s.Model = cycle(domain.SupportedModels, s.Model)
				return s
			}},
			ActionMaxTokens: {Apply: func(s domain.Settings) domain.Settings {
				s.MaxTokens = cycle(domain.MaxTokensOptions, s.MaxTokens)
				return s
			}},
			ActionTemperature: {Next: domain.StateTemperature},
			ActionBack:        {Next: domain.StateSelectingSetting},
		},
	},
	domain.StateMemorySettings: {
		render: func(s domain.Settings) Menu {
			return Menu{
				Text: fmt.Sprintf("💾 Memory\n\nEnabled: %s\nMemory size: %d tokens",
					lo.Ternary(s.MemoryEnabled, "yes", "no"), s.MemorySize),
				Buttons: [][]Button{
					{{Text: lo.Ternary(s.MemoryEnabled, "Disable memory", "Enable memory"), Action: ActionToggle}},
					{{Text: fmt.Sprintf("Memory size: %d", s.MemorySize), Action: ActionMemorySize}},
					{{Text: "⬅️ Back", Action: ActionBack}},
				},
			}
		},
		transitions: map[string]Transition{
			ActionToggle: {Apply: func(s domain.Settings) domain.Settings {
				s.MemoryEnabled = !s.MemoryEnabled
				return s
			}},
			ActionMemorySize: {Apply: func(s domain.Settings) domain.Settings {
				s.MemorySize = cycle(domain.MemorySizeOptions, s.MemorySize)
				return s
			}},
			ActionBack: {Next: domain.StateSelectingSetting},
		},
	},
	domain.StateTemperature: {
		render: func(s domain.Settings) Menu {
			return Menu{
				Text: fmt.Sprintf("🌡 Current temperature: %s\n\nSend a number between %s and %s.",
					FormatTemperature(s.Temperature), FormatTemperature(domain.MinTemperature), FormatTemperature(domain.MaxTemperature)),
				Buttons: [][]Button{
					{{Text: "⬅️ Back", Action: ActionBack}},
				},
			}
		},
		transitions: map[string]Transition{
			ActionBack: {Next: domain.StateModelParameters},
		},
	},
	domain.StateDone: {
		render: func(s domain.Settings) Menu {
			return Menu{
				Text: fmt.Sprintf("✅ Settings saved\n\nEngine: %s\nTemperature: %s\nMax tokens: %d\nMemory: %s (%d tokens)",
					s.Model, FormatTemperature(s.Temperature), s.MaxTokens,
					lo.Ternary(s.MemoryEnabled, "on", "off"), s.MemorySize),
			}
		},
	},
}

// Render builds the menu shown in state.
func Render(state domain.State, s domain.Settings) Menu {
	st, ok := table[state]
	if !ok {
		st = table[domain.StateSelectingSetting]
	}
	return st.render(s)
}

// Press applies a button press in state and returns the state to show next
// together with the possibly changed settings.
func Press(state domain.State, action string, s domain.Settings) (domain.State, domain.Settings, error) {
	st, ok := table[state]
	if !ok {
		return state, s, fmt.Errorf("%w: state %q", ErrUnknownAction, state)
	}

	tr, ok := st.transitions[action]
	if !ok {
		return state, s, fmt.Errorf("%w: %q in state %q", ErrUnknownAction, action, state)
	}

	if tr.Apply != nil {
		return state, tr.Apply(s), nil
	}
	return tr.Next, s, nil
}

// Enter handles free text. Only the temperature step accepts it; a valid
// value moves back to the model parameters.
func Enter(state domain.State, text string, s domain.Settings) (domain.State, domain.Settings, error) {
	if state != domain.StateTemperature {
		return state, s, ErrTextRejected
	}

	t, err := ParseTemperature(text)
	if err != nil {
		return state, s, err
	}

	s.Temperature = t
	return domain.StateModelParameters, s, nil
}

// AcceptsText reports whether free text typed in state is meant for the menu.
func AcceptsText(state domain.State) bool {
	return state == domain.StateTemperature
}

func ParseTemperature(text string) (float32, error) {
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", ".")

	v, err := strconv.ParseFloat(text, 32)
	if err != nil {
		return 0, domain.ErrInvalidTemperature
	}

	t := float32(v)
	if t < domain.MinTemperature || t > domain.MaxTemperature {
		return 0, domain.ErrInvalidTemperature
	}
	return t, nil
}

func FormatTemperature(t float32) string {
	return strconv.FormatFloat(float64(t), 'f', -1, 32)
}

// ParseAction extracts the action from callback data.
func ParseAction(data string) (string, bool) {
	return strings.CutPrefix(data, domain.SettingsCallbackPrefix)
}

func cycle[T comparable](options []T, current T) T {
	i := lo.IndexOf(options, current)
	return options[(i+1)%len(options)]
}
