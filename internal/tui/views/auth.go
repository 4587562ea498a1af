package views

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"coursehub/internal/tui/api"
	"coursehub/internal/tui/components"
	"coursehub/internal/tui/styles"
	"coursehub/pkg/models"
	"coursehub/pkg/utils"
)

// AuthMode selects between the login and register forms.
type AuthMode int

const (
	ModeLogin AuthMode = iota
	ModeRegister
)

// Field slots in AuthModel.inputs.
const (
	idxUsername = iota
	idxEmail
	idxPassword
	idxConfirm
)

var (
	loginFields    = []int{idxUsername, idxPassword}
	registerFields = []int{idxUsername, idxEmail, idxPassword, idxConfirm}
)

// AuthModel renders the login/register form shown before any other view.
type AuthModel struct {
	mode      AuthMode
	apiClient *api.Client

	inputs  []components.Input
	submit  components.Button
	spin    components.Spinner
	focused int // index into the active field order; one past the end is the button
	loading bool
	err     error

	width  int
	height int
}

// The shared validators return the server's generic invalid-input error,
// so the form wraps them with messages worth reading.
func usernameRule(v string) error {
	if utils.ValidateUsername(v) != nil {
		return errors.New("3-50 letters, digits or underscores")
	}
	return nil
}

func emailRule(v string) error {
	if utils.ValidateEmail(v) != nil {
		return errors.New("not a valid email address")
	}
	return nil
}

func passwordRule(v string) error {
	if utils.ValidatePassword(v) != nil {
		return errors.New("12+ chars with upper, lower, digit and symbol")
	}
	return nil
}

// NewAuthModel builds the form in login mode with the username focused.
func NewAuthModel(apiClient *api.Client) AuthModel {
	username := components.NewInput("Username", "learner42")
	username.SetRequired(true)
	username.SetValidator(usernameRule)

	email := components.NewInput("Email", "you@example.com")
	email.SetRequired(true)
	email.SetValidator(emailRule)

	password := components.NewPasswordInput("Password")
	password.SetRequired(true)

	confirm := components.NewPasswordInput("Confirm password")
	confirm.SetRequired(true)

	m := AuthModel{
		mode:      ModeLogin,
		apiClient: apiClient,
		inputs:    []components.Input{username, email, password, confirm},
		submit:    components.NewButton("Login"),
		spin:      components.NewSpinner("Signing in..."),
	}
	m.inputs[idxUsername].Focus()
	return m
}

func (m AuthModel) Init() tea.Cmd {
	return textinput.Blink
}

// fieldOrder returns the visible field slots for the current mode.
func (m AuthModel) fieldOrder() []int {
	if m.mode == ModeRegister {
		return registerFields
	}
	return loginFields
}

func (m AuthModel) Update(msg tea.Msg) (AuthModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case AuthSuccessMsg:
		m.loading = false
		m.submit.SetState(components.ButtonSuccess)
		return m, nil

	case AuthErrorMsg:
		m.loading = false
		m.err = msg.Err
		m.submit.SetState(components.ButtonNormal)
		return m, m.applyFocus()

	case tea.KeyMsg:
		if m.loading {
			return m, nil
		}
		switch msg.String() {
		case "tab", "down":
			return m.moveFocus(1)
		case "shift+tab", "up":
			return m.moveFocus(-1)
		case "ctrl+t":
			m.toggleMode()
			return m, m.applyFocus()
		case "enter":
			if m.focused == len(m.fieldOrder()) {
				return m.submitForm()
			}
			return m.moveFocus(1)
		}
	}

	if m.loading {
		if cmd := m.spin.Update(msg); cmd != nil {
			return m, cmd
		}
		return m, nil
	}

	// Everything else is typing for the focused field.
	order := m.fieldOrder()
	if m.focused < len(order) {
		return m, m.inputs[order[m.focused]].Update(msg)
	}
	return m, nil
}

// moveFocus walks fields top to bottom with the submit button last.
func (m AuthModel) moveFocus(delta int) (AuthModel, tea.Cmd) {
	n := len(m.fieldOrder()) + 1
	m.focused = ((m.focused+delta)%n + n) % n
	return m, m.applyFocus()
}

func (m *AuthModel) applyFocus() tea.Cmd {
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	order := m.fieldOrder()
	if m.focused < len(order) {
		m.submit.SetState(components.ButtonNormal)
		return m.inputs[order[m.focused]].Focus()
	}
	m.submit.SetState(components.ButtonActive)
	return nil
}

// toggleMode switches login/register, keeping the username but clearing
// the secret fields.
func (m *AuthModel) toggleMode() {
	if m.mode == ModeLogin {
		m.mode = ModeRegister
		m.submit.SetLabel("Register")
		m.spin.SetMessage("Creating account...")
		m.inputs[idxPassword].SetValidator(passwordRule)
	} else {
		m.mode = ModeLogin
		m.submit.SetLabel("Login")
		m.spin.SetMessage("Signing in...")
		m.inputs[idxPassword].SetValidator(nil)
	}
	for i := range m.inputs {
		if i != idxUsername {
			m.inputs[i].Reset()
		}
	}
	m.err = nil
	m.focused = 0
}

func (m AuthModel) submitForm() (AuthModel, tea.Cmd) {
	invalid := false
	for _, idx := range m.fieldOrder() {
		if err := m.inputs[idx].Validate(); err != nil {
			invalid = true
		}
	}
	if m.mode == ModeRegister &&
		m.inputs[idxPassword].Value() != m.inputs[idxConfirm].Value() {
		m.err = errors.New("passwords do not match")
		invalid = true
	}
	if invalid {
		return m, nil
	}

	m.err = nil
	m.loading = true
	m.submit.SetState(components.ButtonLoading)

	username := m.inputs[idxUsername].Value()
	password := m.inputs[idxPassword].Value()
	if m.mode == ModeLogin {
		return m, tea.Batch(m.spin.Tick(), loginCmd(m.apiClient, username, password))
	}
	email := m.inputs[idxEmail].Value()
	return m, tea.Batch(m.spin.Tick(), registerCmd(m.apiClient, username, email, password))
}

func loginCmd(client *api.Client, username, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := utils.WithTimeout(context.Background())
		defer cancel()
		resp, err := client.Login(ctx, username, password)
		if err != nil {
			return AuthErrorMsg{Err: err}
		}
		return AuthSuccessMsg{Username: resp.User.Username, Token: resp.Token, User: &resp.User}
	}
}

func registerCmd(client *api.Client, username, email, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := utils.WithTimeout(context.Background())
		defer cancel()
		resp, err := client.Register(ctx, username, email, password)
		if err != nil {
			return AuthErrorMsg{Err: err}
		}
		return AuthSuccessMsg{Username: resp.User.Username, Token: resp.Token, User: &resp.User}
	}
}

func (m AuthModel) View() string {
	var b strings.Builder

	title := "🔐 Sign in to CourseHub"
	if m.mode == ModeRegister {
		title = "📝 Create your account"
	}
	b.WriteString(styles.TitleStyle.Render(title))
	b.WriteString("\n\n")

	var form strings.Builder
	for _, idx := range m.fieldOrder() {
		form.WriteString(m.inputs[idx].View())
		form.WriteString("\n\n")
	}
	form.WriteString(m.submit.View())
	b.WriteString(styles.CardStyle.Render(form.String()))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(styles.ErrorStyle.Render("✗ " + m.err.Error()))
		b.WriteString("\n\n")
	}
	if m.loading {
		b.WriteString(m.spin.View())
		b.WriteString("\n\n")
	}

	toggleHint := "register instead"
	if m.mode == ModeRegister {
		toggleHint = "login instead"
	}
	b.WriteString(styles.RenderHelp(
		"tab", "next field",
		"enter", "submit",
		"ctrl+t", toggleHint,
	))

	return b.String()
}

// AuthSuccessMsg is sent when login or registration succeeds.
type AuthSuccessMsg struct {
	Username string
	Token    string
	User     *models.UserProfile
}

// AuthErrorMsg is sent when the auth request fails.
type AuthErrorMsg struct {
	Err error
}
