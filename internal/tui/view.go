package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/session"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.starting {
		return docStyle.Render(m.spinner.View() + " Resuming session...")
	}

	var content string
	switch m.state {
	case constants.ViewLogin, constants.ViewRegister, constants.ViewCreateHabit:
		content = m.viewForm()
	case constants.ViewHabits:
		content = m.viewHabits()
	case constants.ViewProfile:
		content = m.viewProfile()
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewHeader(),
		docStyle.Render(content),
		m.help.View(m),
	)
}

func (m Model) viewHeader() string {
	header := titleStyle.Render(constants.AppName + " · " + m.state.String())
	s := m.ctx.Session.Session()
	if s.User != nil {
		header = lipgloss.JoinHorizontal(lipgloss.Top, header, userStyle.Render(s.User.Username+" @ "+m.ctx.Config.ServerURL))
	}
	return header
}

// viewStatus renders the loading spinner and any pending messages
func (m Model) viewStatus() string {
	var lines []string
	if m.loading {
		lines = append(lines, m.spinner.View()+" Loading...")
	}
	if m.notice != "" {
		lines = append(lines, infoStyle.Render(m.notice))
	}
	if m.formError != "" {
		lines = append(lines, dangerStyle.Render(m.formError))
	}
	return strings.Join(lines, "\n")
}

func (m Model) viewForm() string {
	var parts []string
	if m.state == constants.ViewLogin {
		if msg := m.ctx.Session.Session().Message; msg != "" {
			parts = append(parts, warningStyle.Render(msg))
		}
	}
	if status := m.viewStatus(); status != "" {
		parts = append(parts, status)
	}
	if !m.loading {
		parts = append(parts, m.form.View())
	}
	return strings.Join(parts, "\n\n")
}

func (m Model) viewHabits() string {
	if m.pendingDelete != nil {
		return lipgloss.Place(m.width, max(m.height-4, 0),
			lipgloss.Center, lipgloss.Center,
			lipgloss.JoinVertical(lipgloss.Center,
				dangerStyle.Render(fmt.Sprintf("Delete habit %q and all of its logs?", m.pendingDelete.Name)),
				"",
				"[y] Yes",
				"[n] No",
			),
		)
	}

	parts := []string{m.grid.View()}
	if status := m.viewStatus(); status != "" {
		parts = append(parts, status)
	}
	return strings.Join(parts, "\n\n")
}

func (m Model) viewProfile() string {
	s := m.ctx.Session.Session()
	var b strings.Builder

	switch {
	case s.Status == session.Authenticating && s.User == nil:
		if s.Message != "" {
			b.WriteString(dangerStyle.Render(s.Message) + "\n\n")
		}
		b.WriteString("Logged in, but the profile could not be loaded.\n")
		b.WriteString("Press 'r' to retry or 'o' to log out.\n")
	case s.User != nil:
		fmt.Fprintf(&b, "Username:  %s\n", s.User.Username)
		fmt.Fprintf(&b, "User ID:   %d\n", s.User.ID)
		if s.User.IsAdmin {
			b.WriteString("Role:      admin\n")
		}
		if handle := s.User.TelegramHandle(); handle != "" {
			fmt.Fprintf(&b, "Telegram:  %s\n", handle)
		} else {
			b.WriteString("Telegram:  not linked\n")
		}
		fmt.Fprintf(&b, "Server:    %s\n", m.ctx.Config.ServerURL)
		if exp, ok := session.ExpiresAt(s.Token); ok {
			fmt.Fprintf(&b, "Expires:   %s\n", exp.Local().Format(time.DateTime))
		}
	}

	if m.loading {
		b.WriteString("\n" + m.spinner.View() + " Loading...")
	}
	return b.String()
}
