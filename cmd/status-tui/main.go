package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/betbot/polycopy/internal/copytrade"
	sdkhttp "github.com/betbot/polycopy/pkg/sdk/http"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
)

const (
	pollInterval = time.Second
	logLines     = 20
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	runningStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("2")) // 绿色

	stoppedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("1")) // 红色

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)

// api 控制面客户端
type api struct {
	http   *sdkhttp.Client
	tenant string
}

func (a *api) status(ctx context.Context) (*copytrade.Status, error) {
	var st copytrade.Status
	if _, err := a.http.DoRequest(ctx, http.MethodGet, a.path("status"), nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (a *api) stop(ctx context.Context) error {
	_, err := a.http.DoRequest(ctx, http.MethodPost, a.path("stop"), nil, nil)
	return err
}

func (a *api) path(action string) string {
	return "/api/tenants/" + url.PathEscape(a.tenant) + "/" + action
}

type tickMsg time.Time

type statusMsg struct {
	status *copytrade.Status
	err    error
}

type stopMsg struct{ err error }

// model 是应用程序的状态
type model struct {
	tenant  string
	status  *copytrade.Status
	err     error
	notice  string
	updated time.Time

	fetch  func() tea.Msg
	doStop func() tea.Msg
}

func newModel(a *api) model {
	return model{
		tenant: a.tenant,
		fetch: func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			st, err := a.status(ctx)
			return statusMsg{status: st, err: err}
		},
		doStop: func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			return stopMsg{err: a.stop(ctx)}
		},
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.fetch, tickCmd())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "s":
			m.notice = "stop requested..."
			return m, m.doStop
		}

	case tickMsg:
		return m, tea.Batch(m.fetch, tickCmd())

	case statusMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = msg.status
			m.updated = time.Now()
		}

	case stopMsg:
		if msg.err != nil {
			m.notice = "stop failed: " + msg.err.Error()
		} else {
			m.notice = "Termination sequence complete."
		}
		return m, m.fetch
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("PolyCopy · " + m.tenant))
	b.WriteString("\n\n")

	if m.status == nil {
		if m.err != nil {
			b.WriteString(stoppedStyle.Render("unreachable: " + m.err.Error()))
		} else {
			b.WriteString(mutedStyle.Render("loading..."))
		}
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("q quit"))
		return b.String()
	}

	st := m.status
	state := stoppedStyle.Render(strings.ToUpper(st.State))
	if st.Running {
		state = runningStyle.Render(strings.ToUpper(st.State))
	}
	summary := fmt.Sprintf("State: %s\nTarget: %s\nRun: %s\nDetected %d · Submitted %d · Failed %d · Skipped %d",
		state, orDash(st.Target), orDash(st.RunID),
		st.Stats.Detected, st.Stats.Submitted, st.Stats.Failed, st.Stats.Skipped)
	b.WriteString(borderStyle.Render(summary))
	b.WriteString("\n")

	logs := st.Logs
	if len(logs) > logLines {
		logs = logs[len(logs)-logLines:]
	}
	if len(logs) == 0 {
		b.WriteString(mutedStyle.Render("no log lines yet"))
	} else {
		b.WriteString(strings.Join(logs, "\n"))
	}
	b.WriteString("\n\n")

	footer := "s stop · q quit"
	if !m.updated.IsZero() {
		footer += " · updated " + m.updated.Format("15:04:05")
	}
	if m.err != nil {
		footer += " · last poll failed: " + m.err.Error()
	}
	if m.notice != "" {
		footer += " · " + m.notice
	}
	b.WriteString(mutedStyle.Render(footer))
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func main() {
	_ = godotenv.Load()

	listen := os.Getenv("POLYCOPY_LISTEN")
	if listen == "" || strings.HasPrefix(listen, ":") {
		listen = "127.0.0.1" + orDefault(listen, ":5000")
	}
	var (
		addr   = flag.String("addr", "http://"+listen, "control plane base URL")
		tenant = flag.String("tenant", "default", "tenant id to watch")
	)
	flag.Parse()

	a := &api{
		http:   sdkhttp.NewClient(*addr, sdkhttp.Options{Timeout: 3 * time.Second, UserAgent: "polycopy-status"}),
		tenant: *tenant,
	}
	p := tea.NewProgram(newModel(a), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err.Error())
		os.Exit(1)
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
