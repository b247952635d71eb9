package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/forjaquest/forja-engine/internal/config"
	"github.com/forjaquest/forja-engine/internal/orchestrator"
	"github.com/forjaquest/forja-engine/internal/services"
	"github.com/forjaquest/forja-engine/pkg/session"
)

const (
	AgentName       = "Narrador"
	PlaceHolderText = "Digite sua ação aqui..."

	// First entry of the session selection list.
	newSessionLabel = "Nova sessão"
)

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *config.Config
	backend      services.Backend
	orch         *orchestrator.Orchestrator
	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	err          error
	loading      bool

	// Session selection state
	showSessionModal bool
	sessions         []session.Session
	selectedSession  int
	loadingSessions  bool

	// Quit confirmation state
	showQuitModal bool

	// Progress bar state
	progressTick int

	// Chat content snapshot while a request is in flight. The log is
	// owned by the send command until its result lands.
	inFlightContent string
}

type sessionsLoadedMsg struct {
	sessions []session.Session
	err      error
}

type sessionReadyMsg struct {
	err error
}

type interactResultMsg struct {
	input  string
	result orchestrator.Result
}

type statusChangedMsg struct {
	err error
}

type clipboardMsg struct {
	err error
}

type progressTickMsg struct{}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	sceneCardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(cfg *config.Config, backend services.Backend, orch *orchestrator.Orchestrator) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 1000
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		config:           cfg,
		backend:          backend,
		orch:             orch,
		textarea:         ta,
		chatViewport:     chatVp,
		metaViewport:     metaVp,
		ready:            false,
		showSessionModal: true,
		loadingSessions:  true,
		selectedSession:  0,
	}
}

// writeChatContent rebuilds the chat panel from the interaction log for
// the current viewport width.
func (m *ConsoleUI) writeChatContent() {
	chatWidth := m.chatViewport.Width - 6 // Account for left(3) + right(3) padding

	content := m.renderLog(chatWidth)
	if m.loading {
		content += m.renderProgressBar()
	}

	m.chatViewport.SetContent(content)
	m.chatViewport.GotoBottom()
}

func (m *ConsoleUI) renderLog(chatWidth int) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("A FORJA DOS ELEMENTOS") + "\n\n")
	content.WriteString("Digite suas ações abaixo para viver a aventura.\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", max(chatWidth-6, 10))) + "\n\n")

	for _, e := range m.orch.Log().Entries() {
		switch e.Kind {
		case session.EntryScene:
			content.WriteString(renderSceneCard(e, chatWidth) + "\n\n")
		case session.EntryIntro:
			content.WriteString(formatNarratorResponse(e.Response, chatWidth) + "\n\n")
		case session.EntryConfirmed:
			content.WriteString(renderUserLine(e.Interaction.PlayerInput, chatWidth))
			content.WriteString(formatNarratorResponse(e.Interaction.AIResponse, chatWidth) + "\n\n")
		case session.EntryPending:
			content.WriteString(renderUserLine(e.PlayerInput, chatWidth))
			content.WriteString(loadingStyle.Render("aguardando resposta...") + "\n\n")
		case session.EntryFailed:
			content.WriteString(renderUserLine(e.PlayerInput, chatWidth))
			content.WriteString(errorStyle.Render("Erro: "+e.Response) + "\n\n")
		}
	}
	return content.String()
}

func renderUserLine(input string, chatWidth int) string {
	return userStyle.Render("Você: ") + wordwrap.String(input, max(chatWidth-6, 10)) + "\n"
}

func renderSceneCard(e session.Entry, chatWidth int) string {
	var card strings.Builder
	card.WriteString(titleStyle.Render(e.SceneName))
	if e.SceneImageURL != "" {
		card.WriteString("\n" + promptStyle.Render("imagem: "+e.SceneImageURL))
	}
	if e.SceneVideoURL != "" {
		card.WriteString("\n" + promptStyle.Render("vídeo: "+e.SceneVideoURL))
	}
	return sceneCardStyle.Width(min(chatWidth-2, 70)).Render(card.String())
}

func (m *ConsoleUI) writeMetadata() {
	var content strings.Builder
	content.WriteString(titleStyle.Render("SESSÃO") + "\n\n")

	s := m.orch.Session()
	if s != nil {
		content.WriteString(fmt.Sprintf("ID: %d\n", s.ID))
		content.WriteString(fmt.Sprintf("Status: %s\n", s.Status))
		content.WriteString(fmt.Sprintf("Fase: %d\n\n", s.CurrentPhase))
	}

	if sc := m.orch.CurrentScenario(); sc != nil {
		content.WriteString("Cena atual:\n")
		content.WriteString(sc.Name + "\n\n")
	}

	content.WriteString(fmt.Sprintf("Entradas: %d\n\n", m.orch.Log().Len()))

	content.WriteString("Comandos:\n")
	content.WriteString("• Enter: Enviar\n")
	content.WriteString("• Ctrl+C: Sair\n")
	content.WriteString("• /ajuda: Ajuda\n")
	content.WriteString("• /pausar /retomar\n")
	content.WriteString("• /sessoes: Trocar sessão\n")
	content.WriteString("• /copiar: Copiar narração\n")
	content.WriteString("• /contexto: Ver contexto\n")

	m.metaViewport.SetContent(content.String())
}

func (m ConsoleUI) Init() tea.Cmd {
	if m.showSessionModal {
		return m.loadSessions()
	}
	return textarea.Blink
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle session modal first
	if m.showSessionModal {
		return m.updateSessionModal(msg)
	}

	// Handle quit modal second
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		m.textarea, tiCmd = m.textarea.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(tiCmd, vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizePanels()
		if !m.loading {
			m.writeChatContent()
		}
		m.writeMetadata()
		m.ready = true

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}

			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}

			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}

			m.textarea.Reset()
			m.loading = true
			m.progressTick = 0

			// Snapshot the log plus the outgoing line; the send command
			// owns the log until its result message lands.
			chatWidth := m.chatViewport.Width - 6
			m.inFlightContent = m.renderLog(chatWidth) + renderUserLine(input, chatWidth)
			m.chatViewport.SetContent(m.inFlightContent + m.renderProgressBar())
			m.chatViewport.GotoBottom()

			return m, tea.Batch(m.sendMessage(input), progressTick())
		}

	case interactResultMsg:
		m.loading = false
		m.inFlightContent = ""
		if msg.result.Stale {
			return m, nil
		}
		if msg.result.Err != nil {
			m.err = msg.result.Err
			// Restore the input so the player can retry.
			m.textarea.SetValue(msg.input)
		}
		m.writeChatContent()
		m.writeMetadata()
		m.chatViewport.GotoBottom()
		return m, nil

	case statusChangedMsg:
		if msg.err != nil {
			m.err = msg.err
			currentContent := m.chatViewport.View()
			m.chatViewport.SetContent(currentContent + errorStyle.Render("Erro: "+msg.err.Error()) + "\n\n")
			m.chatViewport.GotoBottom()
		}
		m.writeMetadata()
		return m, nil

	case clipboardMsg:
		currentContent := m.chatViewport.View()
		if msg.err != nil {
			m.chatViewport.SetContent(currentContent + errorStyle.Render("Erro ao copiar: "+msg.err.Error()) + "\n\n")
		} else {
			m.chatViewport.SetContent(currentContent + promptStyle.Render("Última narração copiada.") + "\n\n")
		}
		m.chatViewport.GotoBottom()
		return m, nil

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.chatViewport.SetContent(m.inFlightContent + m.renderProgressBar())
			m.chatViewport.GotoBottom()
			return m, progressTick()
		}
	}

	// Update components for non-mouse events
	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

func (m *ConsoleUI) resizePanels() {
	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	m.chatViewport.Width = chatWidth - 2
	m.chatViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(chatWidth - 4)
}

func formatNarratorResponse(response string, width int) string {
	prefix := AgentName + ": "
	wrapped := wordwrap.String(response, max(width-len(prefix), 10))
	return narratorStyle.Render(prefix) + wrapped
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	cmd := strings.ToLower(strings.TrimSpace(input))
	m.textarea.Reset()

	switch cmd {
	case "/ajuda", "/help":
		helpText := `
Comandos:
• /ajuda - Mostrar esta ajuda
• /pausar - Pausar a sessão
• /retomar - Retomar a sessão
• /sessoes - Voltar à seleção de sessões
• /copiar - Copiar a última narração
• /contexto - Mostrar o contexto de narração
• Ctrl+C - Sair

Como jogar:
• Digite suas ações e pressione Enter
• O narrador responde guiando a história
• Digam que finalizaram para avançar de cena
`
		currentContent := m.chatViewport.View()
		m.chatViewport.SetContent(currentContent + titleStyle.Render("Ajuda:") + helpText + "\n")
		m.chatViewport.GotoBottom()
		return m, nil

	case "/pausar":
		return m, func() tea.Msg {
			return statusChangedMsg{err: m.orch.Pause(context.Background())}
		}

	case "/retomar":
		return m, func() tea.Msg {
			return statusChangedMsg{err: m.orch.Resume(context.Background())}
		}

	case "/sessoes":
		if m.loading {
			return m, nil
		}
		m.orch.BackToSelection()
		m.showSessionModal = true
		m.loadingSessions = true
		m.selectedSession = 0
		m.err = nil
		return m, m.loadSessions()

	case "/copiar":
		text := m.lastNarration()
		if text == "" {
			return m, func() tea.Msg {
				return clipboardMsg{err: fmt.Errorf("nenhuma narração para copiar")}
			}
		}
		return m, func() tea.Msg {
			return clipboardMsg{err: clipboard.WriteAll(text)}
		}

	case "/contexto":
		promptContext, err := m.orch.PromptContext("(prévia)")
		var content string
		if err != nil {
			content = errorStyle.Render("Erro: " + err.Error())
		} else {
			content = titleStyle.Render("CONTEXTO DE NARRAÇÃO") + "\n\n" + promptContext
		}
		m.metaViewport.SetContent(content)
		m.metaViewport.GotoTop()
		return m, nil
	}

	return m, nil
}

// lastNarration returns the newest narrator text in the log.
func (m *ConsoleUI) lastNarration() string {
	entries := m.orch.Log().Entries()
	for i := len(entries) - 1; i >= 0; i-- {
		switch entries[i].Kind {
		case session.EntryConfirmed:
			return entries[i].Interaction.AIResponse
		case session.EntryIntro:
			return entries[i].Response
		}
	}
	return ""
}

func (m ConsoleUI) sendMessage(input string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		return interactResultMsg{
			input:  input,
			result: m.orch.SendText(ctx, input),
		}
	}
}

func (m ConsoleUI) loadSessions() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		sessions, err := m.backend.ListSessions(ctx)
		return sessionsLoadedMsg{sessions: sessions, err: err}
	}
}

// bindSession initializes the orchestrator for the chosen entry.
// sessionID 0 means a new (or rejoined) session.
func (m ConsoleUI) bindSession(sessionID int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := m.orch.Initialize(ctx, m.config.GameID, m.config.RoomID, sessionID); err != nil {
			return sessionReadyMsg{err: err}
		}
		if s := m.orch.Session(); s != nil && s.Status == session.StatusPaused {
			if err := m.orch.Resume(ctx); err != nil {
				return sessionReadyMsg{err: err}
			}
		}
		return sessionReadyMsg{}
	}
}

func (m ConsoleUI) updateSessionModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case sessionsLoadedMsg:
		m.loadingSessions = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.sessions = msg.sessions
		}

	case sessionReadyMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.showSessionModal = false
			if m.width > 0 && m.height > 0 {
				m.resizePanels()
			}
			m.writeChatContent()
			m.writeMetadata()
			m.textarea.Focus()
			m.ready = true
		}
		return m, textarea.Blink

	case tea.KeyMsg:
		if m.loadingSessions {
			if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
				return m, tea.Quit
			}
			return m, nil
		}

		if m.err != nil {
			if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
				m.showQuitModal = true
			}
			return m, nil
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyUp:
			if m.selectedSession > 0 {
				m.selectedSession--
			}
		case tea.KeyDown:
			if m.selectedSession < len(m.sessions) {
				m.selectedSession++
			}
		case tea.KeyEnter:
			m.loading = true
			if m.selectedSession == 0 {
				return m, m.bindSession(0)
			}
			return m, m.bindSession(m.sessions[m.selectedSession-1].ID)
		}
	}

	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "s", "S", "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				if m.showSessionModal {
					return m, nil
				}
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Carregando..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Sair do jogo?"))
	content.WriteString("\n\n")
	content.WriteString("Tem certeza de que quer abandonar a aventura?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Pressione S para sair, N para continuar"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderSessionModal() string {
	if m.width == 0 || m.height == 0 {
		return "Carregando..."
	}

	var content strings.Builder

	if m.loadingSessions {
		content.WriteString(modalTitleStyle.Render("Carregando sessões..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Buscando suas sessões no servidor..."))
	} else if m.err != nil {
		content.WriteString(modalTitleStyle.Render("Erro"))
		content.WriteString("\n\n")
		content.WriteString(errorStyle.Render(fmt.Sprintf("Falha ao carregar sessões: %v", m.err)))
		content.WriteString("\n\n")
		content.WriteString("Pressione Ctrl+C para sair")
	} else if m.loading {
		content.WriteString(modalTitleStyle.Render("Preparando a aventura..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Abrindo a Forja dos Elementos..."))
	} else {
		content.WriteString(modalTitleStyle.Render("Escolha uma sessão"))
		content.WriteString("\n\n")

		labels := make([]string, 0, len(m.sessions)+1)
		labels = append(labels, newSessionLabel)
		for _, s := range m.sessions {
			labels = append(labels, fmt.Sprintf("Sessão %d · %s · fase %d", s.ID, s.Status, s.CurrentPhase))
		}

		for i, label := range labels {
			if i == m.selectedSession {
				content.WriteString(modalSelectedItemStyle.Render("▶ " + label))
			} else {
				content.WriteString(modalItemStyle.Render("  " + label))
			}
			content.WriteString("\n")
		}

		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ para navegar, Enter para escolher, Ctrl+C para sair"))
	}

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showSessionModal {
		return m.renderSessionModal()
	}

	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Iniciando..."
	}

	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", max(chatWidth-4, 10))),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.chatViewport.Width - 6
	if usable <= 0 {
		usable = 30 // fallback before sizing
	}

	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓")
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
