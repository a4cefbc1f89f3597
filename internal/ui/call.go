package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kerry-okpere/ai-video-conferencing/internal/negotiation"
	"github.com/kerry-okpere/ai-video-conferencing/internal/protocol"
	"github.com/kerry-okpere/ai-video-conferencing/internal/rtc"
	"github.com/kerry-okpere/ai-video-conferencing/internal/session"
)

// Caller is the part of the session controller the call view drives.
type Caller interface {
	StartCall() error
	Hangup()
	Action() session.Action
}

// CallUI is the live call view. Feed it controller events with Push.
type CallUI struct {
	program *tea.Program
	model   *callModel
}

type eventMsg session.Event

type actionErrMsg struct{ err error }

func NewCallUI(ctx context.Context, caller Caller, username string) *CallUI {
	m := newCallModel(caller, username)
	return &CallUI{
		model:   m,
		program: tea.NewProgram(m, tea.WithContext(ctx), tea.WithOutput(Output)),
	}
}

// Push hands one controller event to the view. It blocks until the view
// takes it or has exited.
func (ui *CallUI) Push(e session.Event) {
	ui.program.Send(eventMsg(e))
}

// Run shows the view until the user quits, the signaling connection is
// given up, or ctx is cancelled.
func (ui *CallUI) Run() error {
	_, err := ui.program.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

func (ui *CallUI) Quit() {
	ui.program.Quit()
}

type callModel struct {
	caller   Caller
	username string
	spinner  spinner.Model

	status       session.Status
	clientID     string
	rooms        []string
	roomID       string
	creator      bool
	participants []protocol.Participant
	negotiation  negotiation.State
	peer         rtc.Hello
	tracks       []string

	notice    string
	noticeErr bool
	quitting  bool
}

func newCallModel(caller Caller, username string) *callModel {
	return &callModel{
		caller:   caller,
		username: username,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(SpinnerStyle)),
	}
}

func (m *callModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *callModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.key(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case eventMsg:
		m.apply(session.Event(msg))
		if m.status == session.StatusDisconnected {
			m.quitting = true
			return m, tea.Quit
		}

	case actionErrMsg:
		m.setNotice(msg.err.Error(), true)
	}

	return m, nil
}

func (m *callModel) key(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return tea.Quit

	case "c", "enter":
		if m.roomID != "" || m.status != session.StatusConnected {
			return nil
		}
		caller := m.caller
		return func() tea.Msg {
			if err := caller.StartCall(); err != nil {
				return actionErrMsg{err: err}
			}
			return nil
		}

	case "h":
		if m.roomID == "" {
			return nil
		}
		caller := m.caller
		return func() tea.Msg {
			caller.Hangup()
			return nil
		}
	}
	return nil
}

func (m *callModel) apply(e session.Event) {
	switch e.Kind {
	case session.EventStatus:
		m.status = e.Status
		if e.Err != nil && e.Status != session.StatusConnecting {
			m.setNotice(e.Err.Error(), true)
		}
		if e.Status == session.StatusConnected {
			m.notice = ""
		}

	case session.EventWelcome:
		m.clientID = e.ClientID
		m.rooms = e.Rooms

	case session.EventRooms:
		m.rooms = e.Rooms

	case session.EventRoomCreated:
		m.roomID = e.RoomID
		m.creator = true
		m.participants = e.Participants
		m.setNotice("", false)

	case session.EventRoomJoined:
		m.roomID = e.RoomID
		m.creator = false
		m.setNotice("", false)

	case session.EventParticipants:
		m.participants = e.Participants

	case session.EventNegotiation:
		m.negotiation = e.Negotiation

	case session.EventRemoteTrack:
		if e.Track != nil {
			m.tracks = append(m.tracks, e.Track.Kind().String())
		}

	case session.EventPeerInfo:
		m.peer = e.Peer

	case session.EventHangup:
		m.roomID = ""
		m.creator = false
		m.participants = nil
		m.negotiation = negotiation.StateIdle
		m.peer = rtc.Hello{}
		m.tracks = nil
		m.setNotice("Call ended: "+e.Reason, false)

	case session.EventError:
		if e.Err != nil {
			m.setNotice(e.Err.Error(), true)
		}
	}
}

func (m *callModel) setNotice(s string, isErr bool) {
	m.notice = s
	m.noticeErr = isErr
}

func (m *callModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render(fmt.Sprintf("%s duo · %s", IconCall, m.username)))
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("%s Signaling  %s\n", IconConnect, m.statusView()))

	if m.roomID == "" {
		b.WriteString(fmt.Sprintf("%s Room       %s\n", IconRoom, MutedStyle.Render("not in a call")))
		if len(m.rooms) > 0 {
			b.WriteString(MutedStyle.Render(fmt.Sprintf("   open rooms: %s", strings.Join(m.rooms, ", "))))
			b.WriteString("\n")
		}
	} else {
		role := "joined"
		if m.creator {
			role = "created"
		}
		b.WriteString(fmt.Sprintf("%s Room       %s %s\n", IconRoom, BoldStyle.Foreground(Primary).Render(m.roomID), MutedStyle.Render("("+role+")")))
		b.WriteString(fmt.Sprintf("%s People     %s\n", IconPeer, participantsLine(m.participants, m.clientID)))
		b.WriteString(fmt.Sprintf("%s Call       %s\n", IconCall, m.negotiationView()))
		if m.peer.Username != "" {
			b.WriteString(fmt.Sprintf("   peer: %s %s\n", BoldStyle.Render(m.peer.Username), MutedStyle.Render(m.peer.Client+" "+m.peer.Version)))
		}
		if m.creator && len(m.participants) < 2 {
			b.WriteString(RoomCreatedView(m.roomID) + "\n")
		}
		if len(m.tracks) > 0 {
			b.WriteString(fmt.Sprintf("%s Media      %s\n", IconMedia, SuccessStyle.Render(strings.Join(m.tracks, " + "))))
		}
	}

	if m.notice != "" {
		style := MutedStyle
		if m.noticeErr {
			style = ErrorStyle
		}
		b.WriteString("\n" + style.Render(m.notice) + "\n")
	}

	b.WriteString(FooterStyle.Render(m.helpView()))
	return b.String()
}

func (m *callModel) statusView() string {
	switch m.status {
	case session.StatusConnected:
		return SuccessStyle.Render("connected")
	case session.StatusDisconnected:
		return ErrorStyle.Render("disconnected")
	default:
		return m.spinner.View() + " " + WarningStyle.Render(m.status.String())
	}
}

func (m *callModel) negotiationView() string {
	switch m.negotiation {
	case negotiation.StateConnected:
		return SuccessStyle.Render("connected")
	case negotiation.StateIdle:
		if m.creator && len(m.participants) < 2 {
			return IconWaiting + " " + MutedStyle.Render("waiting for someone to join")
		}
		return IconWaiting + " " + MutedStyle.Render("waiting for an offer")
	case negotiation.StateClosed:
		return MutedStyle.Render("closed")
	default:
		return m.spinner.View() + " " + m.negotiation.String()
	}
}

func (m *callModel) helpView() string {
	keys := []string{"q quit"}
	switch {
	case m.roomID != "":
		keys = append([]string{"h hang up"}, keys...)
	case m.status == session.StatusConnected:
		keys = append([]string{"c " + actionLabel(m.caller.Action())}, keys...)
	}
	return strings.Join(keys, " • ")
}

func actionLabel(a session.Action) string {
	switch {
	case a.Kind == session.ActionJoin:
		return "join " + a.RoomID
	case a.RoomID != "":
		return "create " + a.RoomID
	default:
		return "create room"
	}
}
