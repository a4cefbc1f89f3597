package ui

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/kerry-okpere/ai-video-conferencing/internal/protocol"
)

const roomCapacity = 2

// RoomsView renders the server's open rooms as a table.
func RoomsView(list protocol.RoomList) string {
	if len(list.Rooms) == 0 {
		return MutedStyle.Render(fmt.Sprintf("No open rooms (%d connected)", list.Connected))
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Color.Header = text.Colors{text.FgCyan, text.Bold}
	tw.Style().Format.Header = text.FormatDefault
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 3, Align: text.AlignCenter},
	})

	tw.AppendHeader(table.Row{"#", "Room", "Participants", "Status"})
	for i, r := range list.Rooms {
		status := "waiting"
		if r.Full {
			status = "in call"
		}
		tw.AppendRow(table.Row{i + 1, r.RoomID, fmt.Sprintf("%d/%d", len(r.Participants), roomCapacity), status})
	}
	tw.AppendFooter(table.Row{"", "", "Connected", list.Connected})

	return tw.Render()
}

func RenderRooms(list protocol.RoomList) {
	fmt.Fprintln(Output, RoomsView(list))
}

// RoomCreatedView is the banner shown to the creator while waiting for
// someone to join.
func RoomCreatedView(roomID string) string {
	content := fmt.Sprintf("%s Room Created!\n\n%s Room ID:  %s\n%s Share it: %s",
		IconSuccess,
		IconCopy, BoldStyle.Foreground(Primary).Render(roomID),
		IconRoom, MutedStyle.Render("duo call --room "+roomID),
	)
	return SuccessBoxStyle.Render(content)
}

func participantsLine(ps []protocol.Participant, self string) string {
	if len(ps) == 0 {
		return MutedStyle.Render("nobody yet")
	}

	names := make([]string, 0, len(ps))
	for _, p := range ps {
		name := p.Username
		if name == "" {
			name = shortID(p.ClientID)
		}
		if p.ClientID == self {
			name += " (you)"
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
