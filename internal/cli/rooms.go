package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kerry-okpere/ai-video-conferencing/internal/config"
	"github.com/kerry-okpere/ai-video-conferencing/internal/protocol"
	"github.com/kerry-okpere/ai-video-conferencing/internal/ui"
)

const roomsTimeout = 10 * time.Second

func newRoomsCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:     "rooms",
		Aliases: []string{"ls"},
		Short:   "List open rooms on the signaling server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadClient(v)
			if err != nil {
				return err
			}

			sp := ui.NewConnectionSpinner("Fetching rooms...")
			sp.Start()
			list, err := fetchRooms(cmd.Context(), cfg.HTTPBaseURL())
			sp.Stop()
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), ui.RoomsView(list))
			return nil
		},
	}
}

func fetchRooms(ctx context.Context, baseURL string) (protocol.RoomList, error) {
	var list protocol.RoomList

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, roomsTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/rooms", nil)
	if err != nil {
		return list, fmt.Errorf("build rooms request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return list, fmt.Errorf("fetch rooms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return list, fmt.Errorf("fetch rooms: unexpected status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return list, fmt.Errorf("decode rooms: %w", err)
	}
	return list, nil
}
