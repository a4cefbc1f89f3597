package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kerry-okpere/ai-video-conferencing/internal/config"
	"github.com/kerry-okpere/ai-video-conferencing/internal/rtc"
	"github.com/kerry-okpere/ai-video-conferencing/internal/session"
	"github.com/kerry-okpere/ai-video-conferencing/internal/ui"
	"github.com/kerry-okpere/ai-video-conferencing/internal/version"
)

func newCallCmd(v *viper.Viper) *cobra.Command {
	var create bool

	cmd := &cobra.Command{
		Use:     "call",
		Aliases: []string{"c"},
		Short:   "Start or join a call",
		Long: `Connect to the signaling server and start a call.

Without flags the first open room is offered for joining, or a new room
when none is open. Press c to go.

Examples:
  duo call
  duo call --create
  duo call --create --room standup
  duo call --room red-fox-violin-lamp`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadClient(v)
			if err != nil {
				return err
			}
			return runCall(cmd.Context(), cfg, create)
		},
	}

	cmd.Flags().String("room", "", "room to join, or the id to request with --create")
	cmd.Flags().BoolVar(&create, "create", false, "create a new room instead of joining one")
	_ = v.BindPFlag(config.KeyRoom, cmd.Flags().Lookup("room"))

	return cmd
}

func runCall(parent context.Context, cfg *config.Client, create bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := slog.Default()
	hello := rtc.Hello{Username: cfg.Name, Client: clientName, Version: version.Version}

	var view *ui.CallUI
	ctrl, err := session.New(session.Options{
		URL:                  cfg.ServerURL,
		Username:             cfg.Name,
		Room:                 cfg.Room,
		Create:               create,
		AutoCall:             create || cfg.Room != "",
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
		ReconnectDelay:       cfg.ReconnectDelay,
		NewPeer: func() (session.Peer, error) {
			p, err := rtc.NewPeer(rtc.Config{STUNServers: cfg.STUNServers, Hello: hello}, log)
			if err != nil {
				return nil, err
			}
			return p, nil
		},
		OnEvent: func(e session.Event) { view.Push(e) },
		Logger:  log,
	})
	if err != nil {
		return err
	}
	view = ui.NewCallUI(ctx, ctrl, cfg.Name)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		errc <- ctrl.Run(runCtx)
	}()

	uiErr := view.Run()
	cancel()
	runErr := <-errc

	if uiErr != nil {
		return fmt.Errorf("call view: %w", uiErr)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}
