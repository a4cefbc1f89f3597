// Package cli holds the duo command tree.
package cli

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kerry-okpere/ai-video-conferencing/internal/config"
	"github.com/kerry-okpere/ai-video-conferencing/internal/logging"
	"github.com/kerry-okpere/ai-video-conferencing/internal/ui"
	"github.com/kerry-okpere/ai-video-conferencing/internal/version"
)

// clientName is announced to the remote peer over the control channel.
const clientName = "duo"

// Execute runs the duo command tree. This is called by main.main().
func Execute() {
	root := NewRootCmd(viper.New())
	root.SilenceErrors = true
	root.SilenceUsage = true

	if err := root.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree around v. Flags are bound to v so the
// usual priority applies: flags, DUO_* environment, config file, defaults.
func NewRootCmd(v *viper.Viper) *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "duo",
		Short: "Two-person video calls over WebRTC",
		Long: `duo connects two people in a peer-to-peer audio/video call.

A small signaling server pairs the two sides; media flows directly between
them over WebRTC.`,
		Version: version.Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.Init()
			return config.ReadClientFile(v, cfgFile)
		},
	}

	config.SetClientDefaults(v)

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.duo.yaml)")
	flags.String("server", config.DefaultServerURL, "signaling server websocket URL")
	flags.String("name", "", "name shown to the other participant")
	flags.StringSlice("stun", []string{config.DefaultSTUN}, "STUN server URLs")
	flags.Int("max-reconnect-attempts", config.DefaultMaxReconnectAttempts, "signaling reconnects before giving up")
	flags.Duration("reconnect-delay", config.DefaultReconnectDelay, "wait between signaling reconnects")

	_ = v.BindPFlag(config.KeyServerURL, flags.Lookup("server"))
	_ = v.BindPFlag(config.KeyName, flags.Lookup("name"))
	_ = v.BindPFlag(config.KeySTUNServers, flags.Lookup("stun"))
	_ = v.BindPFlag(config.KeyMaxReconnectAttempts, flags.Lookup("max-reconnect-attempts"))
	_ = v.BindPFlag(config.KeyReconnectDelay, flags.Lookup("reconnect-delay"))

	root.AddCommand(
		newCallCmd(v),
		newRoomsCmd(v),
		newVersionCmd(),
	)

	return root
}
