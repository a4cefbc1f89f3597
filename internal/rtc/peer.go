// Package rtc adapts pion's PeerConnection for calls: media transceivers,
// ICE server configuration and the control data channel.
package rtc

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/kerry-okpere/ai-video-conferencing/internal/logging"
)

// Config describes how to build a Peer.
type Config struct {
	STUNServers []string

	// LocalTracks are published when present. Without them the peer only
	// receives audio and video.
	LocalTracks []webrtc.TrackLocal

	// Hello is sent to the remote peer once the control channel opens.
	Hello Hello
}

// Peer is a call-ready peer connection.
type Peer struct {
	*webrtc.PeerConnection

	hello Hello
	log   *slog.Logger

	mu      sync.Mutex
	onHello func(Hello)
}

func NewPeerConnection(stunServers []string) (*webrtc.PeerConnection, error) {
	var iceServers []webrtc.ICEServer
	if len(stunServers) > 0 {
		iceServers = []webrtc.ICEServer{{URLs: stunServers}}
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers: iceServers,
	})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}
	return pc, nil
}

// NewPeer builds a cold peer connection with media sections in place.
func NewPeer(cfg Config, log *slog.Logger) (*Peer, error) {
	if log == nil {
		log = slog.Default()
	}

	pc, err := NewPeerConnection(cfg.STUNServers)
	if err != nil {
		return nil, err
	}

	p := &Peer{
		PeerConnection: pc,
		hello:          cfg.Hello,
		log:            log.With(slog.String("component", "rtc")),
		onHello:        func(Hello) {},
	}

	if err := p.addMedia(cfg.LocalTracks); err != nil {
		pc.Close()
		return nil, err
	}

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != ControlLabel {
			p.log.Debug("ignoring data channel", slog.String("label", dc.Label()))
			return
		}
		p.attach(dc)
	})

	return p, nil
}

func (p *Peer) addMedia(tracks []webrtc.TrackLocal) error {
	if len(tracks) > 0 {
		for _, track := range tracks {
			if _, err := p.AddTrack(track); err != nil {
				return fmt.Errorf("add local track %s: %w", track.ID(), err)
			}
		}
		return nil
	}

	for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeAudio, webrtc.RTPCodecTypeVideo} {
		_, err := p.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionRecvonly,
		})
		if err != nil {
			return fmt.Errorf("add %s transceiver: %w", kind, err)
		}
	}
	return nil
}

// OpenControl creates the control data channel. Only the offerer calls it,
// before creating the offer.
func (p *Peer) OpenControl() error {
	ordered := true
	dc, err := p.CreateDataChannel(ControlLabel, &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return fmt.Errorf("create control channel: %w", err)
	}
	p.attach(dc)
	return nil
}

// OnPeerHello registers the callback for the remote peer's Hello.
func (p *Peer) OnPeerHello(f func(Hello)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onHello = f
}

func (p *Peer) attach(dc *webrtc.DataChannel) {
	dc.OnOpen(func() {
		data, err := EncodeHello(p.hello)
		if err != nil {
			p.log.Warn("encoding hello", logging.Err(err))
			return
		}
		if err := dc.Send(data); err != nil {
			p.log.Warn("sending hello", logging.Err(err))
		}
	})

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		p.handleControl(msg.Data)
	})
}

func (p *Peer) handleControl(data []byte) {
	msg, err := DecodeControl(data)
	if err != nil {
		p.log.Warn("dropping malformed control message", logging.Err(err))
		return
	}

	switch msg.Type {
	case TypeHello:
		var hello Hello
		if err := msg.DecodePayload(&hello); err != nil {
			p.log.Warn("dropping malformed hello", logging.Err(err))
			return
		}
		p.mu.Lock()
		onHello := p.onHello
		p.mu.Unlock()
		onHello(hello)
	default:
		p.log.Debug("unknown control message", slog.String("type", msg.Type))
	}
}
