// Package negotiation drives one offer/answer exchange for a peer
// connection. Every input, whether an API call or a peer connection
// callback, is queued and applied by a single goroutine, so descriptions
// and candidates are always applied in a consistent order.
package negotiation

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"
	"github.com/pion/webrtc/v4"

	"github.com/kerry-okpere/ai-video-conferencing/internal/logging"
	"github.com/kerry-okpere/ai-video-conferencing/internal/protocol"
)

// PeerConnection is the subset of *webrtc.PeerConnection the machine needs.
type PeerConnection interface {
	CreateOffer(options *webrtc.OfferOptions) (webrtc.SessionDescription, error)
	CreateAnswer(options *webrtc.AnswerOptions) (webrtc.SessionDescription, error)
	SetLocalDescription(desc webrtc.SessionDescription) error
	SetRemoteDescription(desc webrtc.SessionDescription) error
	AddICECandidate(candidate webrtc.ICECandidateInit) error
	OnICECandidate(f func(*webrtc.ICECandidate))
	OnTrack(f func(*webrtc.TrackRemote, *webrtc.RTPReceiver))
	OnConnectionStateChange(f func(webrtc.PeerConnectionState))
	Close() error
}

// Sender delivers outbound signaling records.
type Sender interface {
	Send(msg any) error
}

type Option func(*Machine)

func WithLogger(log *slog.Logger) Option {
	return func(m *Machine) {
		m.log = log
	}
}

// WithEventHandler registers the callback for machine events. It runs on the
// machine goroutine and must not block.
func WithEventHandler(f func(Event)) Option {
	return func(m *Machine) {
		m.onEvent = f
	}
}

// Machine is one negotiation session. It is never reused after Close.
type Machine struct {
	id      string
	pc      PeerConnection
	sender  Sender
	log     *slog.Logger
	onEvent func(Event)

	queue     *queue
	state     atomic.Int32
	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}

	// Owned by the run goroutine.
	localSet           bool
	remoteSet          bool
	pending            []webrtc.ICECandidateInit
	applied            int
	transportConnected bool
}

// New starts a machine in StateIdle and subscribes to pc's callbacks.
func New(pc PeerConnection, sender Sender, opts ...Option) *Machine {
	m := &Machine{
		id:      ulid.Make().String(),
		pc:      pc,
		sender:  sender,
		log:     slog.Default(),
		onEvent: func(Event) {},
		queue:   newQueue(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With(slog.String("session_id", m.id))

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		m.post(func() { m.localCandidate(c) })
	})
	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		m.post(func() { m.emit(Event{Kind: EventRemoteTrack, Track: track}) })
	})
	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		m.post(func() { m.peerState(s) })
	})

	go m.run()

	return m
}

// ID is a sortable identifier for log correlation.
func (m *Machine) ID() string {
	return m.id
}

func (m *Machine) State() State {
	return State(m.state.Load())
}

// Done is closed once the machine has shut down.
func (m *Machine) Done() <-chan struct{} {
	return m.done
}

// Initiate creates and sends an offer. Only valid in StateIdle.
func (m *Machine) Initiate() error {
	return m.post(m.initiate)
}

// HandleOffer answers a remote offer. Only valid in StateIdle.
func (m *Machine) HandleOffer(offer webrtc.SessionDescription) error {
	return m.post(func() { m.remoteOffer(offer) })
}

// HandleAnswer applies the remote answer. Only valid in StateOfferSent.
func (m *Machine) HandleAnswer(answer webrtc.SessionDescription) error {
	return m.post(func() { m.remoteAnswer(answer) })
}

// HandleCandidate applies a remote candidate, or buffers it until both
// descriptions are set.
func (m *Machine) HandleCandidate(c webrtc.ICECandidateInit) error {
	return m.post(func() { m.remoteCandidate(c) })
}

// Close moves the machine to StateClosed and releases the peer connection.
// Calling it again is a no-op.
func (m *Machine) Close() {
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		m.queue.push(m.shutdown)
	})
}

func (m *Machine) post(f func()) error {
	if m.closed.Load() {
		return ErrClosed
	}
	m.queue.push(f)
	return nil
}

func (m *Machine) run() {
	for {
		select {
		case <-m.queue.signal:
		case <-m.done:
			return
		}

		for _, f := range m.queue.drain() {
			if m.State() == StateClosed {
				return
			}
			f()
		}
	}
}

func (m *Machine) initiate() {
	if m.State() != StateIdle {
		m.fail("initiate", ErrUnexpectedSignal)
		return
	}

	m.setState(StateOffering)

	offer, err := m.pc.CreateOffer(nil)
	if err != nil {
		m.setState(StateIdle)
		m.fail("create offer", err)
		return
	}
	if err := m.pc.SetLocalDescription(offer); err != nil {
		m.setState(StateIdle)
		m.fail("set local description", err)
		return
	}
	m.localSet = true

	m.setState(StateOfferSent)
	m.send(protocol.NewOffer(offer))
}

func (m *Machine) remoteOffer(offer webrtc.SessionDescription) {
	if m.State() != StateIdle {
		m.fail("handle offer", ErrUnexpectedSignal)
		return
	}

	if err := m.pc.SetRemoteDescription(offer); err != nil {
		m.fail("set remote description", err)
		return
	}
	m.remoteSet = true

	answer, err := m.pc.CreateAnswer(nil)
	if err != nil {
		m.fail("create answer", err)
		return
	}
	if err := m.pc.SetLocalDescription(answer); err != nil {
		m.fail("set local description", err)
		return
	}
	m.localSet = true

	m.setState(StateAnswering)
	m.send(protocol.NewAnswer(answer))

	m.flush()
	m.checkConnected()
}

func (m *Machine) remoteAnswer(answer webrtc.SessionDescription) {
	if m.State() != StateOfferSent {
		m.fail("handle answer", ErrUnexpectedSignal)
		return
	}

	if err := m.pc.SetRemoteDescription(answer); err != nil {
		m.fail("set remote description", err)
		return
	}
	m.remoteSet = true

	m.flush()
	m.checkConnected()
}

// MaxPendingCandidates bounds the candidates held back until both
// descriptions are set. Extra candidates are dropped and reported.
const MaxPendingCandidates = 256

func (m *Machine) remoteCandidate(c webrtc.ICECandidateInit) {
	if !m.localSet || !m.remoteSet {
		if len(m.pending) >= MaxPendingCandidates {
			m.fail("buffer candidate", ErrTooManyPending)
			return
		}
		m.pending = append(m.pending, c)
		m.log.Debug("buffered remote candidate", slog.Int("pending", len(m.pending)))
		return
	}

	m.apply(c)
	m.checkConnected()
}

func (m *Machine) flush() {
	pending := m.pending
	m.pending = nil

	for _, c := range pending {
		m.apply(c)
	}
	if len(pending) > 0 {
		m.log.Debug("flushed buffered candidates", slog.Int("count", len(pending)))
	}
}

func (m *Machine) apply(c webrtc.ICECandidateInit) {
	if err := m.pc.AddICECandidate(c); err != nil {
		m.fail("add ice candidate", err)
		return
	}
	m.applied++
}

func (m *Machine) localCandidate(c *webrtc.ICECandidate) {
	// nil marks the end of gathering.
	if c == nil {
		return
	}
	m.send(protocol.NewICECandidate(c.ToJSON()))
}

func (m *Machine) peerState(s webrtc.PeerConnectionState) {
	m.log.Debug("peer connection state", slog.String("state", s.String()))
	m.emit(Event{Kind: EventPeerState, PeerState: s, State: m.State()})

	if s == webrtc.PeerConnectionStateConnected {
		m.transportConnected = true
		m.checkConnected()
	}
}

func (m *Machine) checkConnected() {
	switch m.State() {
	case StateConnected, StateClosed:
		return
	}
	if !m.localSet || !m.remoteSet {
		return
	}
	if m.applied > 0 || m.transportConnected {
		m.setState(StateConnected)
	}
}

func (m *Machine) shutdown() {
	if err := m.pc.Close(); err != nil {
		m.log.Debug("closing peer connection", logging.Err(err))
	}
	m.pending = nil
	m.setState(StateClosed)
	close(m.done)
}

func (m *Machine) send(msg any) {
	if err := m.sender.Send(msg); err != nil {
		m.log.Warn("dropping outbound signal", logging.Err(err))
	}
}

func (m *Machine) setState(s State) {
	prev := State(m.state.Swap(int32(s)))
	if prev == s {
		return
	}
	m.log.Debug("negotiation state", slog.String("from", prev.String()), slog.String("to", s.String()))
	m.emit(Event{Kind: EventStateChanged, State: s})
}

func (m *Machine) fail(op string, err error) {
	nerr := newError(op, m.State(), err)
	m.log.Warn("negotiation step failed", logging.Err(nerr))
	m.emit(Event{Kind: EventFailure, State: m.State(), Err: nerr})
}

func (m *Machine) emit(e Event) {
	m.onEvent(e)
}

// queue is an unbounded FIFO of steps. push never blocks so peer connection
// callbacks cannot stall on a busy machine.
type queue struct {
	mu     sync.Mutex
	items  []func()
	signal chan struct{}
}

func newQueue() *queue {
	return &queue{signal: make(chan struct{}, 1)}
}

func (q *queue) push(f func()) {
	q.mu.Lock()
	q.items = append(q.items, f)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *queue) drain() []func() {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	return items
}
