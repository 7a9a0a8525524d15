package audioio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/pion/rtp"
	"gopkg.in/hraban/opus.v2"
)

const (
	// Opus always runs at 48 kHz on the wire.
	opusWireRate = 48000

	// Largest Opus frame is 120ms: 5760 samples at 48 kHz.
	opusMaxFrameSamples = 5760

	rtpReadBufferBytes = 1500
)

// RTPSource receives Opus-over-RTP audio on a UDP socket, decodes it,
// and emits fixed-size PCM chunks at the configured sample rate.
// The backend is mono only.
type RTPSource struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	running  bool
	closed   bool
	conn     *net.UDPConn
	streamCh chan AudioChunk
	stopCh   chan struct{}
	loopDone chan struct{}

	// Stats
	chunksRead  atomic.Int64
	samplesRead atomic.Int64
	overruns    atomic.Int64
	packetsLost atomic.Int64
}

// newRTPSource creates an RTP audio source. The socket is opened on Start.
func newRTPSource(cfg Config, logger *slog.Logger) (*RTPSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Channels != 1 {
		return nil, fmt.Errorf("%w: rtp source is mono only, got %d channels", ErrUnsupportedBackend, cfg.Channels)
	}
	return &RTPSource{
		cfg:      cfg,
		logger:   logger,
		streamCh: make(chan AudioChunk, 10),
		stopCh:   make(chan struct{}),
		loopDone: make(chan struct{}),
	}, nil
}

// Start binds the UDP socket and begins decoding packets.
func (s *RTPSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.running {
		return nil
	}

	addr, err := net.ResolveUDPAddr("udp", s.cfg.RTPListenAddr)
	if err != nil {
		return fmt.Errorf("%w: resolve %s: %v", ErrDeviceUnavailable, s.cfg.RTPListenAddr, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("%w: listen %s: %v", ErrDeviceUnavailable, s.cfg.RTPListenAddr, err)
	}

	decoder, err := opus.NewDecoder(opusWireRate, 1)
	if err != nil {
		conn.Close()
		return fmt.Errorf("%w: opus decoder: %v", ErrDeviceUnavailable, err)
	}

	s.conn = conn
	s.running = true
	s.stopCh = make(chan struct{})
	s.loopDone = make(chan struct{})
	s.streamCh = make(chan AudioChunk, 10)

	go s.receiveLoop(ctx, conn, decoder)

	s.logger.Info("rtp source started",
		"listen", s.cfg.RTPListenAddr,
		"sample_rate", s.cfg.SampleRate,
	)
	return nil
}

// receiveLoop owns streamCh and closes it on exit.
func (s *RTPSource) receiveLoop(ctx context.Context, conn *net.UDPConn, decoder *opus.Decoder) {
	defer close(s.loopDone)
	defer close(s.streamCh)

	buf := make([]byte, rtpReadBufferBytes)
	frame := make([]int16, opusMaxFrameSamples)
	pending := make([]int16, 0, s.cfg.ChunkSize*4)

	var lastSeq uint16
	haveSeq := false

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		default:
		}

		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
			}
			s.logger.Warn("rtp read failed", "error", err)
			return
		}

		packet := &rtp.Packet{}
		if err := packet.Unmarshal(buf[:n]); err != nil {
			s.logger.Debug("rtp unmarshal failed", "error", err, "bytes", n)
			continue
		}

		if haveSeq {
			if gap := packet.SequenceNumber - lastSeq; gap > 1 && gap < 0x8000 {
				s.packetsLost.Add(int64(gap - 1))
			}
		}
		lastSeq = packet.SequenceNumber
		haveSeq = true

		decoded, err := decoder.Decode(packet.Payload, frame)
		if err != nil {
			s.logger.Debug("opus decode failed", "error", err, "payload_bytes", len(packet.Payload))
			continue
		}

		pcm := frame[:decoded]
		if s.cfg.SampleRate != opusWireRate {
			pcm = Resample(pcm, opusWireRate, s.cfg.SampleRate)
		}
		pending = append(pending, pcm...)

		for len(pending) >= s.cfg.ChunkSize {
			samples := make([]int16, s.cfg.ChunkSize)
			copy(samples, pending[:s.cfg.ChunkSize])
			pending = append(pending[:0], pending[s.cfg.ChunkSize:]...)

			chunk := AudioChunk{
				Samples:    samples,
				SampleRate: s.cfg.SampleRate,
				Channels:   1,
			}

			select {
			case s.streamCh <- chunk:
				s.chunksRead.Add(1)
				s.samplesRead.Add(int64(len(samples)))
			default:
				s.overruns.Add(1)
			}
		}
	}
}

// Stop halts reception and closes the socket.
func (s *RTPSource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	conn := s.conn
	s.conn = nil
	done := s.loopDone
	s.mu.Unlock()

	if conn != nil {
		// Closing the socket unblocks a pending read.
		conn.Close()
		<-done
	}

	s.logger.Info("rtp source stopped", "packets_lost", s.packetsLost.Load())
	return nil
}

// Read reads the next audio chunk.
func (s *RTPSource) Read(ctx context.Context) (AudioChunk, error) {
	select {
	case <-ctx.Done():
		return AudioChunk{}, ctx.Err()
	case chunk, ok := <-s.streamCh:
		if !ok {
			return AudioChunk{}, io.EOF
		}
		return chunk, nil
	}
}

// Stream returns the audio chunk channel.
func (s *RTPSource) Stream() <-chan AudioChunk {
	return s.streamCh
}

// Config returns the audio configuration.
func (s *RTPSource) Config() Config {
	return s.cfg
}

// Name returns "rtp".
func (s *RTPSource) Name() string {
	return "rtp"
}

// Close releases resources.
func (s *RTPSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.Stop()
}

// Stats returns source statistics.
func (s *RTPSource) Stats() SourceStats {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	return SourceStats{
		ChunksRead:  s.chunksRead.Load(),
		SamplesRead: s.samplesRead.Load(),
		Overruns:    s.overruns.Load(),
		Running:     running,
		Backend:     "rtp",
	}
}

var _ SourceWithStats = (*RTPSource)(nil)
