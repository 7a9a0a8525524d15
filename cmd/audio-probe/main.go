// Audio Probe - live readout of what the groove pipeline hears
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/teslashibe/reachy-groove/internal/log"
	"github.com/teslashibe/reachy-groove/pkg/audioio"
	"github.com/teslashibe/reachy-groove/pkg/feature"
)

// captureCapSeconds bounds the in-memory capture used for the exit
// analysis and the optional WAV dump.
const captureCapSeconds = 30

func main() {
	backend := flag.String("audio", "auto", "audio backend: auto, portaudio, rtp, or mock")
	device := flag.String("device", "", "capture device name for the portaudio backend")
	rate := flag.Int("rate", 22050, "sample rate in Hz")
	chunkSize := flag.Int("chunk", 2048, "samples per chunk")
	rtpAddr := flag.String("rtp-listen", ":4003", "UDP listen address for the rtp backend")
	wavPath := flag.String("wav", "", "write the captured audio to this WAV file on exit")
	list := flag.Bool("list", false, "list audio devices and exit")
	flag.Parse()

	if *list {
		listDevices()
		return
	}

	fmt.Println("🎧 Audio Probe")
	fmt.Println("==============")

	log.Init("warn")

	source, err := openSource(*backend, *device, *rate, *chunkSize, *rtpAddr)
	if err != nil {
		fmt.Printf("❌ Failed to open source: %v\n", err)
		os.Exit(1)
	}
	defer source.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := source.Start(ctx); err != nil {
		fmt.Printf("❌ Failed to start capture: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Capturing from %s (%d Hz, %d-sample chunks)\n", source.Name(), *rate, *chunkSize)
	fmt.Println("   Press Ctrl+C for the window analysis\n")

	reactive := feature.NewReactive()
	capTotal := *rate * captureCapSeconds

	var (
		mutex    sync.Mutex
		last     feature.Snapshot
		chunks   int64
		captured []int16
	)

	go func() {
		for chunk := range source.Stream() {
			mono := chunk.Mono()
			snap := reactive.Process(mono)

			mutex.Lock()
			last = snap
			chunks++
			if len(captured) < capTotal {
				captured = append(captured, mono...)
			}
			mutex.Unlock()
		}
	}()

	go func() {
		ticker := time.NewTicker(250 * time.Millisecond)
		for range ticker.C {
			mutex.Lock()
			snap, n := last, chunks
			mutex.Unlock()
			fmt.Printf("\r🎚  amp %.2f %s  beat %.2f  band %.2f  chunks %d     ",
				snap.Amplitude, levelBar(snap.Amplitude), snap.BeatStrength, snap.BandEnergy, n)
		}
	}()

	<-sigChan
	source.Stop()

	mutex.Lock()
	samples := captured
	total := chunks
	mutex.Unlock()

	fmt.Println("\n")
	fmt.Println("📊 Window analysis:")
	agg, err := feature.Analyze(samples, *rate)
	if err != nil {
		fmt.Printf("   No analysis: %v\n", err)
	} else {
		fmt.Printf("   Tempo:   %.1f BPM\n", agg.Tempo)
		fmt.Printf("   Energy:  %.2f\n", agg.Energy)
		fmt.Printf("   Valence: %.2f\n", agg.Valence)
	}
	fmt.Printf("   Captured: %.1fs over %d chunks\n", float64(len(samples))/float64(*rate), total)

	if *wavPath != "" && len(samples) > 0 {
		if err := writeWAV(*wavPath, samples, *rate, 1); err != nil {
			fmt.Printf("❌ Failed to write WAV: %v\n", err)
		} else {
			fmt.Printf("✅ Saved %s\n", *wavPath)
		}
	}
}

// openSource builds the requested source. An explicitly requested mock
// backend generates an energetic test track instead of silence.
func openSource(backend, device string, rate, chunkSize int, rtpAddr string) (audioio.Source, error) {
	cfg := audioio.Config{
		Backend:       audioio.Backend(backend),
		SampleRate:    rate,
		Channels:      1,
		ChunkSize:     chunkSize,
		Device:        device,
		RTPListenAddr: rtpAddr,
	}
	if cfg.Backend == audioio.BackendMock {
		return audioio.NewMockSource(cfg, log.L(),
			audioio.WithSineWave(800, 0.8),
			audioio.WithBeat(140, 1.0),
		), nil
	}
	return audioio.NewSource(cfg, log.L())
}

func listDevices() {
	devices, err := audioio.ListDevices()
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	fmt.Println("🎛  Audio devices:")
	for _, d := range devices {
		marker := " "
		if d.DefaultInput {
			marker = "*"
		}
		fmt.Printf(" %s %-40s in:%d out:%d @ %.0f Hz\n",
			marker, d.Name, d.MaxInputChannels, d.MaxOutputChannels, d.DefaultSampleRate)
	}
}

// levelBar renders an amplitude in [0,1] as an eight-slot meter.
func levelBar(v float64) string {
	filled := int(v * 8)
	if filled > 8 {
		filled = 8
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", 8-filled)
}

// writeWAV dumps mono int16 samples as a PCM WAV file.
func writeWAV(path string, samples []int16, sampleRate, channels int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dataSize := len(samples) * 2
	f.Write([]byte("RIFF"))
	binary.Write(f, binary.LittleEndian, uint32(36+dataSize))
	f.Write([]byte("WAVE"))

	f.Write([]byte("fmt "))
	binary.Write(f, binary.LittleEndian, uint32(16))
	binary.Write(f, binary.LittleEndian, uint16(1))
	binary.Write(f, binary.LittleEndian, uint16(channels))
	binary.Write(f, binary.LittleEndian, uint32(sampleRate))
	binary.Write(f, binary.LittleEndian, uint32(sampleRate*channels*2))
	binary.Write(f, binary.LittleEndian, uint16(channels*2))
	binary.Write(f, binary.LittleEndian, uint16(16))

	f.Write([]byte("data"))
	binary.Write(f, binary.LittleEndian, uint32(dataSize))
	return binary.Write(f, binary.LittleEndian, samples)
}
