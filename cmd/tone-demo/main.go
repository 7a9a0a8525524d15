// Tone Demo - play the built-in melodies and mood cues through a sink
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/teslashibe/reachy-groove/internal/log"
	"github.com/teslashibe/reachy-groove/pkg/audioio"
	"github.com/teslashibe/reachy-groove/pkg/emotion"
	"github.com/teslashibe/reachy-groove/pkg/tone"
)

func main() {
	melodyName := flag.String("melody", "twinkle", "melody to play (see -list)")
	backend := flag.String("audio", "auto", "audio backend: auto, portaudio, or mock")
	rate := flag.Int("rate", 22050, "sample rate in Hz")
	volume := flag.Float64("volume", tone.DefaultVolume, "playback volume in (0,1]")
	cues := flag.Bool("cues", false, "play one transition cue per mood first")
	wavPath := flag.String("wav", "", "also render the melody to this WAV file")
	list := flag.Bool("list", false, "list melodies and exit")
	flag.Parse()

	melodies := tone.Melodies()
	if *list {
		names := make([]string, 0, len(melodies))
		for name := range melodies {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Println("🎼 Melodies:")
		for _, name := range names {
			m := melodies[name]
			fmt.Printf("   %-16s %3.0f BPM, %.1fs\n", name, m.Tempo, m.Duration().Seconds())
		}
		return
	}

	melody, ok := melodies[*melodyName]
	if !ok {
		fmt.Printf("❌ Unknown melody %q (try -list)\n", *melodyName)
		os.Exit(1)
	}

	fmt.Println("🎵 Tone Demo")
	fmt.Println("============")

	log.Init("warn")

	sink, err := audioio.NewSink(audioio.Config{
		Backend:    audioio.Backend(*backend),
		SampleRate: *rate,
		Channels:   1,
		ChunkSize:  2048,
	}, log.L())
	if err != nil {
		fmt.Printf("❌ Failed to open sink: %v\n", err)
		os.Exit(1)
	}
	defer sink.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := sink.Start(ctx); err != nil {
		fmt.Printf("❌ Failed to start playback: %v\n", err)
		os.Exit(1)
	}
	defer sink.Stop()

	player := tone.NewPlayer(sink, emotion.DefaultProfiles(), tone.PlayerConfig{Volume: *volume})

	if *cues {
		fmt.Println("🔔 Mood cues:")
		for _, e := range emotion.Emotions() {
			from := emotion.Neutral
			if e == emotion.Neutral {
				from = emotion.Happy
			}
			cue, err := player.OnEmotionChange(ctx, from, e)
			if err != nil {
				fmt.Printf("   %-10s ❌ %v\n", e.String(), err)
				continue
			}
			fmt.Printf("   %-10s %.0f Hz\n", cue.Emotion, cue.Frequency)
		}
		fmt.Println()
	}

	fmt.Printf("▶️  Playing %s (%.0f BPM, %.1fs)\n", melody.Name, melody.Tempo, melody.Duration().Seconds())
	if err := player.PlayMelody(ctx, melody); err != nil {
		fmt.Printf("❌ Playback failed: %v\n", err)
		os.Exit(1)
	}
	if err := sink.Flush(ctx); err != nil {
		fmt.Printf("⚠️  Flush failed: %v\n", err)
	}
	fmt.Println("✅ Done")

	if *wavPath != "" {
		synth := tone.NewSynth(*rate)
		samples := synth.RenderMelody(melody, *volume)
		if err := writeWAV(*wavPath, samples, *rate); err != nil {
			fmt.Printf("❌ Failed to write WAV: %v\n", err)
		} else {
			fmt.Printf("💾 Saved %s\n", *wavPath)
		}
	}
}

// writeWAV dumps mono int16 samples as a PCM WAV file.
func writeWAV(path string, samples []int16, sampleRate int) error {
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
	binary.Write(f, binary.LittleEndian, uint16(1))
	binary.Write(f, binary.LittleEndian, uint32(sampleRate))
	binary.Write(f, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(f, binary.LittleEndian, uint16(2))
	binary.Write(f, binary.LittleEndian, uint16(16))

	f.Write([]byte("data"))
	binary.Write(f, binary.LittleEndian, uint32(dataSize))
	return binary.Write(f, binary.LittleEndian, samples)
}
