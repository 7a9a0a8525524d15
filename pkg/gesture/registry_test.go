package gesture

import (
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/teslashibe/reachy-groove/pkg/emotion"
)

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("moonwalk")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestDefaultRegistryHasFullLibrary(t *testing.T) {
	want := []string{
		SingingSway, SingingLeanFwd, WaveAntennas,
		ExpressExcited, ExpressHappy, NodYes, TiltCurious,
		LookAround, DramaticPause, BigFinish, BashfulBow,
	}
	r := DefaultRegistry()
	for _, name := range want {
		if !r.Has(name) {
			t.Errorf("default registry missing %q", name)
		}
	}
	if got := len(r.List()); got != len(want) {
		t.Errorf("registry has %d gestures, want %d", got, len(want))
	}
}

func TestRegistryListSorted(t *testing.T) {
	names := DefaultRegistry().List()
	if !sort.StringsAreSorted(names) {
		t.Errorf("List() not sorted: %v", names)
	}
}

func TestRegistryRegisterReplaces(t *testing.T) {
	r := NewRegistry()
	r.Register("spin", func() Move {
		return NewScriptedMove("spin", time.Second, func(p float64) Pose { return Pose{} })
	})
	r.Register("spin", func() Move {
		return NewScriptedMove("spin", 2*time.Second, func(p float64) Pose { return Pose{} })
	})
	move, err := r.Get("spin")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if move.Duration() != 2*time.Second {
		t.Errorf("Duration() = %v, want replacement's 2s", move.Duration())
	}
}

func TestRegistryGetReturnsFreshInstance(t *testing.T) {
	r := DefaultRegistry()
	a, err := r.Get(SingingSway)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	b, err := r.Get(SingingSway)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if a == b {
		t.Error("Get() returned the same instance twice")
	}
}

// Every gesture referenced by a mood profile must exist in the default
// library, otherwise that mood would silently skip ticks.
func TestDefaultProfilesUseRegisteredGestures(t *testing.T) {
	r := DefaultRegistry()
	for mood, profile := range emotion.DefaultProfiles() {
		for _, name := range profile.Gestures {
			if !r.Has(name) {
				t.Errorf("%s profile references unregistered gesture %q", mood, name)
			}
		}
	}
}
