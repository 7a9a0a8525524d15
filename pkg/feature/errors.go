package feature

import "errors"

// ErrInsufficientAudio indicates the window did not contain enough
// audio to analyze. Callers skip the classification cycle and keep
// the previous result.
var ErrInsufficientAudio = errors.New("feature: insufficient audio")
