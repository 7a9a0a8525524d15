package motion

import "errors"

// ErrDispatchFailed means the daemon rejected or never received a pose
// command. The pipeline keeps classifying while this persists; only
// motion output is affected.
var ErrDispatchFailed = errors.New("motion: dispatch failed")
