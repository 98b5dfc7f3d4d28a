package service

import "context"

// Actuator is the capability interface for the external driver that performs
// actions against a live browser or desktop UI. The orchestration core
// depends only on this interface; backends live elsewhere. All operations
// may block on I/O and may fail.
type Actuator interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, target string) error
	TypeText(ctx context.Context, target, text string) error
	Extract(ctx context.Context, target string, schema any) (any, error)
	Submit(ctx context.Context, target string) error
	// Snapshot returns the current DOM/UI state as a string for
	// fingerprinting.
	Snapshot(ctx context.Context) (string, error)
}
