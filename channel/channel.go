// Package channel defines the two-operation blocking byte transport that
// [hostdisk] uses to carry CBW/CSW frames and data phases.
//
// The library treats a Channel as reliable in-order byte transport with
// no framing of its own: everything above this package is responsible for
// knowing how many bytes to expect and where they go. Short reads on
// InTransfer are expected and legal; callers loop until they have what
// they need.
package channel

import "context"

// Channel is the capability set an embedder supplies to carry BOT traffic
// over a real (or simulated) USB bulk endpoint pair.
type Channel interface {
	// OutTransfer blocks until all of data is delivered or returns a
	// transport failure. It returns the number of bytes actually written.
	OutTransfer(ctx context.Context, data []byte) (int, error)

	// InTransfer blocks until at least one byte arrives, then returns the
	// count actually placed into buf. A short read (n < len(buf)) is legal
	// and expected on bulk endpoints; callers loop as needed.
	InTransfer(ctx context.Context, buf []byte) (int, error)
}
