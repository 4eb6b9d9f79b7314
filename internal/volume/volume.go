// Package volume defines the Slab type accumulated by Reconstruction
// and downloaded/assembled by Sink.
package volume

import "github.com/j-stephan/ddafa/internal/device"

// Slab is one z-range of the reconstructed volume, held as an owning
// device handle while Reconstruction accumulates into it. Sink
// downloads it into a buffer of its own; nothing in the pipeline fills
// in Host.
type Slab struct {
	SubvolumeID int
	Host        []float32
	Data        *device.Handle
	XExtent     int
	YExtent     int
	ZExtent     int
	ZOffset     int
	Stream      *device.Stream
}
