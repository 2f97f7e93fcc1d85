package audio

import "errors"

// ErrDecode reports a corrupt or malformed Opus frame. Implementations
// conceal the frame and keep the stream alive; the error is informational
// and surfaces through DroppedFrames, never as a fatal stream error.
var ErrDecode = errors.New("audio: opus frame decode failed")

// Decoder turns Opus frames from the BLE transport into canonical PCM.
// Opus decoding is stateful (packet-loss concealment depends on prior
// frames), so one Decoder instance must be used for the whole stream.
type Decoder interface {
	// DecodeFrame decodes a single 20 ms Opus frame. A corrupt frame is
	// replaced by a concealment frame and counted; the stream continues.
	DecodeFrame(frame []byte) ([]int16, error)
	// DecodeBundle decodes a firmware audio notification:
	// [num_frames:1][frame1_size:1][frame1_data:N]... (the 1-byte bundle
	// index has already been stripped by the caller).
	DecodeBundle(bundle []byte) ([]int16, error)
	// DroppedFrames is the number of frames concealed so far.
	DroppedFrames() uint64
}
