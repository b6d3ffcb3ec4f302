package streamer

import "github.com/nerrad567/ledtube-core/internal/lightshow"

// RecordSize is the wire size of one LED.
const RecordSize = 4

// EncodeFrame returns the datagram payload for f.
func EncodeFrame(f lightshow.Frame) []byte {
	return AppendFrame(make([]byte, 0, len(f)*RecordSize), f)
}

// AppendFrame appends f's wire encoding to dst: one [index, r, g, b]
// record per LED in frame order.
func AppendFrame(dst []byte, f lightshow.Frame) []byte {
	for _, s := range f {
		dst = append(dst, s.Index, s.R, s.G, s.B)
	}
	return dst
}
