package gosampler

// applyGain scales every sample in buf (one slice per channel, covering
// [offset, offset+numFrames) in each) by gain in place. This is the
// final stage of a block: voices have already summed into buf; this
// applies the single master gain parameter before the block is handed
// back to the host.
func applyGain(buf [][]float32, offset, numFrames int, gain float32) {
	if gain == 1.0 {
		return
	}
	for ch := range buf {
		scaleChannel(buf[ch][offset:offset+numFrames], gain)
	}
}
