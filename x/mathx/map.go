package mathx

// MapU32 maps x in [inMin,inMax] to [outMin,outMax] with 64-bit intermediates.
// Clamps to out range if input is outside.
func MapU32(x, inMin, inMax, outMin, outMax uint32) uint32 {
	if inMax == inMin {
		return outMin
	}
	if x < inMin {
		return outMin
	}
	if x > inMax {
		return outMax
	}
	num := uint64(x-inMin) * uint64(outMax-outMin)
	den := uint64(inMax - inMin)
	return uint32(uint64(outMin) + num/den)
}
