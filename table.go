package zmachine

// ScanTable looks for value among length entries starting at table. Bit 7
// of form selects word entries; the low bits are the entry size in bytes.
// Returns the address of the match or 0.
func (zm *ZMachine) ScanTable(value uint16, table uint32, length uint16, form uint16) uint32 {
	step := uint32(form & 0x7F)
	words := form&0x80 != 0
	for i := uint16(0); i < length; i++ {
		var v uint16
		if words {
			v = zm.GetUint16(table)
		} else {
			v = uint16(zm.GetUint8(table))
		}
		if v == value {
			return table
		}
		table += step
	}
	return 0
}

// CopyTable copies |count| bytes from src to dst. A zero dst clears src
// instead. A negative count forces a forward copy even when the ranges
// overlap; otherwise the direction is chosen so the source survives.
func (zm *ZMachine) CopyTable(src, dst uint32, count int16) {
	if src == dst || count == 0 {
		return
	}

	if dst == 0 {
		n := uint32(count)
		if count < 0 {
			n = uint32(-int32(count))
		}
		for i := uint32(0); i < n; i++ {
			zm.SetUint8(src+i, 0)
		}
		return
	}

	if count < 0 || dst < src {
		n := uint32(-int32(count))
		if count > 0 {
			n = uint32(count)
		}
		for i := uint32(0); i < n; i++ {
			zm.SetUint8(dst+i, zm.GetUint8(src+i))
		}
		return
	}

	for i := uint32(count); i > 0; i-- {
		zm.SetUint8(dst+i-1, zm.GetUint8(src+i-1))
	}
}
