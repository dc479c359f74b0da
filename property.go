package zmachine

func (zm *ZMachine) GetFirstPropertyAddress(objectIndex uint16) uint32 {
	propertiesAddress := zm.propertyTableAddress(objectIndex)
	nameLength := uint32(zm.GetUint8(propertiesAddress)) * 2 // in 2-byte words
	return propertiesAddress + nameLength + 1
}

// propertySize decodes the size byte(s) at a property entry and returns the
// data length and the number of header bytes before the data.
//
// "In Versions 1 to 3, each property is stored as a block
//
//	size byte     the actual property data
//
// where the size byte is arranged as 32 times the number of data bytes minus one, plus the property number."
// "In Versions 4 and upwards, a property block instead has the form
//
//	size and number       1 or 2 bytes
//	the actual property data"
func (zm *ZMachine) propertySize(address uint32) (uint32, uint32) {
	b := zm.GetUint8(address)
	if zm.header.Version < 4 {
		return uint32(b>>5) + 1, 1
	}
	if b&0x80 != 0 {
		// "A value of 0 as property data length (in the second byte) should be interpreted as a length of 64."
		size := uint32(zm.GetUint8(address+1) & 0x3F)
		if size == 0 {
			size = 64
		}
		return size, 2
	}
	if b&0x40 != 0 {
		return 2, 1
	}
	return 1, 1
}

func (zm *ZMachine) propertyID(address uint32) uint16 {
	return uint16(zm.GetUint8(address) & zm.header.propertyMask)
}

// NextPropertyAddress skips the entry at address.
func (zm *ZMachine) NextPropertyAddress(address uint32) uint32 {
	size, header := zm.propertySize(address)
	return address + header + size
}

// Returns prop entry address, data address, number of property bytes
// (0 if not found)
func (zm *ZMachine) GetObjectPropertyInfo(objectIndex uint16, propertyId uint16) (uint32, uint32, uint32) {
	if objectIndex == NULL_OBJECT_INDEX {
		return 0, 0, 0
	}
	address := zm.GetFirstPropertyAddress(objectIndex)
	for {
		id := zm.propertyID(address)
		// Props are sorted, a zero id ends the list
		if id == 0 || id < propertyId {
			return 0, 0, 0
		}
		size, header := zm.propertySize(address)
		if id == propertyId {
			return address, address + header, size
		}
		address += header + size
	}
}

func (zm *ZMachine) GetObjectPropertyAddress(objectIndex uint16, propertyId uint16) uint32 {
	_, data, _ := zm.GetObjectPropertyInfo(objectIndex, propertyId)
	return data
}

func (zm *ZMachine) GetPropertyDefault(propertyId uint16) uint16 {
	if propertyId < 1 || uint32(propertyId) >= zm.header.maxProperties {
		zm.fatal(NoSuchProperty)
	}
	return zm.GetUint16(zm.header.objTableAddress + uint32(propertyId-1)*2)
}

// GetObjectProperty reads a byte for one byte properties and the first
// word otherwise. A missing property comes from the defaults table.
func (zm *ZMachine) GetObjectProperty(objectIndex uint16, propertyId uint16) uint16 {
	_, data, size := zm.GetObjectPropertyInfo(objectIndex, propertyId)
	switch {
	case data == 0:
		return zm.GetPropertyDefault(propertyId)
	case size == 1:
		return uint16(zm.GetUint8(data))
	}
	return zm.GetUint16(data)
}

func (zm *ZMachine) SetObjectProperty(objectIndex uint16, propertyId uint16, value uint16) {
	_, data, size := zm.GetObjectPropertyInfo(objectIndex, propertyId)
	switch {
	case data == 0:
		zm.fatal(NoSuchProperty)
	case size == 1:
		zm.SetUint8(data, uint8(value))
	default:
		zm.SetUint16(data, value)
	}
}

func (zm *ZMachine) GetNextObjectProperty(objectIndex uint16, propertyId uint16) uint16 {
	if objectIndex == NULL_OBJECT_INDEX {
		return 0
	}

	var next uint32
	// " if called with zero, it gives the first property number present."
	if propertyId == 0 {
		next = zm.GetFirstPropertyAddress(objectIndex)
	} else {
		entry, _, _ := zm.GetObjectPropertyInfo(objectIndex, propertyId)
		if entry == 0 {
			zm.fatal(NoSuchProperty)
		}
		next = zm.NextPropertyAddress(entry)
	}
	// "zero, indicating the end of the property list"
	return zm.propertyID(next)
}

// GetPropertyLength works back from a data address as returned by
// get_prop_addr. "get_prop_len 0 must return 0."
func (zm *ZMachine) GetPropertyLength(dataAddress uint32) uint16 {
	if dataAddress == 0 {
		return 0
	}
	b := zm.GetUint8(dataAddress - 1)
	if zm.header.Version < 4 {
		return uint16(b>>5) + 1
	}
	if b&0x80 != 0 {
		size := uint16(b & 0x3F)
		if size == 0 {
			size = 64
		}
		return size
	}
	if b&0x40 != 0 {
		return 2
	}
	return 1
}
