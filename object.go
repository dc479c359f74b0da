package zmachine

// "The object table is held in dynamic memory and its byte address is stored in the word at $0a in the header."
// Objects are numbered from 1; 0 means "nothing" and is never stored.
func (zm *ZMachine) GetObjectEntryAddress(objectIndex uint16) uint32 {
	// Skip default props
	return zm.header.objTableAddress + (zm.header.maxProperties-1)*2 +
		uint32(objectIndex-1)*zm.header.objectSize
}

// Links are bytes before V4 and words after.
func (zm *ZMachine) readObjectLink(objectIndex uint16, field uint32) uint16 {
	if objectIndex == NULL_OBJECT_INDEX {
		return NULL_OBJECT_INDEX
	}
	address := zm.GetObjectEntryAddress(objectIndex) + field
	if zm.header.Version < 4 {
		return uint16(zm.GetUint8(address))
	}
	return zm.GetUint16(address)
}

func (zm *ZMachine) writeObjectLink(objectIndex uint16, field uint32, v uint16) {
	address := zm.GetObjectEntryAddress(objectIndex) + field
	if zm.header.Version < 4 {
		zm.SetUint8(address, uint8(v))
	} else {
		zm.SetUint16(address, v)
	}
}

func (zm *ZMachine) GetParentObject(objectIndex uint16) uint16 {
	return zm.readObjectLink(objectIndex, zm.header.parentOffset)
}

func (zm *ZMachine) GetSibling(objectIndex uint16) uint16 {
	return zm.readObjectLink(objectIndex, zm.header.siblingOffset)
}

func (zm *ZMachine) GetFirstChild(objectIndex uint16) uint16 {
	return zm.readObjectLink(objectIndex, zm.header.childOffset)
}

func (zm *ZMachine) IsDirectParent(childIndex uint16, parentIndex uint16) bool {
	return zm.GetParentObject(childIndex) == parentIndex
}

// Unlink object from its parent
func (zm *ZMachine) UnlinkObject(objectIndex uint16) {
	currentParentIndex := zm.GetParentObject(objectIndex)
	if currentParentIndex == NULL_OBJECT_INDEX {
		return
	}

	sibling := zm.GetSibling(objectIndex)
	if zm.GetFirstChild(currentParentIndex) == objectIndex {
		// If we're the first child -> move to sibling
		zm.writeObjectLink(currentParentIndex, zm.header.childOffset, sibling)
	} else {
		childIter := zm.GetFirstChild(currentParentIndex)
		for childIter != NULL_OBJECT_INDEX {
			next := zm.GetSibling(childIter)
			if next == objectIndex {
				zm.writeObjectLink(childIter, zm.header.siblingOffset, sibling)
				break
			}
			childIter = next
		}
		if childIter == NULL_OBJECT_INDEX {
			zm.log.Warn("object missing from its parent's children", "object", objectIndex, "parent", currentParentIndex)
		}
	}

	zm.writeObjectLink(objectIndex, zm.header.parentOffset, NULL_OBJECT_INDEX)
	zm.writeObjectLink(objectIndex, zm.header.siblingOffset, NULL_OBJECT_INDEX)
}

// ReparentObject makes objectIndex the first child of newParentIndex.
func (zm *ZMachine) ReparentObject(objectIndex uint16, newParentIndex uint16) {
	if objectIndex == NULL_OBJECT_INDEX || newParentIndex == NULL_OBJECT_INDEX {
		return
	}

	zm.UnlinkObject(objectIndex)

	// Make the first child of our new parent
	zm.writeObjectLink(objectIndex, zm.header.parentOffset, newParentIndex)
	zm.writeObjectLink(objectIndex, zm.header.siblingOffset, zm.GetFirstChild(newParentIndex))
	zm.writeObjectLink(newParentIndex, zm.header.childOffset, objectIndex)
}

// Attribute 0 is the top bit of the first byte.
func (zm *ZMachine) attributeAddress(objectIndex uint16, attribute uint16) (uint32, uint8, bool) {
	if objectIndex == NULL_OBJECT_INDEX || attribute >= zm.header.attributes {
		return 0, 0, false
	}
	address := zm.GetObjectEntryAddress(objectIndex) + uint32(attribute>>3)
	return address, 1 << (7 - attribute&7), true
}

// True if set
func (zm *ZMachine) TestObjectAttr(objectIndex uint16, attribute uint16) bool {
	address, mask, ok := zm.attributeAddress(objectIndex, attribute)
	return ok && zm.GetUint8(address)&mask != 0
}

func (zm *ZMachine) SetObjectAttr(objectIndex uint16, attribute uint16) {
	if address, mask, ok := zm.attributeAddress(objectIndex, attribute); ok {
		zm.SetUint8(address, zm.GetUint8(address)|mask)
	}
}

func (zm *ZMachine) ClearObjectAttr(objectIndex uint16, attribute uint16) {
	if address, mask, ok := zm.attributeAddress(objectIndex, attribute); ok {
		zm.SetUint8(address, zm.GetUint8(address)&^mask)
	}
}

// Property table of an object: a length byte, the short name, then the
// property list.
func (zm *ZMachine) propertyTableAddress(objectIndex uint16) uint32 {
	return uint32(zm.GetUint16(zm.GetObjectEntryAddress(objectIndex) + zm.header.propertyOffset))
}

func (zm *ZMachine) PrintObjectName(objectIndex uint16) {
	if objectIndex == NULL_OBJECT_INDEX {
		return
	}
	propertiesAddress := zm.propertyTableAddress(objectIndex)
	if zm.GetUint8(propertiesAddress) == 0 {
		return
	}
	zm.DecodeZString(propertiesAddress+1, zm.screen.printZChar)
}

func (zm *ZMachine) objectName(objectIndex uint16) string {
	propertiesAddress := zm.propertyTableAddress(objectIndex)
	if zm.GetUint8(propertiesAddress) == 0 {
		return ""
	}
	return zm.DecodeToString(propertiesAddress + 1)
}
