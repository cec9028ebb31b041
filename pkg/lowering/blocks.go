package lowering

// allocBlockID returns a fresh id for a CreateBlock record. Ids are
// only ever compared for equality (label table keys), so a simple
// monotonic counter satisfies spec.md §3's "block id -> stream
// position" contract.
func (lw *Lowering) allocBlockID() int32 {
	id := lw.nextBlockID
	lw.nextBlockID++
	return id
}

// currentBlockID is the id of the block currently being lowered into,
// used only as CreateBlock's informational ParentID field (the VM
// never reads it; spec.md §4.9 only ever keys off id).
func (lw *Lowering) currentBlockID() int32 {
	return lw.blockIDs[len(lw.blockIDs)-1]
}

func (lw *Lowering) pushBlockID(id int32) {
	lw.blockIDs = append(lw.blockIDs, id)
}

func (lw *Lowering) popBlockID() {
	lw.blockIDs = lw.blockIDs[:len(lw.blockIDs)-1]
}
