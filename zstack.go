package zmachine

// ZStack is the 1024-word evaluation and frame stack. The words live in the
// stack region of the address space, so they are cached, flushed and saved
// like any other memory. It grows down: sp indexes the top word and equals
// MAX_STACK when empty.
type ZStack struct {
	mem *Cache
	sp  uint16
	fp  uint16
}

func NewStack(mem *Cache) *ZStack {
	s := &ZStack{mem: mem}
	s.Reset()
	return s
}

func (s *ZStack) Reset() {
	s.sp = MAX_STACK
	s.fp = MAX_STACK - 1
}

func stackAddress(i uint16) uint32 {
	return StackRegionOffset + uint32(i)*2
}

// Get and Set address stack words by absolute index.
func (s *ZStack) Get(i uint16) uint16 {
	return s.mem.ReadWord(stackAddress(i))
}

func (s *ZStack) Set(i uint16, v uint16) {
	s.mem.WriteWord(stackAddress(i), v)
}

func (s *ZStack) Push(value uint16) {
	if s.sp == 0 {
		panic(&Error{Code: StackOverflow})
	}
	s.sp--
	s.Set(s.sp, value)
}

func (s *ZStack) Pop() uint16 {
	if s.sp >= MAX_STACK {
		panic(&Error{Code: StackUnderflow})
	}
	v := s.Get(s.sp)
	s.sp++
	return v
}

// GetTopItem reads the top word in place.
func (s *ZStack) GetTopItem() uint16 {
	if s.sp >= MAX_STACK {
		panic(&Error{Code: StackUnderflow})
	}
	return s.Get(s.sp)
}

func (s *ZStack) SetTopItem(v uint16) {
	if s.sp >= MAX_STACK {
		panic(&Error{Code: StackUnderflow})
	}
	s.Set(s.sp, v)
}

func (s *ZStack) ValidateLocalVarIndex(localVarIndex uint16) {
	if localVarIndex == 0 || localVarIndex > MAX_LOCALS || localVarIndex-1 > s.fp {
		panic(&Error{Code: IllegalOperation})
	}
}

// Local n (1-based) sits n-1 words below the frame pointer.
func (s *ZStack) GetLocalVar(localVarIndex uint16) uint16 {
	s.ValidateLocalVarIndex(localVarIndex)
	return s.Get(s.fp - (localVarIndex - 1))
}

func (s *ZStack) SetLocalVar(localVarIndex uint16, value uint16) {
	s.ValidateLocalVarIndex(localVarIndex)
	s.Set(s.fp-(localVarIndex-1), value)
}

// FrameArgs is the argument count the current routine was called with.
// The main routine has no frame header and reports none.
func (s *ZStack) FrameArgs() uint16 {
	if s.fp+1 >= MAX_STACK {
		return 0
	}
	return s.Get(s.fp+1) & ARGS_MASK
}
