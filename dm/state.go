package dm

// StateTag identifies which streaming micro-program, if any, the Program
// Buffer currently holds. The engine reinstalls the WRSQ or RDSQ program
// whenever it needs a tag it does not already have cached, per
// REDESIGN FLAGS: minichlink tracked this with a raw int and a handful of
// sibling bools (autoincrement, flash_sucess, ...); collapsing them into
// one tagged variant makes the illegal combinations unrepresentable.
type StateTag int

const (
	// None: a fresh Engine; SetupInterface has not run yet.
	None StateTag = iota
	// Started: SetupInterface has configured the DM, but no streaming
	// program is installed and the scratch registers x10-x13 are not
	// primed yet.
	Started
	// WriteStream: WRSQ is installed and nextAddr/flash are valid.
	WriteStream
	// ReadStream: RDSQ is installed and nextAddr is valid.
	ReadStream
	// Terminal: PollTerminal has disabled Abstract-Auto to poll DMDATA0
	// directly; no memory stream is active.
	Terminal
	// Voided: a halt-mode change or a single-shot half-word access left
	// the Program Buffer in an unknown state, and WRSQ/RDSQ must be
	// reinstalled before streaming can resume.
	Voided
)

// State is the engine's view of what the Program Buffer currently holds,
// so that an ascending-address access can be served by "advance and read
// DMDATA0 back" instead of a full four-register reinstall.
type State struct {
	Tag      StateTag
	NextAddr uint32 // address the installed stream will touch next
	Flash    bool   // WriteStream only: is NextAddr a flash-class address
}

// Invalidate drops any cached streaming program. Called whenever a halt,
// resume, or reset, or a single-shot half-word access, leaves the Program
// Buffer's contents indeterminate.
func (s *State) Invalidate() {
	s.Tag = Voided
}

// matchesWrite reports whether the cached state can serve the next write
// to address addr of the given flash-class without reinstalling WRSQ.
func (s *State) matchesWrite(addr uint32, flash bool) bool {
	return s.Tag == WriteStream && s.NextAddr == addr && s.Flash == flash
}

// matchesRead reports whether the cached state can serve the next read
// from address addr without reinstalling RDSQ.
func (s *State) matchesRead(addr uint32) bool {
	return s.Tag == ReadStream && s.NextAddr == addr
}
