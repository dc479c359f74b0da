package zmachine

import "fmt"

// ErrorCode is the numeric reason a session halted. The values of the first
// five are what the host prints as "Fatal:<code>".
type ErrorCode int

const (
	IllegalOperation ErrorCode = iota + 1
	BadFrameForUnwind
	WrongGameOrVersion
	UnsupportedVersion
	NoSuchProperty
	DivisionByZero
	StackOverflow
	StackUnderflow
	StorageFailure
)

var strError = []string{
	"",
	"illegal operation",
	"bad frame for unwind",
	"wrong game or version",
	"unsupported zcode version",
	"no such property",
	"division by zero",
	"stack overflow",
	"stack underflow",
	"storage failure",
}

func (c ErrorCode) String() string {
	if c <= 0 || int(c) >= len(strError) {
		return fmt.Sprintf("error %d", int(c))
	}
	return strError[c]
}

// Error is an unrecoverable VM error. Once Step has returned one, the
// machine stays halted.
type Error struct {
	Code ErrorCode
	PC   uint32 // address of the instruction that failed
	Op   Opcode // OpIllegal when not raised by an instruction
	Err  error  // device error when Code is StorageFailure
}

func (e *Error) Error() string {
	msg := "zmachine: " + e.Code.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Op != OpIllegal {
		msg += " in " + e.Op.String()
	}
	return msg + fmt.Sprintf(" at 0x%X", e.PC)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// fatal never returns. Step recovers the panic and turns it into the error
// it returns.
func (zm *ZMachine) fatal(code ErrorCode) {
	panic(&Error{Code: code, PC: zm.opPC, Op: zm.op})
}

func (zm *ZMachine) fatalErr(code ErrorCode, err error) {
	panic(&Error{Code: code, PC: zm.opPC, Op: zm.op, Err: err})
}
