package koopa

// RawProgram is the typed DAG the backend consumes: exactly what a
// Koopa raw-program builder would hand back after parsing the text
// pkg/lower produced, per spec.md §1/§5's "raw-IR builder" contract.
type RawProgram struct {
	Globals []*RawGlobal
	Funcs   []*RawFunc

	// globalTypes indexes Globals by name for operand type resolution
	// during emission (e.g. GetElemPtr stride computation).
	globalTypes map[string]*Type
}

func (p *RawProgram) TypeOfGlobal(name string) *Type { return p.globalTypes[name] }

type RawGlobal struct {
	Name string
	Ty   *Type // the allocated (pointee) type; the value itself has type Ptr(Ty)
	Init Init
}

// Init is one of: int32 (scalar), the string "zeroinit", or []Init
// (an aggregate), mirroring the nested brace literal / zeroinit forms
// from spec.md §4.4/§4.6.
type Init interface{}

type RawFunc struct {
	Name       string
	ParamNames []string // %name per declared parameter, in ABI order
	ParamTypes []*Type
	RetType    *Type
	Blocks     []*RawBlock

	// ValueTypes maps every name this function defines (parameters and
	// instruction results) to its Koopa type, resolved while parsing.
	ValueTypes map[string]*Type
}

// ParamIndex returns the ABI position of a parameter name, or -1.
func (f *RawFunc) ParamIndex(name string) int {
	for i, p := range f.ParamNames {
		if p == name {
			return i
		}
	}
	return -1
}

type RawBlock struct {
	Label string
	Insts []*Inst
}

type Op int

const (
	OpAlloc Op = iota
	OpLoad
	OpStore
	OpGetElemPtr
	OpGetPtr
	OpBinary
	OpBranch
	OpJump
	OpCall
	OpRet
)

// Inst is one Koopa IR instruction. Dst is "" when the instruction
// produces no value (Store, Branch, Jump, a void Call, Ret). Args hold
// raw operand tokens exactly as written ("%3", "@x", "5") so the
// emitter can classify each one (local / global / literal) the way
// spec.md §4.7's Load/Store rules require.
type Inst struct {
	Dst    string
	Op     Op
	BinOp  string // "add","sub","mul","div","mod","lt","gt","le","ge","eq","ne" when Op==OpBinary
	Ty     *Type  // result type (pointee type for Alloc)
	Args   []string
	Callee string // Op==OpCall
	Labels []string // Op==OpBranch: [trueLabel, falseLabel]; Op==OpJump: [target]
}
