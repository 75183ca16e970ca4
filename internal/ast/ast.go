// Package ast defines the statement and expression tree that
// internal/codegen consumes. Per spec §9's design notes, the C++
// original's inheritance hierarchy (Statement/Allocation/Assignment/...;
// Expression/Literal/LValue/Binary/...) and its pervasive dynamic_cast
// downcasting are replaced with tagged sum types: Stmt and Expr are
// interfaces implemented by small concrete structs, each exposing a
// Kind() discriminator so internal/codegen can switch over it
// exhaustively instead of downcasting.
//
// Building the AST is normally the parser's job, but the parser is out of
// scope for this repository (spec §1); callers build ast.Block values
// directly (tests do this; a future parser would too).
package ast

import "github.com/gmofishsauce/sinc/internal/types"

// StmtKind discriminates the concrete Stmt implementations.
type StmtKind int

const (
	KInclude StmtKind = iota
	KDeclaration
	KAllocation
	KAssignment
	KReturn
	KIfThenElse
	KWhileLoop
	KDefinition
	KCall
	KInlineAssembly
	KFree
)

// ExprKind discriminates the concrete Expr implementations.
type ExprKind int

const (
	KLiteral ExprKind = iota
	KLValue
	KIndexed
	KAddressOf
	KDereferenced
	KUnary
	KBinary
	KList
	KSizeOf
	KValueReturningCall
)

// Stmt is implemented by every statement node. Line is the source line
// the statement was parsed from, used in diagnostics.
type Stmt interface {
	Kind() StmtKind
	SourceLine() int
}

// Expr is implemented by every expression node.
type Expr interface {
	Kind() ExprKind
	SourceLine() int
}

// Block is an ordered sequence of statements -- a lexical block.
type Block struct {
	Stmts []Stmt
}

// --- Statements ---

type Include struct {
	Line int
	Path string
	// Precompiled is true when Path names an already-assembled object
	// file to be noted as a link dependency, rather than source to
	// compile inline.
	Precompiled bool
}

func (s *Include) Kind() StmtKind  { return KInclude }
func (s *Include) SourceLine() int { return s.Line }

type Declaration struct {
	Line int
	Name string
	Type types.Type
}

func (s *Declaration) Kind() StmtKind  { return KDeclaration }
func (s *Declaration) SourceLine() int { return s.Line }

// Allocation declares a variable (optionally with an initializer). The
// storage class (global constant, global variable, local, dynamic) is
// decided by internal/codegen from Type's qualities and the enclosing
// scope depth, per spec §4.3.1 -- it is not specified on the node itself.
type Allocation struct {
	Line    int
	Name    string
	Type    types.Type
	Initial Expr // nil if uninitialized
}

func (s *Allocation) Kind() StmtKind  { return KAllocation }
func (s *Allocation) SourceLine() int { return s.Line }

// LValueKind discriminates the target-side forms an assignment
// statement can have.
type LValueKind int

const (
	LVSimple LValueKind = iota
	LVIndexed
	LVDereferenced
)

// LValueRef names an assignment's target.
type LValueRef struct {
	Line  int
	Kind  LValueKind
	Name  string // for LVSimple and LVIndexed
	Index Expr   // for LVIndexed
	Inner Expr   // for LVDereferenced: the dereferenced expression
}

type Assignment struct {
	Line   int
	Target LValueRef
	Value  Expr
}

func (s *Assignment) Kind() StmtKind  { return KAssignment }
func (s *Assignment) SourceLine() int { return s.Line }

type Return struct {
	Line  int
	Value Expr // nil for void returns
}

func (s *Return) Kind() StmtKind  { return KReturn }
func (s *Return) SourceLine() int { return s.Line }

type IfThenElse struct {
	Line      int
	Condition Expr
	IfBranch  Block
	ElseBranch *Block // nil if there is no else
}

func (s *IfThenElse) Kind() StmtKind  { return KIfThenElse }
func (s *IfThenElse) SourceLine() int { return s.Line }

type WhileLoop struct {
	Line      int
	Condition Expr
	Body      Block
}

func (s *WhileLoop) Kind() StmtKind  { return KWhileLoop }
func (s *WhileLoop) SourceLine() int { return s.Line }

// FormalParam is a function's formal parameter: a name, type, and an
// optional default value. Defaults must be trailing (spec §4.3.3).
type FormalParam struct {
	Name    string
	Type    types.Type
	Default Expr // nil if the parameter has no default
}

type Definition struct {
	Line       int
	Name       string
	ReturnType types.Type
	Formals    []FormalParam
	Body       Block
}

func (s *Definition) Kind() StmtKind  { return KDefinition }
func (s *Definition) SourceLine() int { return s.Line }

// Call is a statement-position function call (its return value, if any,
// is discarded).
type Call struct {
	Line int
	Name string
	Args []Expr
}

func (s *Call) Kind() StmtKind  { return KCall }
func (s *Call) SourceLine() int { return s.Line }

type InlineAssembly struct {
	Line   int
	Dialect string // must match the code generator's target dialect
	Text   string
}

func (s *InlineAssembly) Kind() StmtKind  { return KInlineAssembly }
func (s *InlineAssembly) SourceLine() int { return s.Line }

type Free struct {
	Line int
	Name string
}

func (s *Free) Kind() StmtKind  { return KFree }
func (s *Free) SourceLine() int { return s.Line }

// --- Expressions ---

// LiteralKind discriminates the kind of constant a Literal holds.
type LiteralKind int

const (
	LitInt LiteralKind = iota
	LitFloat
	LitBool
	LitString
)

type Literal struct {
	Line     int
	Kind_    LiteralKind
	IntVal   int64
	FloatVal float64
	BoolVal  bool
	StrVal   string
	Type     types.Type
}

func (e *Literal) Kind() ExprKind   { return KLiteral }
func (e *Literal) SourceLine() int  { return e.Line }
func (e *Literal) LitKind() LiteralKind { return e.Kind_ }

type LValue struct {
	Line int
	Name string
}

func (e *LValue) Kind() ExprKind  { return KLValue }
func (e *LValue) SourceLine() int { return e.Line }

type Indexed struct {
	Line  int
	Name  string
	Index Expr
}

func (e *Indexed) Kind() ExprKind  { return KIndexed }
func (e *Indexed) SourceLine() int { return e.Line }

type AddressOf struct {
	Line int
	Name string
}

func (e *AddressOf) Kind() ExprKind  { return KAddressOf }
func (e *AddressOf) SourceLine() int { return e.Line }

type Dereferenced struct {
	Line  int
	Inner Expr
}

func (e *Dereferenced) Kind() ExprKind  { return KDereferenced }
func (e *Dereferenced) SourceLine() int { return e.Line }

// UnaryOp enumerates unary operators.
type UnaryOp int

const (
	UnaryNeg UnaryOp = iota
	UnaryNot
)

type Unary struct {
	Line    int
	Op      UnaryOp
	Operand Expr
}

func (e *Unary) Kind() ExprKind  { return KUnary }
func (e *Unary) SourceLine() int { return e.Line }

// BinaryOp enumerates binary operators.
type BinaryOp int

const (
	BinAdd BinaryOp = iota
	BinSub
	BinMul
	BinDiv
	BinMod
	BinEqual
	BinNotEqual
	BinGreater
	BinLess
	BinGreaterOrEqual
	BinLessOrEqual
	BinAnd
	BinOr
	BinBitAnd
	BinBitOr
)

type Binary struct {
	Line  int
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (e *Binary) Kind() ExprKind  { return KBinary }
func (e *Binary) SourceLine() int { return e.Line }

// List is an ordered expression list, used only as an array initializer.
type List struct {
	Line  int
	Elems []Expr
}

func (e *List) Kind() ExprKind  { return KList }
func (e *List) SourceLine() int { return e.Line }

type SizeOf struct {
	Line     int
	TypeName types.Type
}

func (e *SizeOf) Kind() ExprKind  { return KSizeOf }
func (e *SizeOf) SourceLine() int { return e.Line }

type ValueReturningCall struct {
	Line int
	Name string
	Args []Expr
}

func (e *ValueReturningCall) Kind() ExprKind  { return KValueReturningCall }
func (e *ValueReturningCall) SourceLine() int { return e.Line }
