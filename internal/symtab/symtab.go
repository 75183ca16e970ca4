// Package symtab implements the scoped symbol table described in spec §4.2.
//
// It is grounded on original_source/SymbolTable.cpp: a single flat slice
// of symbols searched linearly, rather than a tree of nested scope
// objects, because that is exactly how the original does it (and how
// the teacher's own ysem/ypeep packages model flat tables). The linear
// scan is adapted to the spec's scope model: a symbol belongs to a
// (scope name, scope level) pair, lookup prefers the innermost (highest
// level) shadowing entry, and falls back to the global scope.
package symtab

import (
	"fmt"

	"github.com/gmofishsauce/sinc/internal/types"
)

const GlobalScope = "global"

// Scope identifies a lexical scope: a name (a function name, or
// GlobalScope) and a nesting depth within it.
type Scope struct {
	Name  string
	Level int
}

// Param describes one formal parameter of a function symbol.
type Param struct {
	Name string
	Type types.Type
	// Default is the parameter's default-value expression, or nil if the
	// parameter has none. Typed as any to avoid an import cycle with
	// internal/ast; callers that need to evaluate it know the concrete
	// type.
	Default any
}

// Symbol binds a name to a type, a scope, a stack offset, and the
// lifecycle flags from spec §3: Defined, Allocated, Freed.
type Symbol struct {
	Name        string
	Type        types.Type
	Scope       Scope
	StackOffset int
	Defined     bool
	Allocated   bool
	Freed       bool

	// StringFormal marks a string-typed formal parameter: its stack home
	// is the two-word (length, address) pair the call convention pushes,
	// with StackOffset naming the length word and StackOffset+1 the
	// address word, rather than the single value/address slot every
	// other symbol kind occupies.
	StringFormal bool

	// Params is non-nil only for function symbols.
	Params []Param
}

func (s *Symbol) IsFunction() bool { return s.Params != nil }

// DuplicateSymbolError is returned by Insert when a symbol of the same
// name already exists at the same scope name and level.
type DuplicateSymbolError struct {
	Name  string
	Scope Scope
}

func (e *DuplicateSymbolError) Error() string {
	return fmt.Sprintf("'%s' already in symbol table at scope %s level %d", e.Name, e.Scope.Name, e.Scope.Level)
}

// NotFoundError is returned by Lookup when no candidate symbol exists.
type NotFoundError struct {
	Name  string
	Scope string
}

func (e *NotFoundError) Error() string {
	if e.Scope == "" {
		return fmt.Sprintf("could not find '%s' in symbol table", e.Name)
	}
	return fmt.Sprintf("could not find '%s' in symbol table (scope was '%s')", e.Name, e.Scope)
}

// Table is the symbol table: a flat, ordered list of symbols, searched
// linearly. Order matters for Lookup's "most recently declared" rule.
type Table struct {
	symbols []*Symbol
	Structs types.StructRegistry
}

func New() *Table {
	return &Table{Structs: types.StructRegistry{}}
}

// Insert adds sym to the table. It fails with *DuplicateSymbolError if a
// symbol of the same name already exists at the same scope name and
// level; shadowing across scope names, or at a deeper level, is allowed.
func (t *Table) Insert(sym *Symbol) error {
	if t.isInSymbolTableAtLevel(sym.Name, sym.Scope) {
		return &DuplicateSymbolError{Name: sym.Name, Scope: sym.Scope}
	}
	t.symbols = append(t.symbols, sym)
	return nil
}

func (t *Table) isInSymbolTableAtLevel(name string, scope Scope) bool {
	for _, s := range t.symbols {
		if s.Name == name && s.Scope == scope {
			return true
		}
	}
	return false
}

// IsInSymbolTable reports whether Lookup(name, scope, level) would
// succeed for some level reachable from the given scope (i.e. the same
// scope name, or the global scope).
func (t *Table) IsInSymbolTable(name string, scope string) bool {
	for _, s := range t.symbols {
		if s.Name == name && (s.Scope.Name == scope || s.Scope.Name == GlobalScope) {
			return true
		}
	}
	return false
}

// Lookup returns the most recently declared symbol named name whose
// scope is either scopeName or the global scope, visible at nesting
// depth <= level. When multiple candidates exist, the one with the
// highest scope level wins (innermost shadow wins). Fails with
// *NotFoundError if no candidate exists.
//
// Passing level < 0 disables the depth filter (matches any level).
func (t *Table) Lookup(name string, scopeName string, level int) (*Symbol, error) {
	var best *Symbol
	for _, s := range t.symbols {
		if s.Name != name {
			continue
		}
		if s.Scope.Name != scopeName && s.Scope.Name != GlobalScope {
			continue
		}
		if level >= 0 && s.Scope.Level > level {
			continue
		}
		if best == nil || s.Scope.Level >= best.Scope.Level {
			best = s
		}
	}
	if best == nil {
		return nil, &NotFoundError{Name: name, Scope: scopeName}
	}
	return best, nil
}

// Remove deletes every entry matching name, scope, and level exactly.
// The code generator's scope-exit pass does not call it; it uses
// RemoveScope.
func (t *Table) Remove(name string, scopeName string, level int) {
	out := t.symbols[:0]
	for _, s := range t.symbols {
		if s.Name == name && s.Scope.Name == scopeName && s.Scope.Level == level {
			continue
		}
		out = append(out, s)
	}
	t.symbols = out
}

// RemoveScope deletes every symbol declared at exactly scopeName/level.
// This is the bulk form of Remove used at the end of an if/else branch or
// loop body to enforce the scope-exit invariant from spec §4.2: "a scope
// entered during code generation has a matching scope exit that removes
// exactly the symbols introduced within it."
func (t *Table) RemoveScope(scopeName string, level int) {
	out := t.symbols[:0]
	for _, s := range t.symbols {
		if s.Scope.Name == scopeName && s.Scope.Level == level {
			continue
		}
		out = append(out, s)
	}
	t.symbols = out
}

// DefineStruct registers a struct's layout, computing field offsets via
// alignment padding the same way lang/yparse/symtab.go's
// SymbolTable.DefineStruct does.
func (t *Table) DefineStruct(name string, fields []types.FieldDef) *types.StructDef {
	def := &types.StructDef{Name: name, Align: 2}
	offset := 0
	for i := range fields {
		f := &fields[i]
		align := f.Type.Alignment(t.Structs)
		if align > def.Align {
			def.Align = align
		}
		offset = alignUp(offset, align)
		f.Offset = offset
		size := f.Type.Size(t.Structs)
		if f.ArrayLen > 0 {
			size *= f.ArrayLen
		}
		offset += size
	}
	def.Fields = fields
	def.Size = alignUp(offset, def.Align)
	t.Structs[name] = def
	return def
}

func alignUp(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) &^ (align - 1)
}

// Snapshot returns a copy of the current symbol list, for tests and
// debugging; it does not alias the table's internal storage.
func (t *Table) Snapshot() []*Symbol {
	out := make([]*Symbol, len(t.symbols))
	copy(out, t.symbols)
	return out
}
