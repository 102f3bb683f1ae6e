// Package linker merges per-document compiler.Objects into a single linked
// program: it builds cross-document procedure and file tables, threads
// same-tag chains across document boundaries, and patches every CALL
// instruction to point at its resolved target (spec.md §4.3).
package linker

import (
	"fmt"
	"sort"

	"github.com/dolthub/swiss"
	"github.com/mna/tangle/lang/compiler"
)

// Addr locates an instruction within a linked Program: a module index into
// Program.Modules and an instruction offset into that module's Program.
type Addr struct {
	Module uint16
	Offset uint32
}

// Program is the result of linking one or more compiler.Objects: a single
// address space (module 0 is the first linked document, module 1 the
// second, and so on) plus the merged procedure and file tables a
// lang/vm.Interpreter needs to resolve a call or entry point.
type Program struct {
	Modules []*compiler.Object

	// Procedures maps a tag name to the entry address of its (possibly
	// cross-document) chain.
	Procedures *swiss.Map[string, Addr]
	// EntryNames is the reverse of Procedures, letting lang/vm report a
	// human-readable tag name to a Sink hook when all it has is the target
	// address a CALL instruction carries.
	EntryNames *swiss.Map[Addr, string]
	procScope  *swiss.Map[string, compiler.Scope]
	// procExit tracks the current chain tail, used only while linking.
	procExit *swiss.Map[string, Addr]

	// Files maps a declared output filename to its defining block's entry
	// address.
	Files *swiss.Map[string, Addr]
}

// Error is a link-time diagnostic (spec.md §7).
type Error struct {
	Msg string
}

func (e *Error) Error() string { return e.Msg }

// Linker accumulates documents and produces a linked Program.
type Linker struct {
	objects []*compiler.Object
	names   []string // document names, for diagnostics, index-aligned with objects
	gen     uint16   // monotone generation counter for inter-module threading
}

// New returns an empty Linker.
func New() *Linker {
	return &Linker{}
}

// Add registers a compiled document under the given name (its path,
// typically) to be merged on the next Link call. Documents are linked in
// the order they are added; this order determines which same-tag chain
// comes "after" another across document boundaries (spec.md §4.3).
func (l *Linker) Add(name string, obj *compiler.Object) {
	l.objects = append(l.objects, obj)
	l.names = append(l.names, name)
}

// Link merges every added document into a Program, in three passes: build
// the procedure table (threading same-tag chains across documents as it
// goes), build the file table, then resolve every CALL's target (failing on
// the first undefined tag). A Linker with no documents is an error
// (spec.md §4.3).
func (l *Linker) Link() (*Program, error) {
	p := &Program{
		Modules:    l.objects,
		Procedures: swiss.NewMap[string, Addr](32),
		EntryNames: swiss.NewMap[Addr, string](32),
		procScope:  swiss.NewMap[string, compiler.Scope](32),
		procExit:   swiss.NewMap[string, Addr](32),
		Files:      swiss.NewMap[string, Addr](8),
	}

	if err := l.buildProcedures(p); err != nil {
		return nil, err
	}
	if err := l.buildFiles(p); err != nil {
		return nil, err
	}
	if err := l.resolveCalls(p); err != nil {
		return nil, err
	}
	if len(p.Modules) == 0 {
		return nil, &Error{Msg: "no documents linked"}
	}
	return p, nil
}

// buildProcedures threads every document's tag in source-document order:
// the first document to define a tag owns its Procedures entry; each
// subsequent document defining the same tag has its chain spliced onto the
// end of the previous one by rewriting the previous chain's terminal RET
// into a JMP that crosses into the new document's module (spec.md §4.3).
func (l *Linker) buildProcedures(p *Program) error {
	for mi, obj := range l.objects {
		module := uint16(mi)
		for _, tag := range sortedAdjacentKeys(obj.Adjacent) {
			adj, _ := obj.Adjacent.Get(tag)
			scope, _ := obj.Scopes.Get(tag)
			entry := Addr{Module: module, Offset: adj.Entry}
			exit := Addr{Module: module, Offset: adj.Exit}

			prevExit, ok := p.procExit.Get(tag)
			if !ok {
				p.Procedures.Put(tag, entry)
				p.EntryNames.Put(entry, tag)
				p.procScope.Put(tag, scope)
				p.procExit.Put(tag, exit)
				continue
			}

			prevScope, _ := p.procScope.Get(tag)
			if prevScope != scope {
				return &Error{Msg: fmt.Sprintf("tag %q: scope mismatch across documents (%s vs %s)", tag, prevScope, scope)}
			}

			l.gen++
			l.objects[prevExit.Module].Program[prevExit.Offset] = compiler.MakeJmp(entry.Offset, entry.Module, l.gen)
			p.procExit.Put(tag, exit)
		}
	}
	return nil
}

// buildFiles merges every document's Files table; a filename declared by
// more than one document is a fatal duplicate (spec.md §4.3).
func (l *Linker) buildFiles(p *Program) error {
	for mi, obj := range l.objects {
		module := uint16(mi)
		for _, name := range sortedFileKeys(obj.Files) {
			entry, _ := obj.Files.Get(name)
			if _, ok := p.Files.Get(name); ok {
				return &Error{Msg: fmt.Sprintf("file %q declared in more than one document", name)}
			}
			p.Files.Put(name, Addr{Module: module, Offset: entry})
		}
	}
	return nil
}

// resolveCalls patches every CALL instruction's address/module fields to
// point at its referenced tag's Procedures entry (spec.md §4.3). An
// undefined tag is a fatal link error.
func (l *Linker) resolveCalls(p *Program) error {
	for mi, obj := range l.objects {
		for _, name := range sortedSymbolKeys(obj.Symbols) {
			offs, _ := obj.Symbols.Get(name)
			target, ok := p.Procedures.Get(name)
			if !ok {
				return &Error{Msg: fmt.Sprintf("document %q: undefined tag %q", l.names[mi], name)}
			}
			for _, off := range offs {
				obj.Program[off].SetCallTarget(target.Offset, target.Module)
			}
		}
	}
	return nil
}

func sortedAdjacentKeys(m *swiss.Map[string, compiler.Adjacency]) []string {
	var keys []string
	m.Iter(func(k string, _ compiler.Adjacency) (stop bool) {
		keys = append(keys, k)
		return false
	})
	sort.Strings(keys)
	return keys
}

func sortedFileKeys(m *swiss.Map[string, uint32]) []string {
	var keys []string
	m.Iter(func(k string, _ uint32) (stop bool) {
		keys = append(keys, k)
		return false
	})
	sort.Strings(keys)
	return keys
}

func sortedSymbolKeys(m *swiss.Map[string, []uint32]) []string {
	var keys []string
	m.Iter(func(k string, _ []uint32) (stop bool) {
		keys = append(keys, k)
		return false
	})
	sort.Strings(keys)
	return keys
}
