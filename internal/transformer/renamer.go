package transformer

import (
	"go.uber.org/zap"

	"github.com/whit3rabbit/cmixer/internal/cmini"
	"github.com/whit3rabbit/cmixer/internal/scrambler"
	"github.com/whit3rabbit/cmixer/internal/token"
)

/*
Identifier Renaming Overview:
-----------------------------
Declared names (functions, parameters, variables) are replaced by generated
lowercase names from the run's rename table. Names are collected first, then
every identifier occurrence inside each function is substituted, so uses that
precede a declaration in the text are renamed too.

Identifiers that are never declared in the program (library calls such as
printf) are left alone, as is the entry point.
*/

// Renamer renames declared identifiers through a scrambler.Table.
type Renamer struct {
	Table      *scrambler.Table
	EntryPoint string
	Logger     *zap.Logger
}

// NewRenamer creates a renamer over table.
func NewRenamer(table *scrambler.Table, entryPoint string, logger *zap.Logger) *Renamer {
	return &Renamer{Table: table, EntryPoint: entryPoint, Logger: nopLogger(logger)}
}

// Name implements Pass.
func (r *Renamer) Name() string { return "rename" }

// Apply implements Pass.
func (r *Renamer) Apply(s *token.Stream, tree *cmini.Node) error {
	r.Table.Reserve(cmini.Identifiers(s.String())...)
	r.Table.Ignore(r.EntryPoint)

	fns := functions(tree)
	funcs := make(map[string]bool, len(fns))
	for _, fn := range fns {
		funcs[funcName(s, fn)] = true
	}

	// Allocate in declaration order so a seed reproduces the same names.
	locals := make([]map[string]bool, len(fns))
	for i, fn := range fns {
		name := funcName(s, fn)
		r.Table.Function(name)
		locals[i] = declaredLocals(s, fn)
		for _, p := range paramNames(s, fn) {
			r.Table.Local(name, p)
		}
		cmini.Walk(cmini.FuncBody(fn), func(n *cmini.Node) bool {
			if n.Kind == cmini.KindVarDecl {
				r.Table.Local(name, text(s, cmini.DeclName(n)))
			}
			return true
		})
	}

	for i, fn := range fns {
		name := funcName(s, fn)
		own := locals[i]
		changed := substitute(s, fn.Start, fn.Stop, func(id string) (string, bool) {
			if own[id] {
				return r.Table.Local(name, id), true
			}
			if funcs[id] {
				return r.Table.Function(id), true
			}
			return "", false
		})
		r.Logger.Debug("renamed function",
			zap.String("function", name),
			zap.String("renamed", r.Table.Function(name)),
			zap.Int("locals", len(own)),
			zap.Int("tokens", changed))
	}
	return nil
}

// declaredLocals returns the parameter and variable names declared in fn.
func declaredLocals(s *token.Stream, fn *cmini.Node) map[string]bool {
	out := make(map[string]bool)
	for _, p := range paramNames(s, fn) {
		out[p] = true
	}
	cmini.Walk(cmini.FuncBody(fn), func(n *cmini.Node) bool {
		if n.Kind == cmini.KindVarDecl {
			out[text(s, cmini.DeclName(n))] = true
		}
		return true
	})
	return out
}
