package transformer

import (
	"fmt"
	"math/rand"
	"strings"

	"go.uber.org/zap"

	"github.com/whit3rabbit/cmixer/internal/cmini"
	"github.com/whit3rabbit/cmixer/internal/token"
)

/*
Control Flow Flattening Overview:
---------------------------------
A function body made of statements s0..sN-1 and an optional trailing return
becomes a dispatch loop:

	int state = L0;
	while (state != 0) {
		switch (state) {
		case L2: s2; state = 0; break;
		case L0: s0; state = L1; break;
		case L1: s1; state = L2; break;
		}
	}
	return ...;

Labels are distinct random values; execution order is carried only by the
state = Li+1 chain and the sentinel 0 ends the loop. Cases are presented in
shuffled order. Declarations among the statements are hoisted in front of
the loop and their case performs the initialization, so no declaration
follows a case label and values persist across iterations.
*/

// flatCase is one statement of a function body being flattened.
type flatCase struct {
	label int
	body  string
	next  int
}

// ControlFlowFlattener rewrites function bodies into dispatch loops.
type ControlFlowFlattener struct {
	LabelMin      int
	LabelMax      int
	MinStatements int
	// NewName returns a name unused anywhere in the program. It names the
	// selector when "state" is already taken.
	NewName func() string
	random  *rand.Rand
	Logger  *zap.Logger
}

// NewControlFlowFlattener creates a flattener drawing labels from
// [labelMin, labelMax].
func NewControlFlowFlattener(labelMin, labelMax, minStatements int, newName func() string, rng *rand.Rand, logger *zap.Logger) *ControlFlowFlattener {
	if minStatements < 1 {
		minStatements = 1
	}
	return &ControlFlowFlattener{
		LabelMin:      labelMin,
		LabelMax:      labelMax,
		MinStatements: minStatements,
		NewName:       newName,
		random:        rng,
		Logger:        nopLogger(logger),
	}
}

// Name implements Pass.
func (v *ControlFlowFlattener) Name() string { return "flatten" }

// Apply implements Pass.
func (v *ControlFlowFlattener) Apply(s *token.Stream, tree *cmini.Node) error {
	selector := "state"
	if identifierSet(s)[selector] {
		selector = v.NewName()
	}
	for _, fn := range functions(tree) {
		v.flattenFunction(s, fn, selector)
	}
	return nil
}

func (v *ControlFlowFlattener) flattenFunction(s *token.Stream, fn *cmini.Node, selector string) {
	name := funcName(s, fn)
	items := cmini.BlockItems(cmini.FuncBody(fn))
	if n := len(items); n > 0 && items[n-1].Lead() == token.KwReturn {
		items = items[:n-1]
	}
	if len(items) < v.MinStatements || len(items) == 0 {
		v.Logger.Debug("function too short to flatten", zap.String("function", name), zap.Int("statements", len(items)))
		return
	}
	labels, ok := v.labels(len(items))
	if !ok {
		v.Logger.Debug("label range too small", zap.String("function", name), zap.Int("statements", len(items)))
		return
	}

	var hoisted []string
	cases := make([]flatCase, len(items))
	for i, item := range items {
		body := cmini.Text(s, item)
		if item.Kind == cmini.KindVarDecl {
			decl, init := splitDecl(s, item)
			hoisted = append(hoisted, decl)
			body = init
		}
		next := 0
		if i+1 < len(items) {
			next = labels[i+1]
		}
		cases[i] = flatCase{label: labels[i], body: body, next: next}
	}
	v.random.Shuffle(len(cases), func(i, j int) { cases[i], cases[j] = cases[j], cases[i] })

	var sb strings.Builder
	for _, d := range hoisted {
		sb.WriteString(d)
		sb.WriteString(" ")
	}
	fmt.Fprintf(&sb, "int %s = %d; while (%s != 0) { switch (%s) {", selector, labels[0], selector, selector)
	for _, c := range cases {
		fmt.Fprintf(&sb, " case %d: ", c.label)
		if c.body != "" {
			sb.WriteString(c.body)
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%s = %d; break;", selector, c.next)
	}
	sb.WriteString(" } }")

	s.ReplaceRange(items[0].Start, items[len(items)-1].Stop, sb.String())
	v.Logger.Debug("flattened function",
		zap.String("function", name),
		zap.Int("labels", len(labels)),
		zap.Int("hoisted", len(hoisted)),
		zap.String("selector", selector))
}

// labels draws n distinct labels from the configured range.
func (v *ControlFlowFlattener) labels(n int) ([]int, bool) {
	span := v.LabelMax - v.LabelMin + 1
	if v.LabelMin < 1 || span < n {
		return nil, false
	}
	out := make([]int, 0, n)
	if span <= 2*n {
		for _, p := range v.random.Perm(span)[:n] {
			out = append(out, v.LabelMin+p)
		}
		return out, true
	}
	// Sparse range: at least half of every draw is fresh.
	seen := make(map[int]bool, n)
	for len(out) < n {
		label := v.LabelMin + v.random.Intn(span)
		if seen[label] {
			continue
		}
		seen[label] = true
		out = append(out, label)
	}
	return out, true
}

// splitDecl turns `T x = e;` into the hoisted `T x;` and the case body
// `x = e;`. A declaration without initializer leaves an empty body.
func splitDecl(s *token.Stream, decl *cmini.Node) (string, string) {
	typ := text(s, decl.Child(0))
	name := text(s, cmini.DeclName(decl))
	hoisted := typ + " " + name + ";"
	init := cmini.DeclInit(decl)
	if init == nil {
		return hoisted, ""
	}
	return hoisted, name + " = " + text(s, init) + ";"
}
