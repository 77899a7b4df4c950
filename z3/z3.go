package z3

import (
	"fmt"
	"math/big"
	"strings"
	"time"
	"unsafe"

	"github.com/benbjohnson/lift"
	"github.com/pkg/errors"
)

/*
#cgo LDFLAGS: -lz3
#include <z3.h>
#include <stdlib.h>
#include <stdio.h>
*/
import "C"

// Ensure solver implements interface.
var _ lift.Solver = (*Solver)(nil)

// Solver represents an incremental solver that uses an embedded Z3 solver.
type Solver struct {
	ctx    *Context
	raw    C.Z3_solver
	scopes int
	stats  Stats
}

// NewSolver returns a new instance of Solver.
func NewSolver() (*Solver, error) {
	ctx := NewContext()
	raw := C.Z3_mk_solver(ctx.raw)
	if err := ctx.err("Z3_mk_solver"); err != nil {
		ctx.Close()
		return nil, err
	}
	C.Z3_solver_inc_ref(ctx.raw, raw)
	return &Solver{ctx: ctx, raw: raw}, nil
}

// Close deletes the underlying Z3 solver & context.
func (s *Solver) Close() error {
	C.Z3_solver_dec_ref(s.ctx.raw, s.raw)
	return s.ctx.Close()
}

// Stats returns statistics for the solver.
func (s *Solver) Stats() Stats {
	return s.stats
}

// SetTimeout limits the duration of each satisfiability check.
// A check that runs out of time returns lift.ErrSolverTimeout.
func (s *Solver) SetTimeout(d time.Duration) error {
	params := C.Z3_mk_params(s.ctx.raw)
	if err := s.ctx.err("Z3_mk_params"); err != nil {
		return err
	}
	C.Z3_params_inc_ref(s.ctx.raw, params)
	defer C.Z3_params_dec_ref(s.ctx.raw, params)

	key := s.ctx.symbol("timeout")
	C.Z3_params_set_uint(s.ctx.raw, params, key, C.uint(d.Milliseconds()))
	if err := s.ctx.err("Z3_params_set_uint"); err != nil {
		return err
	}
	C.Z3_solver_set_params(s.ctx.raw, s.raw, params)
	return s.ctx.err("Z3_solver_set_params")
}

// Push opens a new assertion scope.
func (s *Solver) Push() error {
	C.Z3_solver_push(s.ctx.raw, s.raw)
	if err := s.ctx.err("Z3_solver_push"); err != nil {
		return err
	}
	s.scopes++
	return nil
}

// Pop discards the assertions of the innermost scope.
func (s *Solver) Pop() error {
	if s.scopes == 0 {
		return errors.New("z3: pop without matching push")
	}
	C.Z3_solver_pop(s.ctx.raw, s.raw, 1)
	if err := s.ctx.err("Z3_solver_pop"); err != nil {
		return err
	}
	s.scopes--
	return nil
}

// Assert adds a boolean formula to the current scope.
func (s *Solver) Assert(f *lift.Formula) error {
	if !f.IsBool() {
		return errors.Errorf("z3: assertion of non-boolean formula: %s", f)
	}
	ast, err := s.ctx.toAST(f)
	if err != nil {
		return err
	}
	C.Z3_solver_assert(s.ctx.raw, s.raw, ast)
	return s.ctx.err("Z3_solver_assert")
}

// Check returns true if the current assertions and assumptions are satisfiable.
func (s *Solver) Check(assumptions ...*lift.Formula) (satisfiable bool, err error) {
	t := time.Now()
	defer func() {
		s.stats.SolveN++
		s.stats.SolveTime += time.Since(t)
	}()

	if len(assumptions) == 0 {
		return s.check()
	}

	if err := s.Push(); err != nil {
		return false, err
	}
	defer func() {
		if e := s.Pop(); e != nil && err == nil {
			err = e
		}
	}()

	for _, f := range assumptions {
		if err := s.Assert(f); err != nil {
			return false, err
		}
	}
	return s.check()
}

func (s *Solver) check() (bool, error) {
	// Exit immediately if unsatisfiable or the solver encountered an error.
	ret := C.Z3_solver_check(s.ctx.raw, s.raw)
	if err := s.ctx.err("Z3_solver_check"); err != nil {
		return false, err
	} else if ret == C.Z3_L_FALSE {
		return false, nil
	} else if ret == C.Z3_L_TRUE {
		return true, nil
	}

	reason := C.GoString(C.Z3_solver_get_reason_unknown(s.ctx.raw, s.raw))
	switch {
	case strings.Contains(reason, "timeout"):
		return false, lift.ErrSolverTimeout
	case strings.Contains(reason, "canceled"):
		return false, lift.ErrSolverCanceled
	case strings.Contains(reason, "(resource limits reached)"):
		return false, lift.ErrSolverResourceLimit
	case strings.Contains(reason, "unknown"):
		return false, lift.ErrSolverUnknown
	default:
		return false, fmt.Errorf("z3: %s", reason)
	}
}

// Parse reads SMT-LIB2 text and returns its assertions as formulas built by b.
func (s *Solver) Parse(b *lift.Builder, smt2 string) ([]*lift.Formula, error) {
	return s.ctx.Parse(b, smt2)
}

// ParseFormula reads SMT-LIB2 text whose first assertion has the form
// (= expr 0) and returns expr.
func (s *Solver) ParseFormula(b *lift.Builder, smt2 string) (*lift.Formula, error) {
	return s.ctx.ParseFormula(b, smt2)
}

// Simplify returns f simplified by Z3.
func (s *Solver) Simplify(b *lift.Builder, f *lift.Formula) (*lift.Formula, error) {
	return s.ctx.Simplify(b, f)
}

// Context represents a Z3 context object that is used for constructing expressions.
type Context struct {
	raw   C.Z3_context
	asts  map[*lift.Formula]C.Z3_ast
	decls map[string]C.Z3_func_decl
}

// NewContext returns a new instance of Context.
func NewContext() *Context {
	config := C.Z3_mk_config()
	defer C.Z3_del_config(config)

	raw := C.Z3_mk_context(config)
	C.Z3_set_error_handler(raw, nil)
	C.Z3_set_ast_print_mode(raw, C.Z3_PRINT_SMTLIB2_COMPLIANT)
	return &Context{
		raw:   raw,
		asts:  make(map[*lift.Formula]C.Z3_ast),
		decls: make(map[string]C.Z3_func_decl),
	}
}

// Close deletes the underlying Z3 context.
func (ctx *Context) Close() error {
	C.Z3_del_context(ctx.raw)
	return nil
}

// err returns the error for the last API call. Returns nil if last call was successful.
func (ctx *Context) err(op string) error {
	if code := C.Z3_get_error_code(ctx.raw); code != C.Z3_OK {
		return &Error{Code: int(code), Op: op, Message: C.GoString(C.Z3_get_error_msg(ctx.raw, code))}
	}
	return nil
}

// Parse reads SMT-LIB2 text and returns its assertions as formulas built by b.
func (ctx *Context) Parse(b *lift.Builder, smt2 string) ([]*lift.Formula, error) {
	cstr := C.CString(smt2)
	defer C.free(unsafe.Pointer(cstr))

	vec := C.Z3_parse_smtlib2_string(ctx.raw, cstr, 0, nil, nil, 0, nil, nil)
	if err := ctx.err("Z3_parse_smtlib2_string"); err != nil {
		return nil, err
	}
	C.Z3_ast_vector_inc_ref(ctx.raw, vec)
	defer C.Z3_ast_vector_dec_ref(ctx.raw, vec)

	d := newDecoder(ctx, b)
	n := int(C.Z3_ast_vector_size(ctx.raw, vec))
	a := make([]*lift.Formula, 0, n)
	for i := 0; i < n; i++ {
		f, err := d.decode(C.Z3_ast_vector_get(ctx.raw, vec, C.uint(i)))
		if err != nil {
			return nil, err
		}
		a = append(a, f)
	}
	return a, nil
}

// ParseFormula reads SMT-LIB2 text whose first assertion has the form
// (= expr 0) and returns expr.
func (ctx *Context) ParseFormula(b *lift.Builder, smt2 string) (*lift.Formula, error) {
	a, err := ctx.Parse(b, smt2)
	if err != nil {
		return nil, err
	} else if len(a) == 0 {
		return nil, errors.New("z3: no assertions")
	}

	f := a[0]
	if f.Op() != lift.EQ || !f.Arg(1).IsZero() {
		return nil, errors.Errorf("z3: expected assertion of the form (= expr 0): %s", f)
	}
	return f.Arg(0), nil
}

// Simplify returns f simplified by Z3.
func (ctx *Context) Simplify(b *lift.Builder, f *lift.Formula) (*lift.Formula, error) {
	ast, err := ctx.toAST(f)
	if err != nil {
		return nil, err
	}
	ast = C.Z3_simplify(ctx.raw, ast)
	if err := ctx.err("Z3_simplify"); err != nil {
		return nil, err
	}
	return newDecoder(ctx, b).decode(ast)
}

// toAST returns the Z3 AST for f.
func (ctx *Context) toAST(f *lift.Formula) (C.Z3_ast, error) {
	if ast, ok := ctx.asts[f]; ok {
		return ast, nil
	}

	args := make([]C.Z3_ast, f.NumArgs())
	for i, arg := range f.Args() {
		var err error
		if args[i], err = ctx.toAST(arg); err != nil {
			return nil, err
		}
	}

	ast, err := ctx.toNodeAST(f, args)
	if err != nil {
		return nil, err
	}
	ctx.asts[f] = ast
	return ast, nil
}

func (ctx *Context) toNodeAST(f *lift.Formula, args []C.Z3_ast) (C.Z3_ast, error) {
	switch op := f.Op(); op {
	case lift.TRUE:
		return C.Z3_mk_true(ctx.raw), ctx.err("Z3_mk_true")
	case lift.FALSE:
		return C.Z3_mk_false(ctx.raw), ctx.err("Z3_mk_false")
	case lift.BVCONST:
		return ctx.makeNumeral(f.Width(), f.Value())
	case lift.VAR:
		t, err := ctx.makeSort(f.Sort())
		if err != nil {
			return nil, err
		}
		return C.Z3_mk_const(ctx.raw, ctx.symbol(f.Name()), t), ctx.err("Z3_mk_const")
	case lift.APPLY:
		return ctx.toApplyAST(f, args)

	case lift.NOT:
		return C.Z3_mk_not(ctx.raw, args[0]), ctx.err("Z3_mk_not")
	case lift.AND:
		return C.Z3_mk_and(ctx.raw, C.uint(len(args)), &args[0]), ctx.err("Z3_mk_and")
	case lift.OR:
		return C.Z3_mk_or(ctx.raw, C.uint(len(args)), &args[0]), ctx.err("Z3_mk_or")
	case lift.XOR:
		return ctx.fold(args, func(x, y C.Z3_ast) C.Z3_ast { return C.Z3_mk_xor(ctx.raw, x, y) }, "Z3_mk_xor")
	case lift.ITE:
		return C.Z3_mk_ite(ctx.raw, args[0], args[1], args[2]), ctx.err("Z3_mk_ite")
	case lift.EQ:
		return C.Z3_mk_eq(ctx.raw, args[0], args[1]), ctx.err("Z3_mk_eq")
	case lift.DISTINCT:
		return C.Z3_mk_distinct(ctx.raw, C.uint(len(args)), &args[0]), ctx.err("Z3_mk_distinct")

	case lift.BVNOT:
		return C.Z3_mk_bvnot(ctx.raw, args[0]), ctx.err("Z3_mk_bvnot")
	case lift.BVNEG:
		return C.Z3_mk_bvneg(ctx.raw, args[0]), ctx.err("Z3_mk_bvneg")
	case lift.CONCAT:
		return ctx.fold(args, func(x, y C.Z3_ast) C.Z3_ast { return C.Z3_mk_concat(ctx.raw, x, y) }, "Z3_mk_concat")
	case lift.EXTRACT:
		hi, lo := f.Bounds()
		return C.Z3_mk_extract(ctx.raw, C.uint(hi), C.uint(lo), args[0]), ctx.err("Z3_mk_extract")
	case lift.SIGNEXT:
		return C.Z3_mk_sign_ext(ctx.raw, C.uint(f.Extension()), args[0]), ctx.err("Z3_mk_sign_ext")
	case lift.ZEROEXT:
		return C.Z3_mk_zero_ext(ctx.raw, C.uint(f.Extension()), args[0]), ctx.err("Z3_mk_zero_ext")
	}

	if fn, ok := binaryFuncs[f.Op()]; ok {
		return ctx.fold(args, func(x, y C.Z3_ast) C.Z3_ast { return fn(ctx.raw, x, y) }, "Z3_mk_"+f.Op().String())
	}
	return nil, fmt.Errorf("z3.Context.toAST: unexpected operation: %s", f.Op())
}

// binaryFuncs maps binary bit-vector operators to their constructors.
// Associative operators are folded left over their arguments.
var binaryFuncs = map[lift.Op]func(C.Z3_context, C.Z3_ast, C.Z3_ast) C.Z3_ast{
	lift.BVADD:  func(c C.Z3_context, x, y C.Z3_ast) C.Z3_ast { return C.Z3_mk_bvadd(c, x, y) },
	lift.BVSUB:  func(c C.Z3_context, x, y C.Z3_ast) C.Z3_ast { return C.Z3_mk_bvsub(c, x, y) },
	lift.BVMUL:  func(c C.Z3_context, x, y C.Z3_ast) C.Z3_ast { return C.Z3_mk_bvmul(c, x, y) },
	lift.BVUDIV: func(c C.Z3_context, x, y C.Z3_ast) C.Z3_ast { return C.Z3_mk_bvudiv(c, x, y) },
	lift.BVSDIV: func(c C.Z3_context, x, y C.Z3_ast) C.Z3_ast { return C.Z3_mk_bvsdiv(c, x, y) },
	lift.BVUREM: func(c C.Z3_context, x, y C.Z3_ast) C.Z3_ast { return C.Z3_mk_bvurem(c, x, y) },
	lift.BVSREM: func(c C.Z3_context, x, y C.Z3_ast) C.Z3_ast { return C.Z3_mk_bvsrem(c, x, y) },
	lift.BVSMOD: func(c C.Z3_context, x, y C.Z3_ast) C.Z3_ast { return C.Z3_mk_bvsmod(c, x, y) },
	lift.BVAND:  func(c C.Z3_context, x, y C.Z3_ast) C.Z3_ast { return C.Z3_mk_bvand(c, x, y) },
	lift.BVOR:   func(c C.Z3_context, x, y C.Z3_ast) C.Z3_ast { return C.Z3_mk_bvor(c, x, y) },
	lift.BVXOR:  func(c C.Z3_context, x, y C.Z3_ast) C.Z3_ast { return C.Z3_mk_bvxor(c, x, y) },
	lift.BVSHL:  func(c C.Z3_context, x, y C.Z3_ast) C.Z3_ast { return C.Z3_mk_bvshl(c, x, y) },
	lift.BVLSHR: func(c C.Z3_context, x, y C.Z3_ast) C.Z3_ast { return C.Z3_mk_bvlshr(c, x, y) },
	lift.BVASHR: func(c C.Z3_context, x, y C.Z3_ast) C.Z3_ast { return C.Z3_mk_bvashr(c, x, y) },
	lift.BVULT:  func(c C.Z3_context, x, y C.Z3_ast) C.Z3_ast { return C.Z3_mk_bvult(c, x, y) },
	lift.BVULE:  func(c C.Z3_context, x, y C.Z3_ast) C.Z3_ast { return C.Z3_mk_bvule(c, x, y) },
	lift.BVUGT:  func(c C.Z3_context, x, y C.Z3_ast) C.Z3_ast { return C.Z3_mk_bvugt(c, x, y) },
	lift.BVUGE:  func(c C.Z3_context, x, y C.Z3_ast) C.Z3_ast { return C.Z3_mk_bvuge(c, x, y) },
	lift.BVSLT:  func(c C.Z3_context, x, y C.Z3_ast) C.Z3_ast { return C.Z3_mk_bvslt(c, x, y) },
	lift.BVSLE:  func(c C.Z3_context, x, y C.Z3_ast) C.Z3_ast { return C.Z3_mk_bvsle(c, x, y) },
	lift.BVSGT:  func(c C.Z3_context, x, y C.Z3_ast) C.Z3_ast { return C.Z3_mk_bvsgt(c, x, y) },
	lift.BVSGE:  func(c C.Z3_context, x, y C.Z3_ast) C.Z3_ast { return C.Z3_mk_bvsge(c, x, y) },
}

// fold applies fn left to right over args.
func (ctx *Context) fold(args []C.Z3_ast, fn func(x, y C.Z3_ast) C.Z3_ast, op string) (C.Z3_ast, error) {
	ast := args[0]
	for _, arg := range args[1:] {
		ast = fn(ast, arg)
		if err := ctx.err(op); err != nil {
			return nil, err
		}
	}
	return ast, nil
}

func (ctx *Context) toApplyAST(f *lift.Formula, args []C.Z3_ast) (C.Z3_ast, error) {
	key := declKey(f)
	decl, ok := ctx.decls[key]
	if !ok {
		domain := make([]C.Z3_sort, f.NumArgs())
		for i, arg := range f.Args() {
			var err error
			if domain[i], err = ctx.makeSort(arg.Sort()); err != nil {
				return nil, err
			}
		}
		rng, err := ctx.makeSort(f.Sort())
		if err != nil {
			return nil, err
		}

		var p *C.Z3_sort
		if len(domain) > 0 {
			p = &domain[0]
		}
		decl = C.Z3_mk_func_decl(ctx.raw, ctx.symbol(f.Name()), C.uint(len(domain)), p, rng)
		if err := ctx.err("Z3_mk_func_decl"); err != nil {
			return nil, err
		}
		ctx.decls[key] = decl
	}

	var p *C.Z3_ast
	if len(args) > 0 {
		p = &args[0]
	}
	return C.Z3_mk_app(ctx.raw, decl, C.uint(len(args)), p), ctx.err("Z3_mk_app")
}

// declKey returns the name & signature of an application so that the same
// name applied at different sorts maps to distinct declarations.
func declKey(f *lift.Formula) string {
	var buf strings.Builder
	buf.WriteString(f.Name())
	for _, arg := range f.Args() {
		buf.WriteByte(' ')
		buf.WriteString(arg.Sort().String())
	}
	buf.WriteString(" -> ")
	buf.WriteString(f.Sort().String())
	return buf.String()
}

func (ctx *Context) symbol(name string) C.Z3_symbol {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	return C.Z3_mk_string_symbol(ctx.raw, cname)
}

func (ctx *Context) makeSort(sort lift.Sort) (C.Z3_sort, error) {
	if sort.Bool {
		return C.Z3_mk_bool_sort(ctx.raw), ctx.err("Z3_mk_bool_sort")
	}
	return C.Z3_mk_bv_sort(ctx.raw, C.uint(sort.Width)), ctx.err("Z3_mk_bv_sort")
}

func (ctx *Context) makeNumeral(width uint, value *big.Int) (C.Z3_ast, error) {
	t, err := ctx.makeSort(lift.BVSort(width))
	if err != nil {
		return nil, err
	}
	cvalue := C.CString(value.String())
	defer C.free(unsafe.Pointer(cvalue))
	return C.Z3_mk_numeral(ctx.raw, cvalue, t), ctx.err("Z3_mk_numeral")
}

// decoder converts Z3 ASTs into formulas built by a lift.Builder.
type decoder struct {
	ctx *Context
	b   *lift.Builder
	m   map[C.uint]*lift.Formula
}

func newDecoder(ctx *Context, b *lift.Builder) *decoder {
	return &decoder{ctx: ctx, b: b, m: make(map[C.uint]*lift.Formula)}
}

func (d *decoder) decode(ast C.Z3_ast) (*lift.Formula, error) {
	id := C.Z3_get_ast_id(d.ctx.raw, ast)
	if f, ok := d.m[id]; ok {
		return f, nil
	}

	f, err := d.decodeNode(ast)
	if err != nil {
		return nil, err
	}
	d.m[id] = f
	return f, nil
}

func (d *decoder) sort(ast C.Z3_ast) (lift.Sort, error) {
	t := C.Z3_get_sort(d.ctx.raw, ast)
	switch C.Z3_get_sort_kind(d.ctx.raw, t) {
	case C.Z3_BOOL_SORT:
		return lift.BoolSort(), nil
	case C.Z3_BV_SORT:
		return lift.BVSort(uint(C.Z3_get_bv_sort_size(d.ctx.raw, t))), nil
	default:
		return lift.Sort{}, &lift.UnsupportedError{Reason: "z3: sort " + C.GoString(C.Z3_sort_to_string(d.ctx.raw, t))}
	}
}

func (d *decoder) decodeNode(ast C.Z3_ast) (*lift.Formula, error) {
	sort, err := d.sort(ast)
	if err != nil {
		return nil, err
	}

	switch C.Z3_get_ast_kind(d.ctx.raw, ast) {
	case C.Z3_NUMERAL_AST:
		v, ok := new(big.Int).SetString(C.GoString(C.Z3_get_numeral_string(d.ctx.raw, ast)), 10)
		if !ok || sort.Bool {
			return nil, fmt.Errorf("z3: invalid numeral: %s", d.ctx.astToString(ast))
		}
		return d.b.Const(v, sort.Width), nil
	case C.Z3_APP_AST:
	default:
		return nil, &lift.UnsupportedError{Reason: "z3: expression " + d.ctx.astToString(ast)}
	}

	app := C.Z3_to_app(d.ctx.raw, ast)
	decl := C.Z3_get_app_decl(d.ctx.raw, app)
	args := make([]*lift.Formula, int(C.Z3_get_app_num_args(d.ctx.raw, app)))
	for i := range args {
		if args[i], err = d.decode(C.Z3_get_app_arg(d.ctx.raw, app, C.uint(i))); err != nil {
			return nil, err
		}
	}
	param := func(i int) uint {
		return uint(C.Z3_get_decl_int_parameter(d.ctx.raw, decl, C.uint(i)))
	}

	switch kind := C.Z3_get_decl_kind(d.ctx.raw, decl); kind {
	case C.Z3_OP_TRUE:
		return d.b.True(), nil
	case C.Z3_OP_FALSE:
		return d.b.False(), nil
	case C.Z3_OP_UNINTERPRETED:
		name := C.GoString(C.Z3_get_symbol_string(d.ctx.raw, C.Z3_get_decl_name(d.ctx.raw, decl)))
		return d.b.Apply(name, sort, args...), nil
	case C.Z3_OP_EXTRACT:
		return d.b.Extract(param(0), param(1), args[0]), nil
	case C.Z3_OP_SIGN_EXT:
		return d.b.SignExt(param(0), args[0]), nil
	case C.Z3_OP_ZERO_EXT:
		return d.b.ZeroExt(param(0), args[0]), nil
	case C.Z3_OP_IMPLIES:
		return d.b.Or(d.b.Not(args[0]), args[1]), nil
	case C.Z3_OP_BNAND:
		return d.b.Make(lift.BVNOT, d.b.Make(lift.BVAND, args...)), nil
	case C.Z3_OP_BNOR:
		return d.b.Make(lift.BVNOT, d.b.Make(lift.BVOR, args...)), nil
	case C.Z3_OP_BXNOR:
		return d.b.Make(lift.BVNOT, d.b.Make(lift.BVXOR, args...)), nil
	case C.Z3_OP_BCOMP:
		return d.b.Ite(d.b.Eq(args[0], args[1]), d.b.ConstUint(1, 1), d.b.ConstUint(0, 1)), nil
	case C.Z3_OP_REPEAT:
		a := make([]*lift.Formula, param(0))
		for i := range a {
			a[i] = args[0]
		}
		return d.b.Concat(a...), nil
	case C.Z3_OP_ROTATE_LEFT:
		return d.rotateLeft(args[0], param(0)), nil
	case C.Z3_OP_ROTATE_RIGHT:
		w := args[0].Width()
		return d.rotateLeft(args[0], w-param(0)%w), nil
	default:
		op, ok := declOps[kind]
		if !ok {
			return nil, &lift.UnsupportedError{Reason: "z3: operation " + d.ctx.astToString(ast)}
		}
		if op == lift.XOR && len(args) > 2 {
			g := d.b.Make(op, args[0], args[1])
			for _, arg := range args[2:] {
				g = d.b.Make(op, g, arg)
			}
			return g, nil
		}
		return d.b.Make(op, args...), nil
	}
}

// rotateLeft returns x rotated left by n bits as a concatenation of extracts.
func (d *decoder) rotateLeft(x *lift.Formula, n uint) *lift.Formula {
	w := x.Width()
	if n %= w; n == 0 {
		return x
	}
	return d.b.Concat(d.b.Extract(w-n-1, 0, x), d.b.Extract(w-1, w-n, x))
}

// declOps maps Z3 declaration kinds to the formula operator with the same semantics.
var declOps = map[C.Z3_decl_kind]lift.Op{
	C.Z3_OP_EQ:       lift.EQ,
	C.Z3_OP_DISTINCT: lift.DISTINCT,
	C.Z3_OP_ITE:      lift.ITE,
	C.Z3_OP_AND:      lift.AND,
	C.Z3_OP_OR:       lift.OR,
	C.Z3_OP_XOR:      lift.XOR,
	C.Z3_OP_NOT:      lift.NOT,
	C.Z3_OP_BNEG:     lift.BVNEG,
	C.Z3_OP_BADD:     lift.BVADD,
	C.Z3_OP_BSUB:     lift.BVSUB,
	C.Z3_OP_BMUL:     lift.BVMUL,
	C.Z3_OP_BSDIV:    lift.BVSDIV,
	C.Z3_OP_BUDIV:    lift.BVUDIV,
	C.Z3_OP_BSREM:    lift.BVSREM,
	C.Z3_OP_BUREM:    lift.BVUREM,
	C.Z3_OP_BSMOD:    lift.BVSMOD,
	C.Z3_OP_BSDIV_I:  lift.BVSDIV,
	C.Z3_OP_BUDIV_I:  lift.BVUDIV,
	C.Z3_OP_BSREM_I:  lift.BVSREM,
	C.Z3_OP_BUREM_I:  lift.BVUREM,
	C.Z3_OP_BSMOD_I:  lift.BVSMOD,
	C.Z3_OP_ULEQ:     lift.BVULE,
	C.Z3_OP_SLEQ:     lift.BVSLE,
	C.Z3_OP_UGEQ:     lift.BVUGE,
	C.Z3_OP_SGEQ:     lift.BVSGE,
	C.Z3_OP_ULT:      lift.BVULT,
	C.Z3_OP_SLT:      lift.BVSLT,
	C.Z3_OP_UGT:      lift.BVUGT,
	C.Z3_OP_SGT:      lift.BVSGT,
	C.Z3_OP_BAND:     lift.BVAND,
	C.Z3_OP_BOR:      lift.BVOR,
	C.Z3_OP_BNOT:     lift.BVNOT,
	C.Z3_OP_BXOR:     lift.BVXOR,
	C.Z3_OP_CONCAT:   lift.CONCAT,
	C.Z3_OP_BSHL:     lift.BVSHL,
	C.Z3_OP_BLSHR:    lift.BVLSHR,
	C.Z3_OP_BASHR:    lift.BVASHR,
}

func (ctx *Context) astToString(ast C.Z3_ast) string {
	return C.GoString(C.Z3_ast_to_string(ctx.raw, ast))
}

// Error represents an error from the Z3 API.
type Error struct {
	Code    int
	Op      string
	Message string
}

// Error returns the error as a string.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (%d)", e.Op, e.Message, e.Code)
}

// Possible error codes.
const (
	ErrorCodeOK = iota
	ErrorCodeSortError
	ErrorCodeIOB
	ErrorCodeInvalidArg
	ErrorCodeParserError
	ErrorCodeNoParser
	ErrorCodeInvalidPattern
	ErrorCodeMemoutFail
	ErrorCodeFileAccessError
	ErrorCodeInternalFatal
	ErrorCodeInvalidUsage
	ErrorCodeDecRefError
	ErrorCodeException
)

// Stats represents statistics for a solver.
type Stats struct {
	SolveN    int
	SolveTime time.Duration
}
