package symexec

import (
	"context"
	"fmt"
	"maps"
	"runtime/debug"
	"slices"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/go/ssa"

	"slava0135/smtshim/smt"
	"slava0135/smtshim/term"
)

const (
	defaultMaxDepth = 256
	maxFrames       = 64
)

type Options struct {
	Strategy Strategy
	// MaxDepth bounds the number of blocks on one path, callees included.
	MaxDepth int
	// Timeout bounds each check; zero means no bound.
	Timeout time.Duration
	// Workers is the number of functions explored at once.
	Workers int
	// Functions restricts exploration to the named functions.
	Functions []string
	// Inputs asks for a satisfying assignment of every finished path, when
	// the checker is an smt.ModelChecker. A path whose last fork was already
	// checked is checked once more for it.
	Inputs bool
	Seed   int64
	Logger *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// ExploreFile builds the Go file and explores its top-level functions through
// checker. Problems with a single function end up in its report; the error
// is reserved for files that cannot be built and unknown function names.
func ExploreFile(ctx context.Context, filename string, checker smt.Checker, opts Options) ([]*Report, error) {
	log := opts.logger()
	log.Debug(":: building SSA graph", zap.String("file", filename))
	pkg, err := buildPackage(filename)
	if err != nil {
		return nil, err
	}

	var fns []*ssa.Function
	for _, m := range pkg.Members {
		if fn, ok := m.(*ssa.Function); ok && fn.Name() != "init" && fn.TypeParams().Len() == 0 {
			fns = append(fns, fn)
		}
	}
	sort.Slice(fns, func(i, j int) bool { return fns[i].Name() < fns[j].Name() })
	if len(opts.Functions) > 0 {
		var picked []*ssa.Function
		for _, name := range opts.Functions {
			i := slices.IndexFunc(fns, func(fn *ssa.Function) bool { return fn.Name() == name })
			if i < 0 {
				return nil, fmt.Errorf("%s: no function '%s'", filename, name)
			}
			picked = append(picked, fns[i])
		}
		fns = picked
	}

	reports := make([]*Report, len(fns))
	var g errgroup.Group
	g.SetLimit(max(1, opts.Workers))
	for i, fn := range fns {
		g.Go(func() error {
			reports[i] = exploreFunction(ctx, fn, checker, opts)
			return nil
		})
	}
	g.Wait()
	return reports, nil
}

func exploreFunction(ctx context.Context, fn *ssa.Function, checker smt.Checker, opts Options) (report *Report) {
	log := opts.logger().With(zap.String("function", fn.Name()))
	report = &Report{Function: fn.Name(), Signature: fn.Signature.String()}
	defer func() {
		if r := recover(); r != nil {
			report.Err = fmt.Errorf("internal error: %v", r)
			log.Error("exploration panicked", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
		}
	}()

	log.Debug(":: analyzing function")
	if ce := log.Check(zap.DebugLevel, ":: printing SSA blocks"); ce != nil {
		var sb strings.Builder
		printBlocks(&sb, fn)
		ce.Write(zap.String("ssa", sb.String()))
	}

	e, err := newExecutor(fn, checker, opts, report)
	if err != nil {
		report.Err = err
		log.Info("function skipped", zap.Error(err))
		return report
	}
	report.Params = e.ctx.params
	log.Debug(":: execute")
	if err := e.execute(ctx); err != nil {
		report.Err = err
		log.Warn("exploration stopped", zap.Error(err))
	}
	log.Debug(":: done",
		zap.Int("paths", len(report.Paths)),
		zap.Int("checks", report.Checks),
		zap.Int("pruned", report.Pruned))
	return report
}

type State struct {
	frames []*Frame
	conds  []term.Node
	depth  int
	// verdict answers the last check; checked is false once conds grew
	// without a new check.
	verdict smt.Verdict
	checked bool
}

func (s *State) copy() *State {
	stateCopy := &State{
		conds:   slices.Clone(s.conds),
		depth:   s.depth,
		verdict: s.verdict,
		checked: s.checked,
	}
	for _, frame := range s.frames {
		stateCopy.frames = append(stateCopy.frames, frame.copy())
	}
	return stateCopy
}

func (s *State) currentFrame() *Frame {
	return s.frames[len(s.frames)-1]
}

func (s *State) formula() term.Node {
	return term.And(s.conds...)
}

func (s *State) assume(cond term.Node) {
	s.conds = append(s.conds, cond)
	s.checked = false
}

type Frame struct {
	function   *ssa.Function
	blockOrder []int
	values     map[ssa.Value]term.Node
	tuples     map[ssa.Value][]term.Node
	// call is the instruction of the caller waiting for this frame's results.
	call      *ssa.Call
	nextBlock int
	nextInstr int
}

func (frame *Frame) copy() *Frame {
	return &Frame{
		function:   frame.function,
		blockOrder: slices.Clone(frame.blockOrder),
		values:     maps.Clone(frame.values),
		tuples:     maps.Clone(frame.tuples),
		call:       frame.call,
		nextBlock:  frame.nextBlock,
		nextInstr:  frame.nextInstr,
	}
}

type executor struct {
	fn       *ssa.Function
	ctx      *EncodingContext
	checker  smt.Checker
	models   smt.ModelChecker
	queue    Queue
	maxDepth int
	timeout  time.Duration
	report   *Report
}

func newExecutor(fn *ssa.Function, checker smt.Checker, opts Options, report *Report) (*executor, error) {
	if fn.Blocks == nil {
		return nil, unsupported("function %s has no body", fn.Name())
	}
	ctx, err := newEncodingContext(fn)
	if err != nil {
		return nil, err
	}
	strategy := opts.Strategy
	if strategy == "" {
		strategy = StrategyDFS
	}
	queue, err := NewQueue(strategy, opts.Seed)
	if err != nil {
		return nil, err
	}
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	var models smt.ModelChecker
	if mc, ok := checker.(smt.ModelChecker); ok && opts.Inputs {
		models = mc
	}
	return &executor{
		fn:       fn,
		ctx:      ctx,
		checker:  checker,
		models:   models,
		queue:    queue,
		maxDepth: maxDepth,
		timeout:  opts.Timeout,
		report:   report,
	}, nil
}

func (e *executor) execute(ctx context.Context) error {
	e.queue.push(&State{
		frames:  []*Frame{e.ctx.entryFrame(e.fn)},
		verdict: smt.Sat,
		checked: true,
	})
	for !e.queue.empty() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.step(ctx, e.queue.pop()); err != nil {
			return err
		}
	}
	return nil
}

// step runs the current block of state up to its next control transfer and
// queues whatever states follow.
func (e *executor) step(ctx context.Context, state *State) error {
	frame := state.currentFrame()
	block := frame.function.Blocks[frame.nextBlock]
	if frame.nextInstr == 0 {
		if state.depth >= e.maxDepth {
			return e.finish(ctx, state, OutcomeTruncated, nil)
		}
		frame.blockOrder = append(frame.blockOrder, block.Index)
		state.depth++
		if err := e.phis(frame, block); err != nil {
			return err
		}
	}

	for index := frame.nextInstr; index < len(block.Instrs); index++ {
		switch v := block.Instrs[index].(type) {
		case *ssa.Phi, *ssa.DebugRef:
			continue
		case *ssa.MakeInterface:
			// Left unbound: only a panic argument is expected here, and a
			// panic's value is not tracked.
			continue
		case *ssa.BinOp:
			x, err := e.ctx.value(frame, v.X)
			if err != nil {
				return err
			}
			y, err := e.ctx.value(frame, v.Y)
			if err != nil {
				return err
			}
			bx, err := basicOf(v.X.Type())
			if err != nil {
				return err
			}
			by, err := basicOf(v.Y.Type())
			if err != nil {
				return err
			}
			n, err := encodeBinOp(v.Op, x, y, bx, by)
			if err != nil {
				return err
			}
			if isIntDivision(v.Op, bx) {
				// The path goes on only where Go does not panic.
				state.assume(term.Apply("distinct", y, zero(by)))
			}
			frame.values[v] = n
		case *ssa.UnOp:
			x, err := e.ctx.value(frame, v.X)
			if err != nil {
				return err
			}
			b, err := basicOf(v.X.Type())
			if err != nil {
				return err
			}
			n, err := encodeUnOp(v.Op, x, b)
			if err != nil {
				return err
			}
			frame.values[v] = n
		case *ssa.Convert:
			if err := e.convert(frame, v, v.X); err != nil {
				return err
			}
		case *ssa.ChangeType:
			if err := e.convert(frame, v, v.X); err != nil {
				return err
			}
		case *ssa.Extract:
			tuple, ok := frame.tuples[v.Tuple]
			if !ok || v.Index >= len(tuple) {
				return unsupported("extract %s", v)
			}
			frame.values[v] = tuple[v.Index]
		case *ssa.If:
			cond, err := e.ctx.value(frame, v.Cond)
			if err != nil {
				return err
			}
			for i, branch := range []term.Node{cond, term.Not(cond)} {
				next := state.copy()
				nextFrame := next.currentFrame()
				nextFrame.nextBlock = block.Succs[i].Index
				nextFrame.nextInstr = 0
				next.assume(branch)
				verdict, _, err := e.check(ctx, next, false)
				if err != nil {
					return err
				}
				if verdict == smt.Unsat {
					e.report.Pruned++
					continue
				}
				e.queue.push(next)
			}
			return nil
		case *ssa.Jump:
			frame.nextBlock = block.Succs[0].Index
			frame.nextInstr = 0
			e.queue.push(state)
			return nil
		case *ssa.Return:
			results, err := e.ctx.values(frame, v.Results)
			if err != nil {
				return err
			}
			if len(state.frames) == 1 {
				return e.finish(ctx, state, OutcomeReturned, results)
			}
			state.frames = state.frames[:len(state.frames)-1]
			caller := state.currentFrame()
			if len(results) == 1 {
				caller.values[frame.call] = results[0]
			} else {
				caller.tuples[frame.call] = results
			}
			e.queue.push(state)
			return nil
		case *ssa.Panic:
			return e.finish(ctx, state, OutcomePanicked, nil)
		case *ssa.Call:
			callee := v.Call.StaticCallee()
			if callee == nil || callee.Pkg != e.fn.Pkg || callee.Blocks == nil {
				return unsupported("call %s", v.Call.String())
			}
			args, err := e.ctx.values(frame, v.Call.Args)
			if err != nil {
				return err
			}
			if len(state.frames) >= maxFrames {
				return e.finish(ctx, state, OutcomeTruncated, nil)
			}
			nextFrame := &Frame{
				function: callee,
				values:   make(map[ssa.Value]term.Node, len(callee.Params)),
				tuples:   make(map[ssa.Value][]term.Node),
				call:     v,
			}
			for i, p := range callee.Params {
				nextFrame.values[p] = args[i]
			}
			frame.nextInstr = index + 1
			state.frames = append(state.frames, nextFrame)
			e.queue.push(state)
			return nil
		default:
			return unsupported("instruction '%s' in %s", v, frame.function.Name())
		}
	}
	return fmt.Errorf("block %d of %s does not end in a jump", block.Index, frame.function.Name())
}

// phis binds the phi nodes at the top of block from the edge the path came
// in on. All edges are read before any phi is bound.
func (e *executor) phis(frame *Frame, block *ssa.BasicBlock) error {
	var phis []*ssa.Phi
	var bound []term.Node
	for _, instr := range block.Instrs {
		phi, ok := instr.(*ssa.Phi)
		if !ok {
			break
		}
		if len(frame.blockOrder) < 2 {
			return fmt.Errorf("phi %s in entry block", phi.Name())
		}
		prev := frame.blockOrder[len(frame.blockOrder)-2]
		edge := slices.IndexFunc(block.Preds, func(b *ssa.BasicBlock) bool { return b.Index == prev })
		if edge < 0 {
			return fmt.Errorf("phi %s: block %d is not a predecessor of block %d", phi.Name(), prev, block.Index)
		}
		n, err := e.ctx.value(frame, phi.Edges[edge])
		if err != nil {
			return err
		}
		phis = append(phis, phi)
		bound = append(bound, n)
	}
	for i, phi := range phis {
		frame.values[phi] = bound[i]
	}
	return nil
}

func (e *executor) convert(frame *Frame, v ssa.Value, x ssa.Value) error {
	n, err := e.ctx.value(frame, x)
	if err != nil {
		return err
	}
	from, err := basicOf(x.Type())
	if err != nil {
		return err
	}
	to, err := basicOf(v.Type())
	if err != nil {
		return err
	}
	n, err = encodeConvert(n, from, to)
	if err != nil {
		return err
	}
	frame.values[v] = n
	return nil
}

// check asks about the path condition of state. With model set and a model
// checker at hand, a sat answer comes with the assignment.
func (e *executor) check(ctx context.Context, state *State, model bool) (smt.Verdict, *smt.Model, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	e.report.Checks++
	var (
		verdict smt.Verdict
		m       *smt.Model
		err     error
	)
	if model && e.models != nil {
		verdict, m, err = e.models.CheckSatModel(ctx, state.formula())
	} else {
		verdict, err = e.checker.CheckSat(ctx, state.formula())
	}
	if err != nil {
		return smt.Unknown, nil, fmt.Errorf("check path %v: %w", state.frames[0].blockOrder, err)
	}
	state.verdict = verdict
	state.checked = true
	return verdict, m, nil
}

// finish records a completed path. Assumptions added since the last fork are
// checked first; a path they make infeasible is dropped. When inputs are
// wanted the path is checked again for its assignment.
func (e *executor) finish(ctx context.Context, state *State, outcome Outcome, results []term.Node) error {
	var model *smt.Model
	if outcome != OutcomeTruncated && (!state.checked || e.models != nil) {
		verdict, m, err := e.check(ctx, state, true)
		if err != nil {
			return err
		}
		if verdict == smt.Unsat {
			e.report.Pruned++
			return nil
		}
		model = m
	}
	path := Path{
		Blocks:    state.frames[0].blockOrder,
		Condition: state.formula(),
		Results:   results,
		Outcome:   outcome,
		Verdict:   state.verdict,
	}
	if model != nil {
		path.Inputs = inputs(e.ctx.params, model)
	}
	e.report.Paths = append(e.report.Paths, path)
	return nil
}

// inputs names a value for every parameter. One the condition leaves free
// can take any value and gets its zero value.
func inputs(params []*term.Var, m *smt.Model) []Input {
	out := make([]Input, len(params))
	for i, p := range params {
		out[i] = Input{Name: p.Hint(), Value: zeroValue(p.Tag())}
		if v, ok := m.Value(p); ok {
			out[i].Value = smt.FormatValue(p.Tag(), v)
		}
	}
	return out
}

func zeroValue(tag term.Tag) string {
	switch tag {
	case term.TagBool:
		return "false"
	case term.TagString:
		return `""`
	default:
		return "0"
	}
}
