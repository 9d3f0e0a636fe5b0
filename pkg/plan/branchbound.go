package plan

import (
	"container/heap"
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

const integralityTol = 1e-6

type bbNode struct {
	lo, hi []float64
	bound  float64
	depth  int
}

type nodeHeap []*bbNode

func (h nodeHeap) Len() int            { return len(h) }
func (h nodeHeap) Less(i, j int) bool  { return h[i].bound < h[j].bound }
func (h nodeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x interface{}) { *h = append(*h, x.(*bbNode)) }
func (h *nodeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

type searchResult struct {
	X     []float64
	Obj   float64
	Bound float64 // best proven lower bound on the optimum

	Exhausted  bool // tree fully explored
	Infeasible bool // proven: no feasible assignment exists
	BadFamily  ConstraintFamily
	BadRow     string

	Nodes        int64
	LPIterations int64
	Incumbents   int
}

// bbSearch coordinates the branch-and-bound tree: a shared best-first node
// heap, worker goroutines expanding disjoint nodes, and an incumbent that is
// replaced only on strict improvement under a single lock. Cancellation is
// cooperative: the budget and context are checked between node expansions and
// the best-so-far result is returned intact.
type bbSearch struct {
	model   *Model
	intCols []int
	log     *zap.Logger
	metrics *SolverMetrics

	mu      sync.Mutex
	cond    *sync.Cond
	open    nodeHeap
	active  int
	stopped bool

	bestX   []float64
	bestObj float64

	badFamily ConstraintFamily
	badRow    string
	lpFailure bool

	nodes       int64
	lpIters     int64
	incumbents  int
	nodeBudget  int64
	deadline    time.Time
	hasDeadline bool
}

// branchAndBound minimizes the model over its integer variables, starting
// from an optional warm incumbent.
func branchAndBound(ctx context.Context, m *Model, opts SolveOptions, warmX []float64, warmObj float64) (searchResult, error) {
	s := &bbSearch{
		model:      m,
		intCols:    m.IntegerColumns(),
		log:        opts.logger(),
		metrics:    opts.Metrics,
		bestObj:    math.Inf(1),
		nodeBudget: opts.NodeBudget,
	}
	s.cond = sync.NewCond(&s.mu)
	if opts.TimeBudget > 0 {
		s.deadline = time.Now().Add(opts.TimeBudget)
		s.hasDeadline = true
	}
	if warmX != nil {
		s.bestX = warmX
		s.bestObj = warmObj
		s.incumbents = 1
	}

	lo, hi := m.Bounds()
	root := &bbNode{lo: lo, hi: hi, bound: math.Inf(-1)}
	s.open = nodeHeap{root}
	if ctx.Err() != nil {
		s.stopped = true
	}

	// Wake any waiting worker when the caller cancels.
	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.stopped = true
			s.cond.Broadcast()
			s.mu.Unlock()
		case <-watchDone:
		}
	}()
	defer close(watchDone)

	workers := opts.workerCount()
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			s.run(ctx)
		}()
	}
	wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lpFailure {
		return searchResult{}, infeasible(FamilyCapacity, -1, "the relaxation solver exceeded its pivot limit; the model is numerically degenerate")
	}

	res := searchResult{
		Obj:          s.bestObj,
		Bound:        s.openBoundLocked(),
		Exhausted:    len(s.open) == 0 && !s.stopped,
		Nodes:        s.nodes,
		LPIterations: s.lpIters,
		Incumbents:   s.incumbents,
	}
	if s.bestX != nil {
		res.X = append([]float64(nil), s.bestX...)
		if res.Exhausted {
			res.Bound = res.Obj
		}
	} else if res.Exhausted {
		res.Infeasible = true
		res.BadFamily = s.badFamily
		res.BadRow = s.badRow
		if res.BadFamily == "" {
			// Relaxation feasible but no integral assignment exists.
			res.BadFamily = FamilyBatchSize
		}
	}
	return res, nil
}

// openBoundLocked is the tightest lower bound still open, or the incumbent
// when the tree is exhausted.
func (s *bbSearch) openBoundLocked() float64 {
	if len(s.open) == 0 {
		if s.bestX != nil {
			return s.bestObj
		}
		return math.Inf(-1)
	}
	return s.open[0].bound
}

func (s *bbSearch) run(ctx context.Context) {
	for {
		node, ok := s.nextNode()
		if !ok {
			return
		}
		s.expand(node)
		s.mu.Lock()
		s.active--
		s.cond.Broadcast()
		s.mu.Unlock()
	}
}

// nextNode pops the best open node, blocking while other workers may still
// add children. It returns false when the search is over.
func (s *bbSearch) nextNode() (*bbNode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		if s.stopped || s.lpFailure {
			return nil, false
		}
		if s.overBudgetLocked() {
			s.stopped = true
			s.cond.Broadcast()
			return nil, false
		}
		if len(s.open) > 0 {
			node := heap.Pop(&s.open).(*bbNode)
			// Prune against the incumbent before spending an LP on it.
			if node.bound >= s.bestObj-1e-9 && s.bestX != nil {
				continue
			}
			s.active++
			return node, true
		}
		if s.active == 0 {
			return nil, false
		}
		s.cond.Wait()
	}
}

func (s *bbSearch) overBudgetLocked() bool {
	if s.nodeBudget > 0 && s.nodes >= s.nodeBudget {
		return true
	}
	if s.hasDeadline && time.Now().After(s.deadline) {
		return true
	}
	return false
}

// expand solves one node's relaxation and either prunes, records an
// incumbent, or branches on the most fractional integer variable.
func (s *bbSearch) expand(node *bbNode) {
	res := solveLP(s.model, node.lo, node.hi)

	s.mu.Lock()
	s.nodes++
	s.lpIters += int64(res.Iters)
	isRoot := s.nodes == 1
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.NodesExplored.Inc()
		s.metrics.LPIterations.Add(float64(res.Iters))
	}

	switch res.Status {
	case lpIterLimit:
		s.mu.Lock()
		s.lpFailure = true
		s.cond.Broadcast()
		s.mu.Unlock()
		return
	case lpInfeasible, lpUnbounded:
		if isRoot {
			s.mu.Lock()
			s.badFamily = res.BadFamily
			s.badRow = res.BadRow
			s.mu.Unlock()
		}
		return
	}

	s.mu.Lock()
	if res.Obj >= s.bestObj-1e-9 && s.bestX != nil {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	branchCol := -1
	worstFrac := integralityTol
	for _, j := range s.intCols {
		v := res.X[j]
		frac := math.Abs(v - math.Round(v))
		if frac > worstFrac {
			worstFrac = frac
			branchCol = j
		}
	}

	if branchCol == -1 {
		s.recordIncumbent(res)
		return
	}

	down := &bbNode{
		lo:    node.lo,
		hi:    append([]float64(nil), node.hi...),
		bound: res.Obj,
		depth: node.depth + 1,
	}
	down.hi[branchCol] = math.Floor(res.X[branchCol])
	up := &bbNode{
		lo:    append([]float64(nil), node.lo...),
		hi:    node.hi,
		bound: res.Obj,
		depth: node.depth + 1,
	}
	up.lo[branchCol] = math.Ceil(res.X[branchCol])

	s.mu.Lock()
	heap.Push(&s.open, down)
	heap.Push(&s.open, up)
	s.cond.Broadcast()
	s.mu.Unlock()
}

// recordIncumbent installs an integral solution if it strictly improves the
// current best.
func (s *bbSearch) recordIncumbent(res lpResult) {
	x := append([]float64(nil), res.X...)
	for _, j := range s.intCols {
		x[j] = math.Round(x[j])
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if res.Obj >= s.bestObj-1e-9 && s.bestX != nil {
		return
	}
	s.bestX = x
	s.bestObj = res.Obj
	s.incumbents++
	s.log.Debug("incumbent improved",
		zap.Float64("objective", res.Obj),
		zap.Int64("nodes", s.nodes))
	if s.metrics != nil {
		s.metrics.IncumbentUpdates.Inc()
	}
}
