package xpool

import (
	"log/slog"
	"sync"
)

// WorkerPool 是一个泛型有界 worker pool。
// 任务经由缓冲队列分发给固定数量的 worker，支持优雅关闭和 panic 恢复。
type WorkerPool[T any] struct {
	workers int
	handler func(T)
	queue   chan T
	logger  *slog.Logger
	name    string

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopped  chan struct{}
	startMu  sync.Mutex
	started  bool
}

// NewWorkerPool 创建 worker pool。
//
// 参数：
//   - workers: worker 数量，最小为 1
//   - queueSize: 任务队列容量，最小为 1（默认 100）
//   - handler: 任务处理函数，不能为 nil
//
// handler 为 nil 时 panic：这是编码错误，应在开发期暴露。
func NewWorkerPool[T any](workers, queueSize int, handler func(T), opts ...Option) *WorkerPool[T] {
	if handler == nil {
		panic("xpool: handler cannot be nil")
	}
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 100
	}

	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &WorkerPool[T]{
		workers: workers,
		handler: handler,
		queue:   make(chan T, queueSize),
		logger:  options.logger,
		name:    options.name,
		stopped: make(chan struct{}),
	}
}

// Start 启动 worker pool。
// 幂等：重复调用只会启动一次。
func (p *WorkerPool[T]) Start() {
	p.startMu.Lock()
	defer p.startMu.Unlock()

	if p.started {
		return
	}
	p.started = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// worker 只从 queue 读取任务，不监听 stopped 信号，
// 保证 Stop() 时队列中的剩余任务能够被处理完（优雅关闭）。
func (p *WorkerPool[T]) worker() {
	defer p.wg.Done()
	for task := range p.queue {
		p.run(task)
	}
}

// run 执行单个任务并捕获 panic，避免单个任务拖垮整个池。
func (p *WorkerPool[T]) run(task T) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("xpool: worker panic recovered", "pool", p.name, "panic", r)
		}
	}()
	p.handler(task)
}

// Submit 提交任务。
// 队列已满时任务被丢弃并记录日志；池已停止时返回 false。
func (p *WorkerPool[T]) Submit(task T) (ok bool) {
	// Stop() 关闭 p.stopped 后、关闭 p.queue 前存在极短窗口，
	// select 可能恰好选中 p.queue <- task 分支触发 send on closed channel，
	// 用 recover 兜底并返回 false。
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()

	select {
	case <-p.stopped:
		return false
	case p.queue <- task:
		return true
	default:
		p.logger.Warn("xpool: queue full, task dropped", "pool", p.name)
		return false
	}
}

// Stop 停止 worker pool，等待队列中剩余任务处理完成后返回。
// 幂等：重复调用无副作用。
func (p *WorkerPool[T]) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopped)
		close(p.queue)
		p.wg.Wait()
	})
}

// Workers 返回 worker 数量。
func (p *WorkerPool[T]) Workers() int {
	return p.workers
}
