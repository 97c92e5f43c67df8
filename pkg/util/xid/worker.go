package xid

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// =============================================================================
// ID 位布局常量
// =============================================================================

const (
	// beginTimestamp 自定义纪元（1992-04-07T00:00:00Z）的 Unix 秒数。
	// 固定常量：改动会使已发放的 ID 与新 ID 失去可比性。
	beginTimestamp int64 = 702604800

	// countBits 序列号位数。
	// 时间戳左移 32 位后与序列号按位或，组成最终 ID。
	countBits = 32

	// counterKeyPrefix 序列计数器的 Redis key 前缀。
	// 与锁（lock:）、缓存（cache:）前缀约定共同划分 key 空间，互不冲突。
	counterKeyPrefix = "inc:"

	// dayLayout 计数器 key 中的日期格式（yyyy:MM:dd）。
	// 按 : 分层便于用 pattern 统计某年/某月/某日的发号量。
	dayLayout = "2006:01:02"
)

// =============================================================================
// Components - ID 分解结果
// =============================================================================

// Components 表示 ID 分解后的各组成部分。
//
// 设计决策: 字段统一使用 int64 而非精确位宽类型，
// 避免调用方的类型转换噪音；值域约束由 Decompose 实现保证。
type Components struct {
	// ID 原始 ID 值
	ID int64
	// Timestamp 时间戳部分还原出的时刻（UTC，秒精度）
	Timestamp time.Time
	// Sequence 序列号部分（32 位，同一 (业务, 日, 秒) 窗口内严格递增）
	Sequence int64
}

// Decompose 将 ID 分解为时间戳和序列号。
// 用于排障和按时间归档，不参与发号路径。
func Decompose(id int64) (Components, error) {
	if id <= 0 {
		return Components{}, ErrInvalidID
	}
	seconds := id>>countBits + beginTimestamp
	return Components{
		ID:        id,
		Timestamp: time.Unix(seconds, 0).UTC(),
		Sequence:  id & ((1 << countBits) - 1),
	}, nil
}

// =============================================================================
// Worker - ID 生成器
// =============================================================================

// Worker 分布式唯一 ID 生成器。
// 所有方法并发安全：唯一的共享状态是 Redis 侧的原子计数器。
type Worker struct {
	client redis.UniversalClient
	// now 返回当前时刻。默认为 time.Now，测试中可替换。
	now func() time.Time
}

// NewWorker 创建 ID 生成器。
// client 必须是已初始化的 redis.UniversalClient。
func NewWorker(client redis.UniversalClient) (*Worker, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	return &Worker{
		client: client,
		now:    time.Now,
	}, nil
}

// NextID 生成下一个 ID。
//
// biz 是业务前缀（如 "order"），不同业务的序列互相隔离。
// 返回的 ID 在同一 (biz, 自然日) 内严格递增且永不重复；
// 跨秒时由时间戳高位保证整体递增。ID 不保证连续无空洞。
func (w *Worker) NextID(ctx context.Context, biz string) (int64, error) {
	if strings.TrimSpace(biz) == "" {
		return 0, ErrEmptyBiz
	}

	now := w.now().UTC()
	timestamp := now.Unix() - beginTimestamp

	// 序列号：按 (业务, 自然日) 维度的原子自增。
	// INCR 在 key 不存在时从 0 开始，无需预创建；key 留给 Redis 按配置回收。
	key := counterKeyPrefix + biz + ":" + now.Format(dayLayout)
	seq, err := w.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}

	return timestamp<<countBits | seq, nil
}
