package xseckill

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shiyi1001/hm-dianping/pkg/context/xctx"
	"github.com/Shiyi1001/hm-dianping/pkg/util/xid"
)

// =============================================================================
// 测试替身
// =============================================================================

// fakeStore 内存版券/订单存储，兼做事务执行器（失败时整体回滚）。
type fakeStore struct {
	mu       sync.Mutex
	vouchers map[int64]*Voucher
	orders   []Order

	countErr  error
	createErr error
}

func newFakeStore(vouchers ...Voucher) *fakeStore {
	s := &fakeStore{vouchers: make(map[int64]*Voucher)}
	for _, v := range vouchers {
		vv := v
		s.vouchers[v.ID] = &vv
	}
	return s
}

func (s *fakeStore) GetVoucher(ctx context.Context, voucherID int64) (Voucher, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vouchers[voucherID]
	if !ok {
		return Voucher{}, false, nil
	}
	return *v, true, nil
}

func (s *fakeStore) DecrementStock(ctx context.Context, voucherID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vouchers[voucherID]
	if !ok || v.Stock < 1 {
		return false, nil
	}
	v.Stock--
	return true, nil
}

func (s *fakeStore) CountByUserAndVoucher(ctx context.Context, userID, voucherID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countErr != nil {
		return 0, s.countErr
	}
	var n int64
	for _, o := range s.orders {
		if o.UserID == userID && o.VoucherID == voucherID {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) CreateOrder(ctx context.Context, order Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.orders = append(s.orders, order)
	return nil
}

func (s *fakeStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	before := s.snapshot()
	if err := fn(ctx); err != nil {
		s.restore(before)
		return err
	}
	return nil
}

type storeState struct {
	vouchers map[int64]Voucher
	orders   []Order
}

func (s *fakeStore) snapshot() storeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := storeState{vouchers: make(map[int64]Voucher, len(s.vouchers))}
	for id, v := range s.vouchers {
		st.vouchers[id] = *v
	}
	st.orders = append(st.orders, s.orders...)
	return st
}

func (s *fakeStore) restore(st storeState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vouchers = make(map[int64]*Voucher, len(st.vouchers))
	for id, v := range st.vouchers {
		vv := v
		s.vouchers[id] = &vv
	}
	s.orders = st.orders
}

func (s *fakeStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *fakeStore) stock(voucherID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vouchers[voucherID].Stock
}

// =============================================================================
// 测试
// =============================================================================

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// openVoucher 返回一张处于秒杀时间窗口内的券。
func openVoucher(id, stock int64) Voucher {
	return Voucher{
		ID:        id,
		Stock:     stock,
		BeginTime: testTime.Add(-time.Hour),
		EndTime:   testTime.Add(time.Hour),
	}
}

func newTestCoordinator(t *testing.T, store *fakeStore, opts ...Option) (*Coordinator, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ids, err := xid.NewWorker(client)
	require.NoError(t, err)

	c, err := NewCoordinator(client, ids, store, store, store, opts...)
	require.NoError(t, err)
	c.now = func() time.Time { return testTime }
	return c, mr
}

func userCtx(t *testing.T, userID int64) context.Context {
	t.Helper()
	ctx, err := xctx.WithUserID(context.Background(), userID)
	require.NoError(t, err)
	return ctx
}

func TestNewCoordinator_Validation(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ids, err := xid.NewWorker(client)
	require.NoError(t, err)
	store := newFakeStore()

	_, err = NewCoordinator(nil, ids, store, store, store)
	assert.ErrorIs(t, err, ErrNilClient)
	_, err = NewCoordinator(client, nil, store, store, store)
	assert.ErrorIs(t, err, ErrNilIDWorker)
	_, err = NewCoordinator(client, ids, nil, store, store)
	assert.ErrorIs(t, err, ErrNilStore)
	_, err = NewCoordinator(client, ids, store, nil, store)
	assert.ErrorIs(t, err, ErrNilStore)
	_, err = NewCoordinator(client, ids, store, store, nil)
	assert.ErrorIs(t, err, ErrNilTxRunner)
}

func TestSeckill_RequiresUser(t *testing.T) {
	store := newFakeStore(openVoucher(10, 100))
	c, _ := newTestCoordinator(t, store)

	_, err := c.Seckill(context.Background(), 10)
	assert.ErrorIs(t, err, xctx.ErrNoUser)
}

func TestSeckill_Success(t *testing.T) {
	store := newFakeStore(openVoucher(10, 100))
	c, mr := newTestCoordinator(t, store)

	out, err := c.Seckill(userCtx(t, 7), 10)
	require.NoError(t, err)
	assert.True(t, out.Succeeded())
	assert.Positive(t, out.OrderID)

	require.Equal(t, 1, store.orderCount())
	order := store.orders[0]
	assert.Equal(t, out.OrderID, order.ID)
	assert.Equal(t, int64(7), order.UserID)
	assert.Equal(t, int64(10), order.VoucherID)
	assert.Equal(t, int64(99), store.stock(10))

	// 用户锁已释放
	assert.False(t, mr.Exists("lock:seckill:order:7"))
}

func TestSeckill_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		voucher Voucher
		want    Reason
	}{
		{
			name:    "voucher not found",
			voucher: openVoucher(99, 100), // 请求的是 10 号券
			want:    ReasonVoucherNotFound,
		},
		{
			name: "not started",
			voucher: Voucher{
				ID: 10, Stock: 100,
				BeginTime: testTime.Add(time.Minute),
				EndTime:   testTime.Add(time.Hour),
			},
			want: ReasonNotStarted,
		},
		{
			name: "ended",
			voucher: Voucher{
				ID: 10, Stock: 100,
				BeginTime: testTime.Add(-time.Hour),
				EndTime:   testTime.Add(-time.Minute),
			},
			want: ReasonEnded,
		},
		{
			name:    "sold out",
			voucher: openVoucher(10, 0),
			want:    ReasonSoldOut,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore(tt.voucher)
			c, _ := newTestCoordinator(t, store)

			out, err := c.Seckill(userCtx(t, 7), 10)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Reason)
			assert.False(t, out.Succeeded())
			assert.Zero(t, out.OrderID)
			assert.Equal(t, 0, store.orderCount())
		})
	}
}

func TestSeckill_WindowBoundaries(t *testing.T) {
	// 开始时刻可买，结束时刻不可买（左闭右开）
	store := newFakeStore(Voucher{
		ID: 10, Stock: 100,
		BeginTime: testTime,
		EndTime:   testTime.Add(time.Hour),
	})
	c, _ := newTestCoordinator(t, store)
	out, err := c.Seckill(userCtx(t, 7), 10)
	require.NoError(t, err)
	assert.True(t, out.Succeeded())

	store = newFakeStore(Voucher{
		ID: 10, Stock: 100,
		BeginTime: testTime.Add(-time.Hour),
		EndTime:   testTime,
	})
	c, _ = newTestCoordinator(t, store)
	out, err = c.Seckill(userCtx(t, 7), 10)
	require.NoError(t, err)
	assert.Equal(t, ReasonEnded, out.Reason)
}

func TestSeckill_DuplicateOrder(t *testing.T) {
	store := newFakeStore(openVoucher(10, 100))
	c, _ := newTestCoordinator(t, store)
	ctx := userCtx(t, 7)

	out, err := c.Seckill(ctx, 10)
	require.NoError(t, err)
	require.True(t, out.Succeeded())

	// 第二单被一人一单拦下，库存不再变化
	out, err = c.Seckill(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, ReasonDuplicateOrder, out.Reason)
	assert.Equal(t, 1, store.orderCount())
	assert.Equal(t, int64(99), store.stock(10))
}

func TestSeckill_NoOversell(t *testing.T) {
	store := newFakeStore(openVoucher(10, 1))
	c, _ := newTestCoordinator(t, store)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		soldOut   int
	)
	for i := int64(1); i <= 50; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			out, err := c.Seckill(userCtx(t, userID), 10)
			assert.NoError(t, err)

			mu.Lock()
			defer mu.Unlock()
			switch out.Reason {
			case ReasonNone:
				succeeded++
			case ReasonSoldOut:
				soldOut++
			default:
				t.Errorf("unexpected reason %q", out.Reason)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 49, soldOut)
	assert.Equal(t, 1, store.orderCount())
	assert.Equal(t, int64(0), store.stock(10))
}

func TestSeckill_OnePerUserUnderConcurrency(t *testing.T) {
	store := newFakeStore(openVoucher(10, 100))
	c, _ := newTestCoordinator(t, store)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := c.Seckill(userCtx(t, 7), 10)
			assert.NoError(t, err)

			mu.Lock()
			defer mu.Unlock()
			switch out.Reason {
			case ReasonNone:
				succeeded++
			case ReasonOrderInFlight, ReasonDuplicateOrder:
				// 同一用户的其余并发请求：抢锁失败或锁内查重拦下
			default:
				t.Errorf("unexpected reason %q", out.Reason)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, store.orderCount())
	assert.Equal(t, int64(99), store.stock(10))
}

func TestSeckill_OrderIDsStrictlyIncreasing(t *testing.T) {
	store := newFakeStore(openVoucher(10, 100))
	c, mr := newTestCoordinator(t, store)

	var prev int64
	for i := int64(1); i <= 5; i++ {
		out, err := c.Seckill(userCtx(t, i), 10)
		require.NoError(t, err)
		require.True(t, out.Succeeded())
		assert.Greater(t, out.OrderID, prev)
		prev = out.OrderID
	}

	// 序列来自 Redis 的按日计数器
	key := fmt.Sprintf("inc:%s:%s", orderBiz, time.Now().UTC().Format("2006:01:02"))
	seq, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "5", seq)
}

func TestSeckill_StoreErrorRollsBackAndReleasesLock(t *testing.T) {
	store := newFakeStore(openVoucher(10, 100))
	store.createErr = errors.New("db down")
	c, mr := newTestCoordinator(t, store)

	_, err := c.Seckill(userCtx(t, 7), 10)
	require.Error(t, err)

	// 事务回滚：库存未丢，订单未写
	assert.Equal(t, int64(100), store.stock(10))
	assert.Equal(t, 0, store.orderCount())
	// 用户锁已释放，用户可以重试
	assert.False(t, mr.Exists("lock:seckill:order:7"))

	store.mu.Lock()
	store.createErr = nil
	store.mu.Unlock()
	out, err := c.Seckill(userCtx(t, 7), 10)
	require.NoError(t, err)
	assert.True(t, out.Succeeded())
}

func TestSeckill_CountErrorSurfaced(t *testing.T) {
	store := newFakeStore(openVoucher(10, 100))
	boom := errors.New("db down")
	store.countErr = boom
	c, _ := newTestCoordinator(t, store)

	_, err := c.Seckill(userCtx(t, 7), 10)
	assert.ErrorIs(t, err, boom)
}
