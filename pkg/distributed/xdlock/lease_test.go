package xdlock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLeaseLock_Validation(t *testing.T) {
	client, _ := newTestClient(t)

	_, err := NewLeaseLock(nil, "x")
	assert.ErrorIs(t, err, ErrNilClient)

	_, err = NewLeaseLock(client, " ")
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestLeaseLock_AcquireAndRelease(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	lock, err := NewLeaseLock(client, "seckill:order:1")
	require.NoError(t, err)

	ok, err := lock.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("lock:seckill:order:1"))

	require.NoError(t, lock.Unlock(ctx))
	assert.False(t, mr.Exists("lock:seckill:order:1"))
}

func TestLeaseLock_Contention(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	l1, err := NewLeaseLock(client, "seckill:order:1")
	require.NoError(t, err)
	l2, err := NewLeaseLock(client, "seckill:order:1")
	require.NoError(t, err)

	ok, err := l1.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	t.Cleanup(func() { _ = l1.Unlock(context.Background()) })

	// 单次尝试模式下立即返回 (false, nil)
	ok, err = l2.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLeaseLock_BoundedWait(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	l1, err := NewLeaseLock(client, "seckill:order:1")
	require.NoError(t, err)
	l2, err := NewLeaseLock(client, "seckill:order:1",
		WithTries(3), WithRetryDelay(50*time.Millisecond))
	require.NoError(t, err)

	ok, err := l1.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	t.Cleanup(func() { _ = l1.Unlock(context.Background()) })

	// 重试耗尽后返回 (false, nil)，等待时间有界
	start := time.Now()
	ok, err = l2.TryLock(ctx)
	elapsed := time.Since(start)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestLeaseLock_Reentrant(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	lock, err := NewLeaseLock(client, "seckill:order:1")
	require.NoError(t, err)

	// 同一逻辑持有者可嵌套获取
	for i := 0; i < 3; i++ {
		ok, err := lock.TryLock(ctx)
		require.NoError(t, err)
		require.True(t, ok)
	}

	// 持有计数归零前 key 不删除
	require.NoError(t, lock.Unlock(ctx))
	require.NoError(t, lock.Unlock(ctx))
	assert.True(t, mr.Exists("lock:seckill:order:1"))

	require.NoError(t, lock.Unlock(ctx))
	assert.False(t, mr.Exists("lock:seckill:order:1"))

	// 多余的释放返回 ErrNotLocked
	assert.ErrorIs(t, lock.Unlock(ctx), ErrNotLocked)
}

func TestLeaseLock_WatchdogExtendsLease(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	lock, err := NewLeaseLock(client, "seckill:order:1",
		WithExpiry(200*time.Millisecond))
	require.NoError(t, err)

	ok, err := lock.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// 消耗掉大部分租约
	mr.FastForward(150 * time.Millisecond)
	// 等待 watchdog 至少续期一次（周期约为租约的 1/3）
	time.Sleep(200 * time.Millisecond)
	// 若未续期，此处已超出初始租约，key 应已过期
	mr.FastForward(150 * time.Millisecond)
	assert.True(t, mr.Exists("lock:seckill:order:1"))

	require.NoError(t, lock.Unlock(ctx))
	assert.False(t, mr.Exists("lock:seckill:order:1"))
}

func TestLeaseLock_CrashedHolderLosesLock(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	l1, err := NewLeaseLock(client, "seckill:order:1",
		WithExpiry(200*time.Millisecond))
	require.NoError(t, err)

	ok, err := l1.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// 模拟持有者崩溃：停掉续期但不释放
	l1.mu.Lock()
	close(l1.stop)
	<-l1.done
	l1.held = 0
	l1.mu.Unlock()

	// 续期停止后租约自然到期，锁可被其他持有者接管
	mr.FastForward(300 * time.Millisecond)
	l2, err := NewLeaseLock(client, "seckill:order:1")
	require.NoError(t, err)
	ok, err = l2.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, l2.Unlock(ctx))
}

func TestLeaseLock_Unlock_NotHeld(t *testing.T) {
	client, _ := newTestClient(t)

	lock, err := NewLeaseLock(client, "seckill:order:1")
	require.NoError(t, err)

	assert.ErrorIs(t, lock.Unlock(context.Background()), ErrNotLocked)
}
