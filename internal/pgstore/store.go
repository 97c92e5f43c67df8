// Package pgstore 提供 xseckill 存储接口的 PostgreSQL 实现。
//
// 事务通过 context 传递：InTx 把 pgx.Tx 注入 ctx，存储方法自动选择
// 事务句柄或连接池执行，调用方无需感知。
package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shiyi1001/hm-dianping/pkg/business/xseckill"
)

// ErrNilPool 连接池为空。
var ErrNilPool = errors.New("pgstore: nil pgx pool")

// =============================================================================
// SQL
// =============================================================================

const (
	sqlGetVoucher = `
SELECT voucher_id, stock, begin_time, end_time
FROM tb_seckill_voucher
WHERE voucher_id = $1`

	// 条件扣减：stock > 0 才更新，由数据库原子性兜住超卖
	sqlDecrementStock = `
UPDATE tb_seckill_voucher
SET stock = stock - 1
WHERE voucher_id = $1 AND stock > 0`

	sqlCountOrders = `
SELECT count(*)
FROM tb_voucher_order
WHERE user_id = $1 AND voucher_id = $2`

	sqlInsertOrder = `
INSERT INTO tb_voucher_order (id, user_id, voucher_id, create_time)
VALUES ($1, $2, $3, $4)`
)

// =============================================================================
// Store
// =============================================================================

var (
	_ xseckill.VoucherStore = (*Store)(nil)
	_ xseckill.OrderStore   = (*Store)(nil)
	_ xseckill.TxRunner     = (*Store)(nil)
)

// querier 是 *pgxpool.Pool 与 pgx.Tx 的公共子集。
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// txKey 事务句柄的 context key。
type txKey struct{}

// Store 基于 pgx 连接池的券/订单存储。
type Store struct {
	pool *pgxpool.Pool
}

// New 创建存储。
func New(pool *pgxpool.Pool) (*Store, error) {
	if pool == nil {
		return nil, ErrNilPool
	}
	return &Store{pool: pool}, nil
}

// q 返回当前应使用的执行器：ctx 携带事务时用事务，否则用连接池。
func (s *Store) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return s.pool
}

// GetVoucher 按 ID 读取秒杀券。
func (s *Store) GetVoucher(ctx context.Context, voucherID int64) (xseckill.Voucher, bool, error) {
	var v xseckill.Voucher
	err := s.q(ctx).QueryRow(ctx, sqlGetVoucher, voucherID).
		Scan(&v.ID, &v.Stock, &v.BeginTime, &v.EndTime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return xseckill.Voucher{}, false, nil
		}
		return xseckill.Voucher{}, false, fmt.Errorf("pgstore: get voucher %d: %w", voucherID, err)
	}
	return v, true, nil
}

// DecrementStock 原子条件扣减库存，返回扣减是否发生。
func (s *Store) DecrementStock(ctx context.Context, voucherID int64) (bool, error) {
	tag, err := s.q(ctx).Exec(ctx, sqlDecrementStock, voucherID)
	if err != nil {
		return false, fmt.Errorf("pgstore: decrement stock %d: %w", voucherID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// CountByUserAndVoucher 统计某用户在某券上的订单数。
func (s *Store) CountByUserAndVoucher(ctx context.Context, userID, voucherID int64) (int64, error) {
	var n int64
	if err := s.q(ctx).QueryRow(ctx, sqlCountOrders, userID, voucherID).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgstore: count orders user %d voucher %d: %w", userID, voucherID, err)
	}
	return n, nil
}

// CreateOrder 写入秒杀订单。
func (s *Store) CreateOrder(ctx context.Context, order xseckill.Order) error {
	_, err := s.q(ctx).Exec(ctx, sqlInsertOrder,
		order.ID, order.UserID, order.VoucherID, order.CreatedAt)
	if err != nil {
		return fmt.Errorf("pgstore: create order %d: %w", order.ID, err)
	}
	return nil
}

// InTx 在单个事务内执行 fn：fn 报错则回滚，否则提交。
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgstore: begin tx: %w", err)
	}
	// 提交成功后的 Rollback 是 no-op
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("pgstore: commit tx: %w", err)
	}
	return nil
}
