package mongoutil

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// TxnFunc 在一个多文档事务里执行；所有集合操作必须用传入的 SessionContext。
type TxnFunc func(sc mongo.SessionContext) error

// TxnRunner 是发送管道依赖的事务入口；单测时可注入桩实现。
type TxnRunner func(ctx context.Context, fn TxnFunc) error

// WriteConflictCode Mongo 写冲突的服务端错误码。
const WriteConflictCode = 112

// WithTransaction 开启事务执行 fn：fn 报错则 Abort，否则 Commit。
// 不在内部做重试——冲突判定和重试节奏由调用方（发送管道）控制。
func (c *Client) WithTransaction(ctx context.Context, fn TxnFunc) error {
	sess, err := c.db.Client().StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	return mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sess.StartTransaction(); err != nil {
			return err
		}
		if err := fn(sc); err != nil {
			_ = sess.AbortTransaction(sc)
			return err
		}
		if err := sess.CommitTransaction(sc); err != nil {
			_ = sess.AbortTransaction(sc)
			return err
		}
		return nil
	})
}

// IsWriteConflict 判定两个并发事务修改同一文档时 Mongo 报出的冲突。
// 事务内的冲突会带 TransientTransactionError 标签；裸的条件更新冲突给 112。
func IsWriteConflict(err error) bool {
	if err == nil {
		return false
	}
	var se mongo.ServerError
	if errors.As(err, &se) {
		return se.HasErrorCode(WriteConflictCode) ||
			se.HasErrorLabel("TransientTransactionError")
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		return ce.Code == WriteConflictCode || ce.HasErrorLabel("TransientTransactionError")
	}
	return false
}
