package repository

import "context"

// txState общее состояние открытой транзакции для любого бэкенда
type txState struct {
	afterCommit []func()
}

type txStateKey struct{}

func beginTxState(ctx context.Context) (context.Context, *txState) {
	st := &txState{}
	return context.WithValue(ctx, txStateKey{}, st), st
}

// committed запускает отложенные действия в порядке регистрации
func (st *txState) committed() {
	for _, fn := range st.afterCommit {
		fn()
	}
}

// InTransaction сообщает, выполняется ли ctx внутри WithTransaction
func InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txStateKey{}).(*txState)
	return ok
}

// AfterCommit откладывает fn до успешного коммита внешней транзакции.
// Вне транзакции fn выполняется сразу; при откате не выполняется вовсе.
func AfterCommit(ctx context.Context, fn func()) {
	if st, ok := ctx.Value(txStateKey{}).(*txState); ok {
		st.afterCommit = append(st.afterCommit, fn)
		return
	}
	fn()
}
