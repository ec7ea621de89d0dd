package uow

import (
	"context"

	domainchat "talenthub/internal/domain/chat"
)

// UnitOfWork coordinates the chat repositories inside a transaction boundary.
// Every operation that touches both stores (message append, mark-read, DM
// creation) runs through one of these so partial writes never become visible.
type UnitOfWork interface {
	Conversations() domainchat.ConversationRepository
	Messages() domainchat.MessageRepository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	// InjectContext makes the transaction visible to repositories that read
	// it from context (the Mongo implementation stores its session there).
	InjectContext(ctx context.Context) context.Context
}

// Factory starts unit of work instances.
type Factory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}
