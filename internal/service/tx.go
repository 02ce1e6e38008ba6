package service

import "context"

// TxRepositories provides transaction-bound repositories.
type TxRepositories interface {
	Conversations() ConversationRepositoryInterface
	Messages() MessageRepositoryInterface
	Jobs() JobRepositoryInterface
	Documents() DocumentRepositoryInterface
	Chunks() ChunkRepositoryInterface
}

// TxRunner executes a function within a transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}
