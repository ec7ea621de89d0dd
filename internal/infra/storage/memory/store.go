package memory

import (
	"context"
	"errors"
	"sync"

	"talenthub/internal/app/uow"
	domainchat "talenthub/internal/domain/chat"
)

// Store keeps conversations and messages in memory. It backs the service in
// dev mode and doubles as the test fixture for the transactional paths.
type Store struct {
	mu             sync.Mutex
	conversations  map[string]*domainchat.Conversation
	pairIndex      map[string]string
	messages       map[string]*domainchat.Message
	byConversation map[string][]string

	failConversationWrite error
}

func NewStore() *Store {
	return &Store{
		conversations:  make(map[string]*domainchat.Conversation),
		pairIndex:      make(map[string]string),
		messages:       make(map[string]*domainchat.Message),
		byConversation: make(map[string][]string),
	}
}

// FailNextConversationWrite arms a one-shot fault on the next conversation
// mutation inside a unit of work. Tests use it to prove append atomicity.
func (s *Store) FailNextConversationWrite(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failConversationWrite = err
}

func (s *Store) takeConversationFault() error {
	err := s.failConversationWrite
	s.failConversationWrite = nil
	return err
}

// Factory opens journal-based units of work over the shared store.
type Factory struct {
	Store *Store
}

var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Begin locks the store for the duration of the unit. Units are short-lived
// single logical writes, so one big lock keeps concurrent duplicate creations
// and interleaved appends serialized without finer bookkeeping.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Store == nil {
		return nil, ErrFactoryMisconfigured
	}
	f.Store.mu.Lock()
	return &Unit{store: f.Store}, nil
}

// Unit is a uow.UnitOfWork holding the store lock and an undo journal.
// Rollback replays the journal in reverse; Commit discards it.
type Unit struct {
	store   *Store
	journal []func()
	closed  bool
}

func (u *Unit) Conversations() domainchat.ConversationRepository {
	return &conversationRepository{unit: u}
}

func (u *Unit) Messages() domainchat.MessageRepository {
	return &messageRepository{unit: u}
}

func (u *Unit) Commit(ctx context.Context) error {
	if u.closed {
		return nil
	}
	u.closed = true
	u.journal = nil
	u.store.mu.Unlock()
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	if u.closed {
		return nil
	}
	u.closed = true
	for i := len(u.journal) - 1; i >= 0; i-- {
		u.journal[i]()
	}
	u.journal = nil
	u.store.mu.Unlock()
	return nil
}

func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return ctx
}

func (u *Unit) record(undo func()) {
	u.journal = append(u.journal, undo)
}
