package inventory

import (
	"context"

	"github.com/mfgorder/backend/internal/domain/inventory"
)

// TransactionScope runs one unit of ledger work atomically. A non-nil error
// from fn, or a panic inside it, rolls back every write.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories hands out repositories bound to the running
// transaction.
//
// Lock order inside a transaction is always the project row first, then its
// batch rows. Callers touching several projects lock them in ascending ID order.
type TransactionalRepositories interface {
	ProjectRepo() inventory.ProjectRepository
	EntryRepo() inventory.WarehouseEntryRepository
	PackingRepo() inventory.PackingListRepository
}

// Repositories is a fixed set of ledger repositories
type Repositories struct {
	Projects inventory.ProjectRepository
	Entries  inventory.WarehouseEntryRepository
	Packing  inventory.PackingListRepository
}

func (r Repositories) ProjectRepo() inventory.ProjectRepository     { return r.Projects }
func (r Repositories) EntryRepo() inventory.WarehouseEntryRepository { return r.Entries }
func (r Repositories) PackingRepo() inventory.PackingListRepository  { return r.Packing }

// InlineScope calls fn directly with its repositories, without any
// transaction. Unit tests over mocked repositories use it.
type InlineScope struct {
	repos Repositories
}

func NewInlineScope(
	projects inventory.ProjectRepository,
	entries inventory.WarehouseEntryRepository,
	packing inventory.PackingListRepository,
) *InlineScope {
	return &InlineScope{repos: Repositories{Projects: projects, Entries: entries, Packing: packing}}
}

func (s *InlineScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s.repos)
}

var (
	_ TransactionScope          = (*InlineScope)(nil)
	_ TransactionalRepositories = Repositories{}
)
