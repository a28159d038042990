package persistence

import (
	"context"
	"database/sql"

	appinv "github.com/mfgorder/backend/internal/application/inventory"
	"gorm.io/gorm"
)

// GormTransactionScope runs ledger work inside one GORM transaction
type GormTransactionScope struct {
	db *gorm.DB
}

func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute hands fn repositories bound to a fresh transaction, committed only
// when fn returns nil
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(appinv.Repositories{
			Projects: NewGormProjectRepository(tx),
			Entries:  NewGormWarehouseEntryRepository(tx),
			Packing:  NewGormPackingListRepository(tx),
		})
	}, txOptions(s.db)...)
}

// txOptions pins MySQL to READ COMMITTED. Under its default REPEATABLE READ
// the first plain read fixes the snapshot, and a reconcile that locks a
// project afterwards would sum packing lines as of that older snapshot.
// Postgres and SQLite already read committed rows.
func txOptions(db *gorm.DB) []*sql.TxOptions {
	if db.Dialector.Name() != "mysql" {
		return nil
	}
	return []*sql.TxOptions{{Isolation: sql.LevelReadCommitted}}
}

var _ appinv.TransactionScope = (*GormTransactionScope)(nil)
