// Package storetest opens ledger stores backed by in-memory SQLite for tests.
package storetest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/pizzaledger/internal/ledgerstore"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// New returns a started store over a database private to t.
func New(t testing.TB) (*ledgerstore.Store, *gorm.DB) {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := ledgerstore.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := ledgerstore.New(ledgerstore.Params{DB: db, Log: zap.NewNop()})
	if err := store.Start(context.Background()); err != nil {
		t.Fatalf("start store: %v", err)
	}
	t.Cleanup(func() { _ = store.Stop(context.Background()) })
	return store, db
}

// FailWrites makes every insert on db fail until the test ends.
func FailWrites(t testing.TB, db *gorm.DB, err error) {
	t.Helper()
	name := "storetest:fail_create"
	if regErr := db.Callback().Create().Before("gorm:create").Register(name, func(tx *gorm.DB) {
		_ = tx.AddError(err)
	}); regErr != nil {
		t.Fatalf("register callback: %v", regErr)
	}
	t.Cleanup(func() { _ = db.Callback().Create().Remove(name) })
}

// Disconnected returns a store with no database behind it.
func Disconnected() *ledgerstore.Store {
	return ledgerstore.New(ledgerstore.Params{Log: zap.NewNop()})
}
