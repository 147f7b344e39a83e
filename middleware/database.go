package middleware

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ariebrainware/medibot/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const dbContextKey = "db"

// ErrNoDatabase is returned when no database handle was injected.
var ErrNoDatabase = errors.New("database connection not available")

// Scope selects how a unit of work talks to the database.
type Scope int

const (
	// ScopeReadOnly runs on a plain session without a transaction.
	ScopeReadOnly Scope = iota
	// ScopeReadWrite runs inside a transaction that commits when the work
	// returns nil and rolls back otherwise.
	ScopeReadWrite
)

// DatabaseMiddleware stores db in the request context for handlers.
func DatabaseMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(dbContextKey, db)
		c.Next()
	}
}

// GetDB returns the request's database handle, or nil when none was injected.
func GetDB(c *gin.Context) *gorm.DB {
	v, ok := c.Get(dbContextKey)
	if !ok {
		return nil
	}
	db, _ := v.(*gorm.DB)
	return db
}

// WithScope runs fn against db in the given scope. In ScopeReadWrite a panic
// inside fn rolls the transaction back and is re-raised.
func WithScope(ctx context.Context, db *gorm.DB, scope Scope, fn func(tx *gorm.DB) error) (err error) {
	if db == nil {
		return ErrNoDatabase
	}
	session := db.WithContext(ctx)
	if scope == ScopeReadOnly {
		return fn(session)
	}

	tx := session.Begin()
	if tx.Error != nil {
		return fmt.Errorf("begin transaction: %w", tx.Error)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback().Error; rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			util.Logger().Error().Err(rbErr).Msg("transaction rollback failed")
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

// RunScoped is WithScope bound to the handle injected by DatabaseMiddleware
// and to the request's context.
func RunScoped(c *gin.Context, scope Scope, fn func(tx *gorm.DB) error) error {
	return WithScope(c.Request.Context(), GetDB(c), scope, fn)
}
