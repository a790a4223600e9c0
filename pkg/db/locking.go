package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IsPostgres reports whether the handle talks to postgres.
func IsPostgres(conn *gorm.DB) bool {
	return conn != nil && conn.Dialector != nil && conn.Dialector.Name() == "postgres"
}

// ForUpdate adds a row lock on postgres. sqlite serializes writers already,
// so the clause is skipped there.
func ForUpdate(conn *gorm.DB) *gorm.DB {
	if IsPostgres(conn) {
		return conn.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return conn
}
