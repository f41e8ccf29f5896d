package database

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Column describes a column of a table created by CreateTable.
type Column struct {
	Name string
	Type string
}

// Quote quotes an identifier for the connected dialect.
func (d *DB) Quote(name string) string {
	var b strings.Builder
	d.GormDB.Dialector.QuoteTo(&b, name)
	return b.String()
}

// HasTable reports whether table exists.
func (d *DB) HasTable(ctx context.Context, table string) bool {
	return d.WithContext(ctx).Migrator().HasTable(table)
}

// DropTable drops table if it exists.
func (d *DB) DropTable(ctx context.Context, table string) error {
	if err := d.WithContext(ctx).Migrator().DropTable(table); err != nil {
		return FromDatabase(err, "drop table "+table)
	}
	return nil
}

// CreateTable creates table with columns. primaryKey may be empty.
func CreateTable(tx *gorm.DB, table string, columns []Column, primaryKey []string) error {
	quote := func(name string) string {
		var b strings.Builder
		tx.Dialector.QuoteTo(&b, name)
		return b.String()
	}
	defs := make([]string, 0, len(columns)+1)
	for _, c := range columns {
		defs = append(defs, quote(c.Name)+" "+c.Type)
	}
	if len(primaryKey) > 0 {
		keys := make([]string, len(primaryKey))
		for i, k := range primaryKey {
			keys[i] = quote(k)
		}
		defs = append(defs, "PRIMARY KEY ("+strings.Join(keys, ", ")+")")
	}
	stmt := fmt.Sprintf("CREATE TABLE %s (%s)", quote(table), strings.Join(defs, ", "))
	if err := tx.Exec(stmt).Error; err != nil {
		return FromDatabase(err, "create table "+table)
	}
	return nil
}

// EnsureTable creates table unless it already exists. With replace an
// existing table is dropped and created again.
func EnsureTable(tx *gorm.DB, table string, columns []Column, primaryKey []string, replace bool) error {
	m := tx.Migrator()
	if m.HasTable(table) {
		if !replace {
			return nil
		}
		if err := m.DropTable(table); err != nil {
			return FromDatabase(err, "drop table "+table)
		}
	}
	return CreateTable(tx, table, columns, primaryKey)
}

// Insert inserts rows into table in one statement.
func Insert(tx *gorm.DB, table string, rows []map[string]any) error {
	if len(rows) == 0 {
		return nil
	}
	if err := tx.Table(table).Create(&rows).Error; err != nil {
		return FromDatabase(err, "insert into "+table)
	}
	return nil
}

// Count returns the number of rows in table.
func (d *DB) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := d.WithContext(ctx).Table(table).Count(&n).Error; err != nil {
		return 0, FromDatabase(err, "count "+table)
	}
	return n, nil
}

// Rows reads every row of table ordered by orderBy, if given.
func (d *DB) Rows(ctx context.Context, table, orderBy string) ([]map[string]any, error) {
	q := d.WithContext(ctx).Table(table)
	if orderBy != "" {
		q = q.Order(d.Quote(orderBy))
	}
	var out []map[string]any
	if err := q.Find(&out).Error; err != nil {
		return nil, FromDatabase(err, "select from "+table)
	}
	return out, nil
}
