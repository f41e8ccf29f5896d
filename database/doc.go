// Package database wraps GORM connections for the SQL sink.
//
// Open picks the dialect from Config.Driver:
//
//	db, err := database.Open(ctx, database.Config{
//	    Driver: database.DriverSQLite,
//	    DSN:    "file:out.db",
//	}, log)
//
// SQLite uses the pure Go modernc.org/sqlite driver, PostgreSQL lib/pq and
// MySQL go-sql-driver/mysql. Tables are created from column lists rather
// than models since resource schemas are only known at run time.
package database
