package repository

import (
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/opensource-logistics/stratum/internal/domain"
)

// openMySQL opens a MySQL database connection.
// parseTime makes DATETIME columns scan into time.Time; multiStatements
// lets the migration batches run as written.
func openMySQL(cfg domain.RepositoryConfig) (*sql.DB, error) {
	host := cfg.MySQLHost
	if host == "" {
		host = "localhost"
	}

	port := cfg.MySQLPort
	if port == 0 {
		port = 3306
	}

	dbname := cfg.MySQLDB
	if dbname == "" {
		dbname = "stratum"
	}

	dsn := fmt.Sprintf(
		"%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true&loc=UTC",
		cfg.MySQLUser,
		cfg.MySQLPassword,
		host,
		port,
		dbname,
	)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql database: %w", err)
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping mysql database: %w", err)
	}

	return db, nil
}
