package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"apartment-portal/internal/dataset"
)

// GormDB is a gorm backed dataset provider for MySQL
type GormDB struct {
	db *gorm.DB
}

// NewGormDB connects to MySQL and pings it
func NewGormDB(host, port, user, password, dbname string) (*GormDB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		user, password, host, port, dbname)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "mysql: open")
	}

	// Test connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, eris.Wrap(err, "mysql: get sql.DB")
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, eris.Wrap(err, "mysql: ping")
	}

	return &GormDB{db: db}, nil
}

// NewGormDBFromDB creates a GormDB wrapper from an existing gorm.DB instance
func NewGormDBFromDB(db *gorm.DB) *GormDB {
	return &GormDB{db: db}
}

// DB returns the underlying gorm.DB instance
func (gdb *GormDB) DB() *gorm.DB {
	return gdb.db
}

// Close closes the underlying connection pool
func (gdb *GormDB) Close() error {
	sqlDB, err := gdb.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Fetch reads every row of the named table or view
func (gdb *GormDB) Fetch(ctx context.Context, name string) (*dataset.RawTable, error) {
	if _, err := quoteIdentifier(name); err != nil {
		return nil, err
	}

	db := gdb.db.WithContext(ctx)
	if !db.Migrator().HasTable(name) {
		return nil, eris.Wrapf(dataset.ErrResourceUnavailable, "mysql table not found: %s", name)
	}

	rows, err := db.Table(name).Rows()
	if err != nil {
		return nil, eris.Wrapf(err, "mysql: select %s", name)
	}
	defer rows.Close()

	return scanRows(rows)
}
