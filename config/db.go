package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"facility-backend/logger"
	"facility-backend/store"

	drivermysql "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func mysqlDSNFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	dbName := strings.TrimPrefix(u.Path, "/")
	if dbName == "" {
		return "", fmt.Errorf("mysql url missing database name")
	}
	port := u.Port()
	if port == "" {
		port = "3306"
	}

	c := drivermysql.NewConfig()
	c.User = u.User.Username()
	c.Passwd, _ = u.User.Password()
	c.Net = "tcp"
	c.Addr = u.Hostname() + ":" + port
	c.DBName = dbName
	c.ParseTime = true
	c.Loc = time.Local
	c.Params = map[string]string{"charset": "utf8mb4"}
	for key, values := range u.Query() {
		switch key {
		case "parseTime", "loc":
			continue
		}
		if len(values) > 0 {
			c.Params[key] = values[0]
		}
	}
	return c.FormatDSN(), nil
}

// MySQLDSN resolves the DSN from MYSQL_URL/DATABASE_URL (mysql:// URL or raw
// DSN) or else from the DB_* settings.
func (c DBConfig) MySQLDSN() (string, error) {
	if c.URL != "" {
		if strings.HasPrefix(c.URL, "mysql://") {
			return mysqlDSNFromURL(c.URL)
		}
		return c.URL, nil
	}

	dc := drivermysql.NewConfig()
	dc.User = c.User
	dc.Passwd = c.Password
	dc.Net = "tcp"
	dc.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	dc.DBName = c.Name
	dc.ParseTime = true
	dc.Loc = time.Local
	dc.Params = map[string]string{"charset": "utf8mb4"}
	return dc.FormatDSN(), nil
}

// PostgresDSN returns DATABASE_URL as is, or a key/value DSN from DB_*.
func (c DBConfig) PostgresDSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

func (c DBConfig) dialector() (gorm.Dialector, error) {
	switch c.Driver {
	case "mysql":
		dsn, err := c.MySQLDSN()
		if err != nil {
			return nil, err
		}
		return mysql.Open(dsn), nil
	case "postgres":
		return postgres.Open(c.PostgresDSN()), nil
	case "sqlite":
		return sqlite.Open(c.SQLitePath), nil
	}
	return nil, fmt.Errorf("driver %q has no SQL dialector", c.Driver)
}

// ConnectDatabase opens the configured SQL database and migrates the tables
// when AutoMigrate is set.
func ConnectDatabase(c DBConfig, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := c.dialector()
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.NewGormLogger(log, c.SlowQuery)})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", c.Driver, err)
	}

	if c.Driver == "sqlite" {
		// sqlite allows one writer at a time
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	if c.AutoMigrate {
		if err := store.NewGormStore(db).AutoMigrate(); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
		log.Info("database migrated", zap.String("driver", c.Driver))
	}
	return db, nil
}

// OpenStore returns the store selected by the driver, with a close function.
func OpenStore(c DBConfig, log *zap.Logger) (store.Store, func() error, error) {
	if c.Driver == "memory" {
		log.Warn("using in-memory store; data is lost on exit")
		return store.NewMemoryStore(), func() error { return nil }, nil
	}

	db, err := ConnectDatabase(c, log)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	log.Info("database connection established", zap.String("driver", c.Driver))
	return store.NewGormStore(db), sqlDB.Close, nil
}
