package credentials

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	dserrors "github.com/systmms/dbcreds/internal/errors"
)

const redactedPassword = "****"

// ConnectionString renders c as
//
//	{dialect}+{driver}://{user}:{password}@{host}:{port}/{database}
//
// The database segment is empty when c has no database. The result embeds
// the password in clear text; see RedactedConnectionString for display.
func (c Credential) ConnectionString() string {
	return c.connectionString(c.password)
}

// RedactedConnectionString is ConnectionString with the password masked
func (c Credential) RedactedConnectionString() string {
	return c.connectionString(redactedPassword)
}

func (c Credential) connectionString(password string) string {
	base := fmt.Sprintf("%s+%s://%s:%s@%s:%d/", c.dialect, c.driver, c.user, password, c.host, c.port)
	if db, ok := c.Database(); ok {
		return base + db
	}
	return base
}

// DriverDSN renders c as a data source name for the Go database/sql driver
// matching its dialect: go-sql-driver/mysql for mysql and mariadb, lib/pq
// for postgres.
func (c Credential) DriverDSN() (string, error) {
	return c.driverDSN(c.password)
}

// RedactedDriverDSN is DriverDSN with the password masked. The mask is set
// before the driver quotes anything, so no escaped form of the password can
// survive in the output.
func (c Credential) RedactedDriverDSN() (string, error) {
	return c.driverDSN(redactedPassword)
}

func (c Credential) driverDSN(password string) (string, error) {
	db, _ := c.Database()
	addr := net.JoinHostPort(c.host, strconv.Itoa(c.port))

	switch strings.ToLower(c.dialect) {
	case "mysql", "mariadb":
		cfg := mysql.NewConfig()
		cfg.User = c.user
		cfg.Passwd = password
		cfg.Net = "tcp"
		cfg.Addr = addr
		cfg.DBName = db
		cfg.ParseTime = true
		return cfg.FormatDSN(), nil

	case "postgresql", "postgres":
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(c.user, password),
			Host:   addr,
		}
		if db != "" {
			u.Path = "/" + db
		}
		dsn, err := pq.ParseURL(u.String())
		if err != nil {
			return "", &dserrors.ConfigurationError{
				Message: dserrors.MsgInvalidField,
				Field:   "host",
				Err:     err,
			}
		}
		return dsn, nil

	default:
		return "", &dserrors.ConfigurationError{
			Message: dserrors.MsgUnsupportedDialect,
			Field:   c.dialect,
		}
	}
}
