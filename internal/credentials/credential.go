package credentials

import (
	"fmt"

	dserrors "github.com/systmms/dbcreds/internal/errors"
	"github.com/systmms/dbcreds/internal/logging"
)

// Defaults applied by New to fields the source did not supply.
const (
	DefaultHost    = "localhost"
	DefaultPort    = 1057
	DefaultDriver  = "pymysql"
	DefaultDialect = "mysql"
)

// Fields is the raw input to New. Absent fields take their defaults.
type Fields struct {
	User     Optional[string]
	Password Optional[string]
	Host     Optional[string]
	Port     Optional[int]
	Database Optional[string]
	Driver   Optional[string]
	Dialect  Optional[string]
}

// Credential is the validated set of parameters needed to connect to a
// database. It cannot be modified after New returns it.
type Credential struct {
	user     string
	password string
	host     string
	port     int
	database Optional[string]
	driver   string
	dialect  string
}

// New applies defaults to f and validates the result. User and password
// must be present and non-empty; port must be a valid TCP port.
func New(f Fields) (Credential, error) {
	user, ok := f.User.Get()
	if !ok || user == "" {
		return Credential{}, missingField("user")
	}
	password, ok := f.Password.Get()
	if !ok || password == "" {
		return Credential{}, missingField("password")
	}

	port := f.Port.Or(DefaultPort)
	if port < 1 || port > 65535 {
		return Credential{}, &dserrors.ConfigurationError{
			Message: dserrors.MsgInvalidField,
			Field:   "port",
		}
	}

	return Credential{
		user:     user,
		password: password,
		host:     f.Host.Or(DefaultHost),
		port:     port,
		database: f.Database,
		driver:   f.Driver.Or(DefaultDriver),
		dialect:  f.Dialect.Or(DefaultDialect),
	}, nil
}

func missingField(name string) error {
	return &dserrors.ConfigurationError{
		Message: dserrors.MsgMissingField,
		Field:   name,
	}
}

func (c Credential) User() string     { return c.user }
func (c Credential) Password() string { return c.password }
func (c Credential) Host() string     { return c.host }
func (c Credential) Port() int        { return c.port }
func (c Credential) Driver() string   { return c.driver }
func (c Credential) Dialect() string  { return c.dialect }

// Database returns the database name and whether one was supplied
func (c Credential) Database() (string, bool) {
	return c.database.Get()
}

// String describes the credential with the password redacted
func (c Credential) String() string {
	db, _ := c.Database()
	return fmt.Sprintf("Credential{user=%s password=%s host=%s port=%d database=%s driver=%s dialect=%s}",
		c.user, logging.Secret(c.password), c.host, c.port, db, c.driver, c.dialect)
}

// GoString keeps %#v from printing the password
func (c Credential) GoString() string {
	return c.String()
}
