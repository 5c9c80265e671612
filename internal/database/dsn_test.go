package database

import (
	"net/url"
	"testing"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSNDefaults(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{User: "campus", Name: "campus"})
	require.NoError(t, err)

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	require.Equal(t, "postgres", u.Scheme)
	require.Equal(t, "localhost:5432", u.Host)
	require.Equal(t, "/campus", u.Path)
	require.Equal(t, "campus", u.User.Username())
	require.Equal(t, "disable", u.Query().Get("sslmode"))
	require.Equal(t, "campusconnect", u.Query().Get("application_name"))
}

func TestBuildPostgresDSNEscapesCredentialsAndOptions(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{
		User:     "team lead",
		Password: "p@ss:w/rd",
		Name:     "db",
		Host:     "db.example.com",
		Port:     6543,
		Options: map[string]string{
			"sslmode":     "require",
			"search_path": "public",
		},
	})
	require.NoError(t, err)

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	require.Equal(t, "db.example.com:6543", u.Host)
	require.Equal(t, "team lead", u.User.Username())
	password, ok := u.User.Password()
	require.True(t, ok)
	require.Equal(t, "p@ss:w/rd", password)
	require.Equal(t, "require", u.Query().Get("sslmode"))
	require.Equal(t, "public", u.Query().Get("search_path"))
}

func TestBuildPostgresDSNValidatesOverride(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{DSN: "postgres://campus@localhost:5432/campus"})
	require.NoError(t, err)
	require.Equal(t, "postgres://campus@localhost:5432/campus", dsn)

	_, err = buildPostgresDSN(Config{DSN: "postgres://campus@localhost:notaport/campus"})
	require.Error(t, err)
}

func TestBuildPostgresDSNRequiresUserAndName(t *testing.T) {
	_, err := buildPostgresDSN(Config{})
	require.Error(t, err)
}

func TestBuildMySQLDSNDefaults(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{User: "campus", Name: "campus"})
	require.NoError(t, err)

	parsed, err := mysqldriver.ParseDSN(dsn)
	require.NoError(t, err)
	require.Equal(t, "campus", parsed.User)
	require.Equal(t, "127.0.0.1:3306", parsed.Addr)
	require.Equal(t, "campus", parsed.DBName)
	require.True(t, parsed.ParseTime)
	require.Equal(t, "UTC", parsed.Loc.String())
	require.Equal(t, "utf8mb4", parsed.Params["charset"])
}

func TestBuildMySQLDSNWithOptions(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{
		User:     "user",
		Password: "secret",
		Name:     "db",
		Host:     "db.example.com",
		Port:     3307,
		Options:  map[string]string{"sql_mode": "'STRICT_ALL_TABLES'"},
	})
	require.NoError(t, err)

	parsed, err := mysqldriver.ParseDSN(dsn)
	require.NoError(t, err)
	require.Equal(t, "secret", parsed.Passwd)
	require.Equal(t, "db.example.com:3307", parsed.Addr)
	require.Equal(t, "'STRICT_ALL_TABLES'", parsed.Params["sql_mode"])
}

func TestBuildMySQLDSNRejectsBadOverride(t *testing.T) {
	_, err := buildMySQLDSN(Config{DSN: "not a dsn"})
	require.Error(t, err)
}

func TestBuildMySQLDSNRequiresUserAndName(t *testing.T) {
	_, err := buildMySQLDSN(Config{Host: "localhost"})
	require.Error(t, err)
}
