package database

import (
	"net"
	"net/url"
	"strconv"

	"github.com/rickgao/mailboard/internal/config"
)

// ApplicationName is reported to the server in pg_stat_activity.
const ApplicationName = "mailboard"

// BuildConnString builds a PostgreSQL URL from config. The password is
// escaped, the port defaults to 5432 and sslmode to "prefer".
func BuildConnString(cfg config.DBConfig) string {
	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		Path:   "/" + cfg.Name,
	}
	if cfg.Password != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	} else if cfg.User != "" {
		u.User = url.User(cfg.User)
	}

	q := url.Values{}
	q.Set("sslmode", sslMode)
	q.Set("application_name", ApplicationName)
	u.RawQuery = q.Encode()

	return u.String()
}
