package app

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/beaconhub/beacon-registry/internal/db"
	log "github.com/sirupsen/logrus"
)

// databaseTarget is the loggable part of a DSN. It never carries the password.
type databaseTarget struct {
	Type        string
	Host        string
	Port        int
	User        string
	Name        string
	SSLMode     string
	Path        string
	PasswordSet bool
}

func (t databaseTarget) fields() log.Fields {
	if t.Type == "sqlite" {
		return log.Fields{"db_type": t.Type, "db_path": t.Path}
	}
	return log.Fields{
		"db_type":     t.Type,
		"db_host":     t.Host,
		"db_port":     t.Port,
		"db_user":     t.User,
		"db_name":     t.Name,
		"db_sslmode":  t.SSLMode,
		"db_password": t.PasswordSet,
	}
}

// describeDSN extracts the database target from a postgres URL, a postgres
// key=value DSN or a SQLite path.
func describeDSN(dsn string) (databaseTarget, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return databaseTarget{}, fmt.Errorf("empty dsn")
	}

	lowered := strings.ToLower(trimmed)
	if db.IsPostgresDSN(trimmed) {
		if strings.HasPrefix(lowered, "postgres://") || strings.HasPrefix(lowered, "postgresql://") {
			return describePostgresURL(trimmed)
		}
		return describePostgresKeyValue(trimmed), nil
	}

	pathPart := trimmed
	if strings.HasPrefix(lowered, "file:") {
		pathPart = trimmed[len("file:"):]
	}
	pathPart, _, _ = strings.Cut(pathPart, "?")
	return databaseTarget{Type: "sqlite", Path: strings.TrimSpace(pathPart)}, nil
}

func describePostgresURL(raw string) (databaseTarget, error) {
	u, errParse := url.Parse(raw)
	if errParse != nil {
		return databaseTarget{}, fmt.Errorf("parse dsn: %w", errParse)
	}
	port := 5432
	if rawPort := strings.TrimSpace(u.Port()); rawPort != "" {
		parsedPort, errPort := strconv.Atoi(rawPort)
		if errPort != nil {
			return databaseTarget{}, fmt.Errorf("parse port: %w", errPort)
		}
		port = parsedPort
	}
	target := databaseTarget{
		Type:    "postgres",
		Host:    strings.TrimSpace(u.Hostname()),
		Port:    port,
		Name:    strings.TrimSpace(strings.TrimPrefix(u.Path, "/")),
		SSLMode: strings.TrimSpace(u.Query().Get("sslmode")),
	}
	if u.User != nil {
		target.User = strings.TrimSpace(u.User.Username())
		_, target.PasswordSet = u.User.Password()
	}
	if target.SSLMode == "" {
		target.SSLMode = "prefer"
	}
	return target, nil
}

func describePostgresKeyValue(raw string) databaseTarget {
	target := databaseTarget{Type: "postgres", Port: 5432, SSLMode: "prefer"}
	for _, pair := range strings.Fields(raw) {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		value = strings.Trim(value, "'")
		switch strings.ToLower(key) {
		case "host":
			target.Host = value
		case "port":
			if port, errPort := strconv.Atoi(value); errPort == nil {
				target.Port = port
			}
		case "user":
			target.User = value
		case "dbname":
			target.Name = value
		case "sslmode":
			target.SSLMode = value
		case "password":
			target.PasswordSet = value != ""
		}
	}
	return target
}
