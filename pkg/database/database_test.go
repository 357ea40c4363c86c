package database

import (
	"path/filepath"
	"strings"
	"testing"

	"noticeboard/config"
)

func TestDSN(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.DatabaseConfig
		want []string
	}{
		{"mysql", config.DatabaseConfig{Driver: "mysql", Host: "db", Port: 3306, User: "u", Password: "p", DBName: "notices"},
			[]string{"u:p@tcp(db:3306)/notices?", "parseTime=true", "loc=UTC", "clientFoundRows=true"}},
		{"postgres", config.DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", DBName: "notices"},
			[]string{"host=db", "port=5432", "dbname=notices", "TimeZone=UTC"}},
		{"sqlite", config.DatabaseConfig{Driver: "sqlite", Path: "/tmp/x.db"},
			[]string{"file:/tmp/x.db?", "foreign_keys(1)", "_time_format=sqlite"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dsn, err := DSN(tc.cfg)
			if err != nil {
				t.Fatalf("DSN: %v", err)
			}
			for _, w := range tc.want {
				if !strings.Contains(dsn, w) {
					t.Errorf("dsn %q missing %q", dsn, w)
				}
			}
		})
	}

	if _, err := DSN(config.DatabaseConfig{Driver: "oracle"}); err == nil {
		t.Error("unknown driver accepted")
	}
}

func TestNewConnection_SQLite(t *testing.T) {
	db, err := NewConnection(config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "t.db")})
	if err != nil {
		t.Fatalf("NewConnection: %v", err)
	}
	defer db.Close()

	if got := db.Rebind("SELECT ? , ?"); got != "SELECT ? , ?" {
		t.Errorf("sqlite rebind = %q", got)
	}
	var one int
	if err := db.Get(&one, "SELECT 1"); err != nil || one != 1 {
		t.Errorf("SELECT 1 = %d, %v", one, err)
	}
}

func TestNewRedisClient_Disabled(t *testing.T) {
	client, err := NewRedisClient(config.RedisConfig{})
	if client != nil || err != nil {
		t.Errorf("empty host should disable redis, got %v %v", client, err)
	}
}

func TestNewConnection_SQLiteUnicodeLower(t *testing.T) {
	db, err := NewConnection(config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "lower.db")})
	if err != nil {
		t.Fatalf("NewConnection: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cases := map[string]string{
		"Équipe ÜBERBLICK": "équipe überblick",
		"ПЛАНОВЫЕ Работы":  "плановые работы",
		"Release":          "release",
	}
	for in, want := range cases {
		var got string
		if err := db.Get(&got, "SELECT lower(?)", in); err != nil {
			t.Fatalf("lower(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("lower(%q) = %q, want %q", in, got, want)
		}
	}

	var null *string
	if err := db.Get(&null, "SELECT lower(NULL)"); err != nil || null != nil {
		t.Errorf("lower(NULL) = %v, %v", null, err)
	}
}
