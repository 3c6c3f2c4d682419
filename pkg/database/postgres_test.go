package database

import "testing"

func TestDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 5433, User: "svc", Password: "p@ss/word", DBName: "permitkit", SSLMode: "require"}
	want := "postgres://svc:p%40ss%2Fword@db:5433/permitkit?sslmode=require"
	if got := cfg.DSN(); got != want {
		t.Fatalf("DSN() = %q, want %q", got, want)
	}

	cfg.SSLMode = ""
	if got := cfg.DSN(); got != "postgres://svc:p%40ss%2Fword@db:5433/permitkit" {
		t.Fatalf("unexpected DSN without sslmode %q", got)
	}
}
