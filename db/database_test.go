package db

import (
	"errors"
	"fmt"
	"testing"

	"musicbox/config"

	"github.com/go-sql-driver/mysql"
)

func TestIsDuplicateKey(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'x' for key 'uq_songs_name'"}

	if !IsDuplicateKey(dup) {
		t.Error("1062 should be a duplicate key")
	}
	if !IsDuplicateKey(fmt.Errorf("insert song: %w", dup)) {
		t.Error("wrapped 1062 should be a duplicate key")
	}
	if IsDuplicateKey(&mysql.MySQLError{Number: 1146}) {
		t.Error("1146 is not a duplicate key")
	}
	if IsDuplicateKey(errors.New("Duplicate entry")) {
		t.Error("plain errors are never duplicate keys")
	}
}

func TestDSN(t *testing.T) {
	cfg := &config.Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "3306", DBName: "musicbox"}
	want := "u:p@tcp(h:3306)/musicbox?charset=utf8mb4&parseTime=true&loc=UTC"
	if got := DSN(cfg); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}
