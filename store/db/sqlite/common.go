package sqlite

import (
	"database/sql"
	"strings"

	"github.com/google/uuid"
)

// placeholder returns a placeholder for SQLite (uses ?).
func placeholder(n int) string {
	return "?"
}

// placeholders returns n placeholders for SQLite.
func placeholders(n int) string {
	list := []string{}
	for i := 0; i < n; i++ {
		list = append(list, placeholder(i+1))
	}
	return strings.Join(list, ", ")
}

// uuidPtrValue converts an optional UUID to a driver value.
func uuidPtrValue(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

// scanUUIDPtr converts a nullable TEXT column back to an optional UUID.
func scanUUIDPtr(ns sql.NullString) (*uuid.UUID, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	id, err := uuid.Parse(ns.String)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
