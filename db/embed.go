// Package db provides the embedded schema for the PostgreSQL key-value backend.
package db

import _ "embed"

// Schema contains the DDL statements for the kv_store table.
//
//go:embed migrations/001_schema.sql
var Schema string
