// Package repository holds the MySQL-backed purchase archive.  Sentinel
// errors let handlers tell a missing row from a disabled archive.
package repository

import "errors"

// ErrNotFound is returned when no archive row matches.  Handlers translate
// it into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrArchiveDisabled is returned by every AuditRepo method when no database
// is configured.  Handlers translate it into an HTTP 503 response.
var ErrArchiveDisabled = errors.New("archive is not configured")
