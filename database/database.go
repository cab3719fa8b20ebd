package database

import (
	"context"
	"fmt"
	"strings"
)

// Open picks the backend from the URL scheme: mongodb:// and
// mongodb+srv:// for MongoDB, sqlite:// (or a bare file path) for SQLite.
func Open(ctx context.Context, url, dbName string) (Store, error) {
	switch {
	case strings.HasPrefix(url, "mongodb://"), strings.HasPrefix(url, "mongodb+srv://"):
		return OpenMongo(ctx, url, dbName)
	case strings.HasPrefix(url, "sqlite://"):
		return OpenSQLite(strings.TrimPrefix(url, "sqlite://"))
	case strings.Contains(url, "://"):
		return nil, fmt.Errorf("database: unsupported url scheme in %q", url)
	default:
		return OpenSQLite(url)
	}
}
