//go:build sqlite_vec && cgo

package store

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

func init() {
	// vec.Auto() registers sqlite-vec as an auto-loadable extension with
	// the mattn/go-sqlite3 driver before any database is opened.
	vec.Auto()
}
