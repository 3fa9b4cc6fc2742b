// Package storage provides LocalStore backends for backups and the sync marker.
package storage

import (
	"strings"

	"github.com/CreativeUnicorns/navsync"
)

var (
	_ navsync.LocalStore = (*MemoryStorage)(nil)
	_ navsync.LocalStore = (*SQLiteStorage)(nil)
	_ navsync.LocalStore = (*PostgresStorage)(nil)
	_ navsync.LocalStore = (*RedisStorage)(nil)
)

// likePrefix turns prefix into a LIKE pattern matched with ESCAPE '\'.
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}
