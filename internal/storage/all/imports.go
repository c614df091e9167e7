// Package all registers every built-in destination kind with the storage
// registry. Import it for side effects:
//
//	import _ "sqlite2mysql/internal/storage/all"
package all

import (
	_ "sqlite2mysql/internal/storage/mssql"
	_ "sqlite2mysql/internal/storage/mysql"
	_ "sqlite2mysql/internal/storage/postgres"
	_ "sqlite2mysql/internal/storage/sqlite"
)
