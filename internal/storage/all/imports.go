// Package all links every table repository backend into a binary.
package all

import (
	_ "datalake/internal/storage/mssql"
	_ "datalake/internal/storage/parquet"
	_ "datalake/internal/storage/postgres"
	_ "datalake/internal/storage/sqlite"
)
