// Package all links every object store backend into the binary.
package all

import (
	_ "datalake/internal/datasource/file"
	_ "datalake/internal/datasource/gcs"
	_ "datalake/internal/datasource/minio"
	_ "datalake/internal/datasource/s3"
)
