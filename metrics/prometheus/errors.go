package prometheus

import "errors"

var errExportFailures = errors.New("export failures")
