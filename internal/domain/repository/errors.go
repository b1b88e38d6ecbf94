package repository

import "errors"

// ErrReportNotFound is returned by ReportStore.Latest before the first run.
var ErrReportNotFound = errors.New("report not found")
