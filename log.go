package kubepool

import (
	"log/slog"

	"github.com/giantswarm/kubepool/internal/core"
)

// SetLogger replaces the package-level logger used by kubepool. This lets
// applications integrate kubepool logging with their own logging
// infrastructure. The provided logger should already carry any desired
// attributes; kubepool will not add more.
//
// If l is nil, the logger resets to the default: slog.Default() with a
// "component" attribute, re-derived on the next use and then cached. Call
// SetLogger(nil) after slog.SetDefault() to pick up changes.
//
// SetLogger is safe to call concurrently with other kubepool operations;
// for a strict happens-before guarantee, call it before constructing
// managers.
func SetLogger(l *slog.Logger) {
	core.SetLogger(l)
}
