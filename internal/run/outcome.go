package run

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/williampepple1/proxy-trends/internal/config"
	"github.com/williampepple1/proxy-trends/internal/extension"
	"github.com/williampepple1/proxy-trends/internal/extraction"
	"github.com/williampepple1/proxy-trends/internal/login"
	"github.com/williampepple1/proxy-trends/internal/store"
	"github.com/williampepple1/proxy-trends/pkg/models"
)

// Outcome is the result of one triggered run: a record or an error,
// never both
type Outcome struct {
	Record *models.RunRecord
	Err    error
}

// OK reports whether the run produced a record
func (o Outcome) OK() bool { return o.Err == nil && o.Record != nil }

// Failure returns an outcome for err
func Failure(err error) Outcome { return Outcome{Err: err} }

// MarshalJSON renders the record, or {"error": "..."} for a failed run
func (o Outcome) MarshalJSON() ([]byte, error) {
	if !o.OK() {
		msg := "run produced no record"
		if o.Err != nil {
			msg = o.Err.Error()
		}
		return json.Marshal(models.ErrorDescriptor{Error: msg})
	}
	return json.Marshal(o.Record)
}

// Classify names the failure class of a run error
func Classify(err error) string {
	var missing *config.MissingError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &missing), errors.Is(err, config.ErrConfigurationMissing):
		return "ConfigurationMissing"
	case errors.Is(err, extension.ErrArtifactBuild):
		return "ArtifactBuildError"
	case errors.Is(err, login.ErrLoginTimeout):
		return "LoginTimeout"
	case errors.Is(err, extraction.ErrExtraction):
		return "ExtractionError"
	case errors.Is(err, store.ErrPersistence):
		return "PersistenceError"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Canceled"
	default:
		return "RunError"
	}
}
