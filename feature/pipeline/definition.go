package pipeline

import (
	"fmt"
	"strings"

	"table-sync/core/reconcile"
)

// Kind selects the source and target services of a pipeline.
type Kind string

const (
	// KindSheetsToCoda mirrors a worksheet into a Coda table and writes the row links back.
	KindSheetsToCoda Kind = "sheets_to_coda"
	// KindCodaToSheets mirrors a Coda table into a worksheet.
	KindCodaToSheets Kind = "coda_to_sheets"
	// KindCodaToCoda mirrors one or more Coda tables into other Coda tables.
	KindCodaToCoda Kind = "coda_to_coda"
	// KindSheetsToSheets overwrites a worksheet range with another one.
	KindSheetsToSheets Kind = "sheets_to_sheets"
)

// DefaultKeyColumn is the column holding the back-reference when none is configured.
const DefaultKeyColumn = "Source Row URL"

// Endpoint addresses a Coda table or a worksheet.
type Endpoint struct {
	// Doc and Table address a Coda table (ids or names).
	Doc   string `mapstructure:"doc" json:"doc,omitempty"`
	Table string `mapstructure:"table" json:"table,omitempty"`

	// Spreadsheet and Worksheet address a worksheet.
	Spreadsheet string `mapstructure:"spreadsheet" json:"spreadsheet,omitempty"`
	Worksheet   string `mapstructure:"worksheet" json:"worksheet,omitempty"`

	// Range optionally narrows a worksheet copy (A1 notation without sheet name).
	Range string `mapstructure:"range" json:"range,omitempty"`
}

func (e Endpoint) isTable() bool {
	return e.Doc != "" && e.Table != ""
}

func (e Endpoint) isWorksheet() bool {
	return e.Spreadsheet != "" && e.Worksheet != ""
}

// Pair is one source → target table pairing of a coda_to_coda pipeline.
type Pair struct {
	Source Endpoint `mapstructure:"source" json:"source"`
	Target Endpoint `mapstructure:"target" json:"target"`
}

// Definition is one configured pipeline.
type Definition struct {
	// Name identifies the pipeline in the CLI, the API and the history.
	Name string `mapstructure:"name" json:"name"`
	// Kind selects the services on each side.
	Kind Kind `mapstructure:"kind" json:"kind"`

	Source Endpoint `mapstructure:"source" json:"source"`
	Target Endpoint `mapstructure:"target" json:"target"`

	// Pairs lists extra table pairs of a coda_to_coda pipeline, synced in order after
	// Source → Target.
	Pairs []Pair `mapstructure:"pairs" json:"pairs,omitempty"`

	// KeyColumn names the column storing the back-reference.
	KeyColumn string `mapstructure:"key_column" json:"key_column"`
	// ProtectColumn names the target checkbox column that blocks deletion.
	ProtectColumn string `mapstructure:"protect_column" json:"protect_column,omitempty"`
	// FullRewrite replaces the target rows on every pass.
	FullRewrite bool `mapstructure:"full_rewrite" json:"full_rewrite"`

	// PollIntervalSeconds and PollTimeoutSeconds override the sync settings.
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds" json:"poll_interval_seconds,omitempty"`
	PollTimeoutSeconds  int `mapstructure:"poll_timeout_seconds" json:"poll_timeout_seconds,omitempty"`
}

// WithDefaults fills in the key column.
func (d Definition) WithDefaults() Definition {
	if d.KeyColumn == "" {
		d.KeyColumn = DefaultKeyColumn
	}
	return d
}

// TablePairs returns every table pair of the pipeline.
func (d Definition) TablePairs() []Pair {
	pairs := []Pair{{Source: d.Source, Target: d.Target}}
	if d.Kind == KindCodaToCoda {
		pairs = append(pairs, d.Pairs...)
	}
	return pairs
}

// Validate checks that the definition names every endpoint its kind needs.
func (d Definition) Validate() error {
	if strings.TrimSpace(d.Name) == "" || strings.ContainsAny(d.Name, " /") {
		return fmt.Errorf("%w: invalid pipeline name %q", reconcile.ErrConfiguration, d.Name)
	}
	if d.PollIntervalSeconds < 0 || d.PollTimeoutSeconds < 0 {
		return d.invalid("poll settings must not be negative")
	}

	switch d.Kind {
	case KindSheetsToCoda:
		if !d.Source.isWorksheet() || !d.Target.isTable() {
			return d.invalid("needs source spreadsheet/worksheet and target doc/table")
		}
	case KindCodaToSheets:
		if !d.Source.isTable() || !d.Target.isWorksheet() {
			return d.invalid("needs source doc/table and target spreadsheet/worksheet")
		}
	case KindCodaToCoda:
		for i, p := range d.TablePairs() {
			if !p.Source.isTable() || !p.Target.isTable() {
				return d.invalid(fmt.Sprintf("pair %d needs source and target doc/table", i))
			}
		}
	case KindSheetsToSheets:
		if !d.Source.isWorksheet() || !d.Target.isWorksheet() {
			return d.invalid("needs source and target spreadsheet/worksheet")
		}
		if d.ProtectColumn != "" || d.FullRewrite {
			return d.invalid("protect_column and full_rewrite do not apply to range copies")
		}
	default:
		return d.invalid(fmt.Sprintf("unknown kind %q", d.Kind))
	}
	return nil
}

func (d Definition) invalid(msg string) error {
	return fmt.Errorf("%w: pipeline %s: %s", reconcile.ErrConfiguration, d.Name, msg)
}

// Settings holds the sync defaults shared by all pipelines.
type Settings struct {
	// PollIntervalSeconds is the wait between propagation checks.
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds" default:"2"`
	// PollTimeoutSeconds bounds the propagation wait.
	PollTimeoutSeconds int `mapstructure:"poll_timeout_seconds" default:"60"`
	// RecordHistory stores every pass in the history database.
	RecordHistory bool `mapstructure:"record_history" default:"true"`
}
