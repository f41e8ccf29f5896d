package sink

import (
	"time"

	"github.com/kbukum/dataflow/validation"
)

// Sink names, as reported in flow.SinkSummary.
const (
	NamePath = "dump_to_path"
	NameSQL  = "dump_to_sql"
)

// File formats written by DumpToPath.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// SQL write modes.
const (
	// ModeReplace drops and recreates every table.
	ModeReplace = "replace"
	// ModeAppend creates missing tables and appends to existing ones.
	ModeAppend = "append"
)

// PathOptions configures DumpToPath.
type PathOptions struct {
	// Dir is the storage prefix the dataset is written under.
	Dir string `yaml:"dir" mapstructure:"dir"`
	// Format of the resource files. Defaults to csv.
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=csv json"`
	// Name overrides the package name in the written descriptor.
	Name string `yaml:"name" mapstructure:"name"`
}

// ApplyDefaults fills unset fields.
func (o *PathOptions) ApplyDefaults() {
	if o.Format == "" {
		o.Format = FormatCSV
	}
}

// Validate checks the options.
func (o *PathOptions) Validate() error {
	return validation.Validate(o)
}

// SQLOptions configures DumpToSQL.
type SQLOptions struct {
	// Mode is replace or append. Defaults to replace.
	Mode string `yaml:"mode" mapstructure:"mode" validate:"oneof=replace append"`
	// Tables maps resource names to table names. Unmapped resources use
	// TablePrefix followed by the resource name.
	Tables      map[string]string `yaml:"tables" mapstructure:"tables"`
	TablePrefix string            `yaml:"table_prefix" mapstructure:"table_prefix"`
	// BatchSize is the number of rows per INSERT. Defaults to 500.
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size" validate:"gte=1"`
	// BatchTimeout flushes a partial batch when the upstream is slow. Zero
	// waits for a full batch.
	BatchTimeout time.Duration `yaml:"batch_timeout" mapstructure:"batch_timeout" validate:"gte=0"`
}

// ApplyDefaults fills unset fields.
func (o *SQLOptions) ApplyDefaults() {
	if o.Mode == "" {
		o.Mode = ModeReplace
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 500
	}
}

// Validate checks the options.
func (o *SQLOptions) Validate() error {
	return validation.Validate(o)
}

// table returns the table written for resource.
func (o *SQLOptions) table(resource string) string {
	if t, ok := o.Tables[resource]; ok && t != "" {
		return t
	}
	return o.TablePrefix + resource
}
