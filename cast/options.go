package cast

import (
	"fmt"
	"unicode/utf8"
)

// DefaultInferSampleSize is the number of rows inspected by inference.
const DefaultInferSampleSize = 100

var (
	defaultTrueValues  = []string{"true", "True", "TRUE", "1"}
	defaultFalseValues = []string{"false", "False", "FALSE", "0"}
)

// Options are caster-wide defaults. Field descriptors override them.
type Options struct {
	// DateFormat is used for date fields with the default format.
	// Empty means ISO 8601 (%Y-%m-%d).
	DateFormat string `yaml:"date_format" mapstructure:"date_format"`
	// DatetimeFormat is used for datetime fields with the default format.
	// Empty means ISO 8601 / RFC 3339.
	DatetimeFormat string `yaml:"datetime_format" mapstructure:"datetime_format"`
	// TimeFormat is used for time fields with the default format.
	TimeFormat string `yaml:"time_format" mapstructure:"time_format"`

	GroupChar   string `yaml:"group_char" mapstructure:"group_char"`
	DecimalChar string `yaml:"decimal_char" mapstructure:"decimal_char"`

	TrueValues  []string `yaml:"true_values" mapstructure:"true_values"`
	FalseValues []string `yaml:"false_values" mapstructure:"false_values"`

	// InferSampleSize bounds the rows inspected by Infer.
	InferSampleSize int `yaml:"infer_sample_size" mapstructure:"infer_sample_size" validate:"gte=0"`
}

// ApplyDefaults fills zero values.
func (o *Options) ApplyDefaults() {
	if o.DecimalChar == "" {
		o.DecimalChar = "."
	}
	if len(o.TrueValues) == 0 {
		o.TrueValues = defaultTrueValues
	}
	if len(o.FalseValues) == 0 {
		o.FalseValues = defaultFalseValues
	}
	if o.InferSampleSize <= 0 {
		o.InferSampleSize = DefaultInferSampleSize
	}
}

// Validate checks the separators.
func (o *Options) Validate() error {
	if utf8.RuneCountInString(o.DecimalChar) != 1 {
		return fmt.Errorf("cast: decimal_char must be a single character (got %q)", o.DecimalChar)
	}
	if utf8.RuneCountInString(o.GroupChar) > 1 {
		return fmt.Errorf("cast: group_char must be at most one character (got %q)", o.GroupChar)
	}
	if o.GroupChar != "" && o.GroupChar == o.DecimalChar {
		return fmt.Errorf("cast: group_char and decimal_char must differ (both %q)", o.GroupChar)
	}
	for _, t := range o.TrueValues {
		for _, f := range o.FalseValues {
			if t == f {
				return fmt.Errorf("cast: %q is both a true and a false value", t)
			}
		}
	}
	return nil
}
