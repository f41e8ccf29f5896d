package cast

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	json "github.com/goccy/go-json"
	"github.com/itchyny/timefmt-go"
	"github.com/shopspring/decimal"
	spfcast "github.com/spf13/cast"

	"github.com/kbukum/dataflow/errors"
	"github.com/kbukum/dataflow/schema"
	"github.com/kbukum/dataflow/validation"
)

// String formats.
const (
	FormatEmail  = "email"
	FormatURI    = "uri"
	FormatUUID   = "uuid"
	FormatBinary = "binary"
)

// Geopoint formats.
const (
	FormatArray  = "array"
	FormatObject = "object"
)

// Layouts tried, in order, by the "any" temporal format.
var (
	anyDateLayouts = []string{
		"2006-01-02", "2006/01/02", "02.01.2006", "02/01/2006", "20060102",
		"2 Jan 2006", "Jan 2, 2006", "January 2, 2006",
	}
	anyDatetimeLayouts = []string{
		time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05",
		"2006-01-02 15:04", time.RFC1123Z, time.RFC1123, time.RFC822Z,
		time.RFC822, "02/01/2006 15:04:05",
	}
	anyTimeLayouts = []string{
		"15:04:05.999999999", "15:04", "3:04PM", "3:04 PM", "15:04:05Z07:00",
	}
)

// Default (ISO) temporal layouts.
const (
	isoDate     = "2006-01-02"
	isoDatetime = time.RFC3339Nano
	isoTime     = "15:04:05.999999999"
)

func (c *Caster) castString(f *schema.Field, value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, errors.Cast(f.Name, value, "type").WithDetail("type", string(schema.TypeString))
	}
	var err error
	switch f.Format {
	case FormatEmail:
		err = validation.Var(s, "email")
	case FormatURI:
		err = validation.Var(s, "uri")
	case FormatUUID:
		_, err = uuid.Parse(s)
	}
	if err != nil {
		return nil, errors.Cast(f.Name, value, "format").WithDetail("format", f.Format)
	}
	return s, nil
}

// numberText normalizes numeric text: group characters removed, the decimal
// character mapped to '.', and for non-bare numbers leading and trailing
// non-numeric characters (currency, percent) stripped.
func (c *Caster) numberText(f *schema.Field, s string) string {
	s = strings.TrimSpace(s)
	group := f.GroupChar
	if group == "" {
		group = c.opts.GroupChar
	}
	dec := f.DecimalChar
	if dec == "" {
		dec = c.opts.DecimalChar
	}
	if f.BareNumber != nil && !*f.BareNumber {
		s = strings.TrimLeftFunc(s, func(r rune) bool {
			return !unicode.IsDigit(r) && r != '-' && r != '+' && string(r) != dec
		})
		s = strings.TrimRightFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
	}
	if group != "" {
		s = strings.ReplaceAll(s, group, "")
	}
	if dec != "." {
		s = strings.Replace(s, dec, ".", 1)
	}
	return s
}

func (c *Caster) castInteger(f *schema.Field, value any) (any, bool) {
	switch v := value.(type) {
	case string:
		n, err := strconv.ParseInt(c.numberText(f, v), 10, 64)
		return n, err == nil
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		n, err := spfcast.ToInt64E(v)
		return n, err == nil
	case uint, uint64:
		n, err := spfcast.ToUint64E(v)
		if err != nil || n > math.MaxInt64 {
			return nil, false
		}
		return int64(n), true
	case float32, float64:
		fl := spfcast.ToFloat64(v)
		if fl != math.Trunc(fl) || math.Abs(fl) > 1<<53 {
			return nil, false
		}
		return int64(fl), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case decimal.Decimal:
		if !v.IsInteger() {
			return nil, false
		}
		return v.IntPart(), true
	}
	return nil, false
}

func (c *Caster) castNumber(f *schema.Field, value any) (any, bool) {
	switch v := value.(type) {
	case string:
		d, err := decimal.NewFromString(c.numberText(f, v))
		return d, err == nil
	case decimal.Decimal:
		return v, true
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil
	case float32, float64:
		fl := spfcast.ToFloat64(v)
		if math.IsNaN(fl) || math.IsInf(fl, 0) {
			return nil, false
		}
		return decimal.NewFromFloat(fl), true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		n, ok := c.castInteger(f, v)
		if !ok {
			return nil, false
		}
		return decimal.NewFromInt(n.(int64)), true
	}
	return nil, false
}

func (c *Caster) castBoolean(f *schema.Field, value any) (any, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		trues, falses := f.TrueValues, f.FalseValues
		if len(trues) == 0 {
			trues = c.opts.TrueValues
		}
		if len(falses) == 0 {
			falses = c.opts.FalseValues
		}
		for _, t := range trues {
			if v == t {
				return true, true
			}
		}
		for _, fv := range falses {
			if v == fv {
				return false, true
			}
		}
	}
	return nil, false
}

// temporalFormat resolves the format of a temporal field: the field's own
// format, else the caster-wide default for the type.
func temporalFormat(f *schema.Field, fallback string) string {
	format := f.EffectiveFormat()
	if format == schema.FormatDefault && fallback != "" {
		return fallback
	}
	return format
}

// parseTemporal parses s with a format: "default" uses the ISO layout, "any"
// tries every layout in order, anything else is a strftime pattern.
func parseTemporal(s, format, iso string, anyLayouts []string) (time.Time, bool) {
	switch format {
	case schema.FormatDefault:
		t, err := time.Parse(iso, s)
		return t, err == nil
	case schema.FormatAny:
		for _, layout := range anyLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	default:
		t, err := timefmt.Parse(s, format)
		return t, err == nil
	}
}

func (c *Caster) castDate(f *schema.Field, value any) (any, bool) {
	switch v := value.(type) {
	case time.Time:
		if h, m, s := v.Clock(); h != 0 || m != 0 || s != 0 || v.Nanosecond() != 0 {
			return nil, false
		}
		return dateOf(v), true
	case string:
		t, ok := parseTemporal(strings.TrimSpace(v), temporalFormat(f, c.opts.DateFormat), isoDate, anyDateLayouts)
		if !ok {
			return nil, false
		}
		if h, m, s := t.Clock(); h != 0 || m != 0 || s != 0 {
			return nil, false
		}
		return dateOf(t), true
	}
	return nil, false
}

func (c *Caster) castDatetime(f *schema.Field, value any) (any, bool) {
	switch v := value.(type) {
	case time.Time:
		return normalizeZone(v), true
	case string:
		s := strings.TrimSpace(v)
		format := temporalFormat(f, c.opts.DatetimeFormat)
		t, ok := parseTemporal(s, format, isoDatetime, anyDatetimeLayouts)
		if !ok && format == schema.FormatDefault {
			// ISO without a zone designator reads as UTC.
			t, ok = parseTemporal(s, schema.FormatAny, "", []string{"2006-01-02T15:04:05.999999999"})
		}
		if !ok {
			return nil, false
		}
		return normalizeZone(t), true
	}
	return nil, false
}

func (c *Caster) castTime(f *schema.Field, value any) (any, bool) {
	switch v := value.(type) {
	case time.Time:
		return timeOf(v), true
	case string:
		t, ok := parseTemporal(strings.TrimSpace(v), temporalFormat(f, c.opts.TimeFormat), isoTime, anyTimeLayouts)
		if !ok {
			return nil, false
		}
		return timeOf(t), true
	}
	return nil, false
}

// dateOf returns midnight UTC of t's calendar day.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// timeOf returns t's clock on the zero date.
func timeOf(t time.Time) time.Time {
	return time.Date(0, 1, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// normalizeZone maps zero-offset times to UTC so equal instants compare equal.
func normalizeZone(t time.Time) time.Time {
	if _, off := t.Zone(); off == 0 {
		return t.UTC()
	}
	return t
}

func castYear(value any) (any, bool) {
	switch v := value.(type) {
	case string:
		s := strings.TrimSpace(v)
		if len(s) != 4 {
			return nil, false
		}
		n, err := strconv.ParseInt(s, 10, 64)
		return n, err == nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, json.Number:
		n, err := spfcast.ToInt64E(v)
		return n, err == nil
	}
	return nil, false
}

func castArray(value any) (any, bool) {
	if s, ok := value.(string); ok {
		decoded, err := DecodeJSON(s)
		if err != nil {
			return nil, false
		}
		value = decoded
	}
	v, ok := Normalize(value)
	if !ok {
		return nil, false
	}
	arr, ok := v.([]any)
	return arr, ok
}

func castObject(value any) (any, bool) {
	if s, ok := value.(string); ok {
		decoded, err := DecodeJSON(s)
		if err != nil {
			return nil, false
		}
		value = decoded
	}
	v, ok := Normalize(value)
	if !ok {
		return nil, false
	}
	obj, ok := v.(map[string]any)
	return obj, ok
}

func castGeopoint(format string, value any) (any, bool) {
	if p, ok := value.(schema.GeoPoint); ok {
		return p, validPoint(p)
	}
	var lon, lat any
	switch format {
	case FormatArray:
		arr, ok := castArray(value)
		if !ok || len(arr.([]any)) != 2 {
			return nil, false
		}
		lon, lat = arr.([]any)[0], arr.([]any)[1]
	case FormatObject:
		obj, ok := castObject(value)
		if !ok || len(obj.(map[string]any)) != 2 {
			return nil, false
		}
		lon, lat = obj.(map[string]any)["lon"], obj.(map[string]any)["lat"]
	default:
		s, ok := value.(string)
		if !ok {
			return nil, false
		}
		a, b, found := strings.Cut(s, ",")
		if !found {
			return nil, false
		}
		lon, lat = strings.TrimSpace(a), strings.TrimSpace(b)
	}
	p, ok := geoPoint(lon, lat)
	if !ok {
		return nil, false
	}
	return p, validPoint(p)
}

func geoPoint(lon, lat any) (schema.GeoPoint, bool) {
	x, ok1 := toFloat(lon)
	y, ok2 := toFloat(lat)
	if !ok1 || !ok2 {
		return schema.GeoPoint{}, false
	}
	return schema.GeoPoint{Lon: x, Lat: y}, true
}

// toFloat accepts numbers and numeric text; booleans and empty text are
// rejected.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case decimal.Decimal:
		return n.InexactFloat64(), true
	case float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		f, err := spfcast.ToFloat64E(n)
		return f, err == nil
	}
	return 0, false
}

func validPoint(p schema.GeoPoint) bool {
	return p.Lon >= -180 && p.Lon <= 180 && p.Lat >= -90 && p.Lat <= 90
}

// DecodeJSON decodes JSON text, keeping numbers as json.Number so integers
// survive round trips exactly.
func DecodeJSON(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New(errors.ErrCodeCast, "trailing data after JSON value")
	}
	return v, nil
}
