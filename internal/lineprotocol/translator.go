// Package lineprotocol translates parsed performance records into InfluxDB
// line-protocol lines: one line per performance datum, with tag/field
// placement, value-type-aware quoting and escaping, and a pluggable unit
// remap.
package lineprotocol

import (
	"sort"
	"strings"

	"github.com/ProjectRunspace/xlatnagiosdata/internal/logwriter"
	"github.com/ProjectRunspace/xlatnagiosdata/internal/nagios"
	"github.com/ProjectRunspace/xlatnagiosdata/internal/strutil"
	"github.com/ProjectRunspace/xlatnagiosdata/internal/units"
)

const malformedLine = "Translated line does not decode as line protocol"

// escapeString backslash-escapes space, comma, and equals, and wraps the
// result in double quotes when enquote is true. setItem enquotes non-numeric
// field values only; tag values are escaped but never quoted.
func escapeString(s string, enquote bool) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	if enquote {
		b.WriteByte('"')
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', ',', '=':
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	if enquote {
		b.WriteByte('"')
	}
	return b.String()
}

// setItem either replaces or erases a key: an empty value erases, a numeric
// value is stored verbatim, anything else is escaped (and quoted when the
// map holds fields). State carried between a record's lines is intentional.
func setItem(target map[string]string, key, value string, isField bool) {
	if value == "" {
		delete(target, key)
		return
	}
	if strutil.IsNumber(value) {
		target[key] = value
		return
	}
	target[key] = escapeString(value, isField)
}

// appendKVPs appends the map as comma-separated k=v pairs in sorted key
// order.
func appendKVPs(b *strings.Builder, kvps map[string]string) {
	keys := make([]string, 0, len(kvps))
	for k := range kvps {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(kvps[k])
	}
}

// Translator converts performance records to line-protocol lines. Tag and
// field maps persist across the data points of one record, but every item
// re-sets each key, and an omitted (empty) threshold or unit erases the key,
// so a later item never inherits an earlier item's values.
type Translator struct {
	log             logwriter.Writer
	measurementName string
	unitMap         units.Map
	tags            map[string]string
	fields          map[string]string
	timestamp       string
}

// NewTranslator returns a Translator emitting measurementName lines, with
// unit tag values remapped through unitMap.
func NewTranslator(log logwriter.Writer, measurementName string, unitMap units.Map) *Translator {
	return &Translator{
		log:             log,
		measurementName: measurementName,
		unitMap:         unitMap,
		tags:            make(map[string]string),
		fields:          make(map[string]string),
	}
}

func (t *Translator) translateLine() string {
	var line strings.Builder
	line.Grow(len(t.measurementName) + len(t.timestamp) + 64)
	line.WriteString(t.measurementName)
	line.WriteByte(',')
	appendKVPs(&line, t.tags)
	line.WriteByte(' ')
	appendKVPs(&line, t.fields)
	line.WriteByte(' ')
	line.WriteString(t.timestamp)
	return line.String()
}

// TranslateRecord emits one line per performance datum, in the order the
// data appeared in the record.
func (t *Translator) TranslateRecord(record *nagios.PerformanceRecord) []string {
	translated := make([]string, 0, len(record.PerfData))
	setItem(t.tags, "host", record.HostName, false)
	setItem(t.tags, "service", record.ServiceName, false)
	t.timestamp = record.Timestamp
	for _, perfData := range record.PerfData {
		setItem(t.tags, "label", perfData.Label, false)
		setItem(t.fields, "value", perfData.Value, true)
		setItem(t.fields, "warn", perfData.Warn, true)
		setItem(t.fields, "crit", perfData.Crit, true)
		setItem(t.fields, "min", perfData.Min, true)
		setItem(t.fields, "max", perfData.Max, true)
		setItem(t.tags, "unit", t.unitMap.Convert(perfData.Unit), false)
		line := t.translateLine()
		if t.log.ShouldWrite(logwriter.LevelDebug) {
			if err := Validate(line); err != nil {
				logwriter.WarnAnnotated(t.log, malformedLine, line, err)
			}
		}
		translated = append(translated, line)
	}
	return translated
}
