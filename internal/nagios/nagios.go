// Package nagios parses the host-monitoring product's spool records: a
// tab-delimited outer record carrying a space/semicolon/equals-delimited
// performance-data payload.
package nagios

import (
	"github.com/ProjectRunspace/xlatnagiosdata/internal/logwriter"
	"github.com/ProjectRunspace/xlatnagiosdata/internal/strutil"
)

// parser logging constants
const (
	invalidTimestamp = "Timestamp is not a number."
	extraneousData   = "Extra data found in Nagios performance record. Discarding."
)

// PerformanceData is one label=value[unit][;warn[;crit[;min[;max]]]] item.
// All components are textual; everything except Label and Value may be
// absent, represented by the empty string.
type PerformanceData struct {
	Label string
	Value string
	Warn  string
	Crit  string
	Min   string
	Max   string
	Unit  string
}

// PerformanceRecord is one spool line: timestamp, host, service, and the
// performance data items carried in the fourth column.
type PerformanceRecord struct {
	Timestamp   string
	HostName    string
	ServiceName string
	PerfData    []PerformanceData
}

// Parser turns sanitised spool lines into performance records, reporting
// malformed lines through its log writer.
type Parser struct {
	log logwriter.Writer
}

// NewParser returns a Parser logging through log.
func NewParser(log logwriter.Writer) *Parser {
	return &Parser{log: log}
}

// parsePerfValue splits a "label=value[unit]" triple. The label runs to the
// first unescaped '='; the value is the longest numeric prefix after it;
// whatever remains is the unit. When the text after '=' has no numeric
// prefix at all, that whole text is the value and the unit is empty.
func parsePerfValue(raw string) (label, value, unit string) {
	labelProcessor := strutil.NewDelimitedBlockProcessor(raw, '=')
	label = labelProcessor.Next()
	position := len(label)
	if len(raw) > position && raw[position] == '=' {
		position++ // consume the =
	}
	if position >= len(raw) { // ill-formed, but nothing we can do about it
		return label, "", ""
	}

	afterValue := position + strutil.FirstNonNumericPosition(raw[position:])
	if afterValue == position {
		// no numeric prefix at all: the remainder is a textual value, not
		// a unit
		return label, raw[position:], ""
	}
	value = raw[position:afterValue]
	position = afterValue

	if position >= len(raw) { // not all measurements have a unit
		return label, value, ""
	}
	return label, value, raw[position:]
}

// ParsePerformanceData splits the fourth record column into its items. Items
// are space-separated; within an item, semicolons delimit the value and the
// warn/crit/min/max thresholds by position.
func (p *Parser) ParsePerformanceData(perfData string) []PerformanceData {
	var result []PerformanceData
	itemProcessor := strutil.NewDelimitedBlockProcessor(perfData, ' ')
	for itemProcessor.More() {
		var parsed PerformanceData
		item := itemProcessor.Next()

		componentProcessor := strutil.NewDelimitedBlockProcessor(item, ';')
		for componentProcessor.More() {
			component := componentProcessor.Next()
			switch componentProcessor.ProcessedBlocks() {
			case 1:
				parsed.Label, parsed.Value, parsed.Unit = parsePerfValue(component)
			case 2:
				parsed.Warn = component
			case 3:
				parsed.Crit = component
			case 4:
				parsed.Min = component
			case 5:
				parsed.Max = component
			}
		}
		result = append(result, parsed)
	}
	return result
}

// ParsePerformanceRecord parses one sanitised spool line. A line whose
// timestamp column is not all digits yields (nil, false); the offending
// line is reported to the upload-error queue so no datum is silently
// dropped. Columns past the fourth are logged and discarded.
func (p *Parser) ParsePerformanceRecord(line string) (*PerformanceRecord, bool) {
	record := &PerformanceRecord{}
	index := 0
	lineProcessor := strutil.NewDelimitedBlockProcessor(line, '\t')
	for lineProcessor.More() {
		component := lineProcessor.Next()
		switch index {
		case 0:
			if !strutil.IsDigitsOnly(component) {
				logwriter.ErrorAnnotated(p.log, invalidTimestamp, component, nil)
				p.log.WriteUploadError(line)
				return nil, false
			}
			record.Timestamp = component
		case 1:
			record.HostName = component
		case 2:
			record.ServiceName = component
		case 3:
			record.PerfData = append(record.PerfData, p.ParsePerformanceData(component)...)
		default:
			logwriter.WarnAnnotated(p.log, extraneousData, component, nil)
		}
		index++
	}
	return record, true
}
