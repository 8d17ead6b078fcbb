// Package units holds the Nagios-unit-to-dashboard-unit remap consulted by
// the line-protocol translator. The default table mirrors Grafana's
// canonical unit names so translated tags render without per-dashboard
// overrides.
package units

// Map translates a source unit string to the target dashboard's unit name.
// A unit with no entry maps to itself.
type Map map[string]string

// Defaults returns the built-in conversion table.
// https://github.com/grafana/grafana/blob/main/packages/grafana-data/src/valueFormats/categories.ts
func Defaults() Map {
	return Map{
		"%":   "percent",
		"s":   "seconds",
		"b":   "bits",
		"B":   "bytes",
		"kB":  "deckbytes",
		"KB":  "deckbytes",
		"KiB": "kbytes",
		"MB":  "decmbytes",
		"MiB": "mbytes",
		"GB":  "decgbytes",
		"GiB": "gbytes",
		"TB":  "dectbytes",
		"TiB": "tbytes",
		"PB":  "decpbytes",
		"PiB": "pbytes",
	}
}

// Convert returns the mapped unit name, or unit itself when no entry exists.
func (m Map) Convert(unit string) string {
	if mapped, ok := m[unit]; ok {
		return mapped
	}
	return unit
}

// Merge returns a copy of m with every entry of overrides applied on top.
func (m Map) Merge(overrides map[string]string) Map {
	merged := make(Map, len(m)+len(overrides))
	for k, v := range m {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}
