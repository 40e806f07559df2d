// ABOUTME: Location source selection from a source string
// ABOUTME: Supports nmea:<device|file|tcp://addr> and static:<lat>,<lng>

package location

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultSource is the serial device most USB GPS receivers appear as.
const DefaultSource = "nmea:/dev/ttyACM0"

// Open returns the provider named by source.
func Open(source string) (Provider, error) {
	if source == "" {
		source = DefaultSource
	}
	kind, arg, ok := strings.Cut(source, ":")
	if !ok || arg == "" {
		return nil, fmt.Errorf("invalid location source %q: want kind:argument", source)
	}

	switch kind {
	case "nmea":
		return NewNMEA(arg), nil
	case "static":
		lat, lng, err := parseLatLng(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid static source %q: %w", source, err)
		}
		return NewStatic(lat, lng)
	default:
		return nil, fmt.Errorf("unknown location source kind %q", kind)
	}
}

func parseLatLng(s string) (float64, float64, error) {
	latStr, lngStr, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, fmt.Errorf("want <lat>,<lng>")
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude: %w", err)
	}
	return lat, lng, nil
}
