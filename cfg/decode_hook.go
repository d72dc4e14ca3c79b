package cfg

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// DecodeHook returns the mapstructure decode hook viper.Unmarshal (see
// cmd/root.go) should use to turn free-form scalars into this package's
// validated string types.
func DecodeHook() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		s := data.(string)

		switch t {
		case reflect.TypeOf(LogSeverity("")):
			level := LogSeverity(strings.ToUpper(s))
			valid := []LogSeverity{SeverityTrace, SeverityDebug, SeverityInfo, SeverityWarning, SeverityError, SeverityOff}
			if !slices.Contains(valid, level) {
				return nil, fmt.Errorf("invalid log severity: %q", s)
			}
			return level, nil
		}

		return data, nil
	}
}
