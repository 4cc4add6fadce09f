// Package schema holds the required header sets for the two upload slots.
package schema

import "github.com/JonMunkholm/fleetdata/internal/core"

// OperationalColumns are the headers every operational (service) file must carry.
var OperationalColumns = []string{
	"route_id",
	"stop_id",
	"arrival_time",
}

// BaseColumns are the headers every base (depot and fleet) file must carry.
var BaseColumns = []string{
	"depot_id",
	"vehicle_id",
	"vehicle_type",
	"capacity",
}

// Default returns the built-in schema set.
func Default() core.SchemaSet {
	return Resolve(nil, nil)
}

// Resolve builds a schema set, replacing a slot's built-in columns with the
// override for that slot when the override is non-empty.
func Resolve(operational, base []string) core.SchemaSet {
	pick := func(override, builtin []string) []string {
		if len(override) > 0 {
			return append([]string(nil), override...)
		}
		return append([]string(nil), builtin...)
	}
	return core.SchemaSet{
		Operational: core.Schema{Required: pick(operational, OperationalColumns)},
		Base:        core.Schema{Required: pick(base, BaseColumns)},
	}
}
