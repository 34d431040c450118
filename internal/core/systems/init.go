// Package systems registers the schema catalog of every measurement system
// with the core registry. Import it for its side effects.
package systems

import "github.com/JonMunkholm/railcsv/internal/core"

// Each system file uses init() to register its catalog.

// positional are the identity and position columns every export carries.
var positional = []core.ColumnDescriptor{
	{Name: "sscount", Required: true, Kind: core.KindNumber},
	{Name: "track", Required: true, Kind: core.KindString},
	{Name: "location", Required: true, Kind: core.KindString},
	{Name: "latitude", Required: true, Kind: core.KindString},
	{Name: "longitude", Required: true, Kind: core.KindString},
	{Name: "ajonopeus", Required: false, Kind: core.KindNumber},
}

// columns builds a catalog: the positional columns first, then one optional
// numeric column per measurement channel.
func columns(channels ...string) []core.ColumnDescriptor {
	out := make([]core.ColumnDescriptor, 0, len(positional)+len(channels))
	out = append(out, positional...)
	for _, ch := range channels {
		out = append(out, core.ColumnDescriptor{Name: ch, Kind: core.KindNumber})
	}
	return out
}
