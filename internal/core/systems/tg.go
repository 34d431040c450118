package systems

import "github.com/JonMunkholm/railcsv/internal/core"

func init() {
	core.Register(core.SystemDefinition{
		System: core.SystemTG,
		Label:  "Track Geometry",
		Columns: columns(
			"raideleveys",
			"raideleveyden_muutos",
			"kallistus",
			"kierous",
			"nuoli_vasen",
			"nuoli_oikea",
			"korkeuspoikkeama_vasen",
			"korkeuspoikkeama_oikea",
			"kaarevuus",
			"sivusiirtyma_vasen",
			"sivusiirtyma_oikea",
		),
	})
}
