package systems

import "github.com/JonMunkholm/railcsv/internal/core"

func init() {
	core.Register(core.SystemDefinition{
		System: core.SystemPI,
		Label:  "Pantograph Interaction",
		Columns: columns(
			"kontaktivoima",
			"kontaktivoima_min",
			"kontaktivoima_max",
			"kontaktivoima_keskiarvo",
			"kontaktivoima_keskihajonta",
			"pystysuuntainen_kiihtyvyys_vasen",
			"pystysuuntainen_kiihtyvyys_oikea",
			"valokaari",
			"virroitin_korkeus",
		),
	})
}
