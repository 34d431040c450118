package systems

import "github.com/JonMunkholm/railcsv/internal/core"

func init() {
	core.Register(core.SystemDefinition{
		System: core.SystemAMS,
		Label:  "Running Dynamics",
		Columns: columns(
			"ams_ajonopeus",
			"oikea_pystysuuntainen_kiihtyvyys",
			"vasen_pystysuuntainen_kiihtyvyys",
			"oikea_poikittainen_kiihtyvyys",
			"vasen_poikittainen_kiihtyvyys",
			"pystysuuntainen_kiihtyvyys_rms",
			"poikittainen_kiihtyvyys_rms",
			"oikea_pystysuuntainen_kiihtyvyys_c",
			"vasen_pystysuuntainen_kiihtyvyys_c",
			"oikea_poikittainen_kiihtyvyys_c",
			"vasen_poikittainen_kiihtyvyys_c",
			"vaunun_pystysuuntainen_kiihtyvyys",
			"vaunun_poikittainen_kiihtyvyys",
		),
	})
}
