package systems

import "github.com/JonMunkholm/railcsv/internal/core"

func init() {
	core.Register(core.SystemDefinition{
		System: core.SystemRP,
		Label:  "Rail Profile",
		Columns: columns(
			"rp_ajonopeus",
			"oikea_pystysuora_kuluma",
			"vasen_pystysuora_kuluma",
			"oikea_sivuttaiskuluma",
			"vasen_sivuttaiskuluma",
			"oikea_45_kuluma",
			"vasen_45_kuluma",
			"oikea_kallistus",
			"vasen_kallistus",
			"raideleveys",
			"ekvivalentti_kartiokkuus",
		),
	})
}
