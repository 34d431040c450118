package systems

import "github.com/JonMunkholm/railcsv/internal/core"

func init() {
	core.Register(core.SystemDefinition{
		System: core.SystemRC,
		Label:  "Rail Corrugation",
		Columns: columns(
			"running_rms_vasen_10_30",
			"running_rms_oikea_10_30",
			"running_rms_vasen_30_100",
			"running_rms_oikea_30_100",
			"running_rms_vasen_100_300",
			"running_rms_oikea_100_300",
			"running_rms_vasen_300_1000",
			"running_rms_oikea_300_1000",
			"aallonpituus_vasen",
			"aallonpituus_oikea",
		),
	})
}
