package systems

import "github.com/JonMunkholm/railcsv/internal/core"

func init() {
	core.Register(core.SystemDefinition{
		System: core.SystemOHL,
		Label:  "Over Head Line Geometry and Wear",
		Columns: columns(
			"ohl_ajonopeus",
			"siksak_1",
			"siksak_2",
			"korkeus_1",
			"korkeus_2",
			"residual_area_1",
			"residual_area_2",
			"remaining_thickness_1",
			"remaining_thickness_2",
			"kaltevuus",
			"pinnan_leveys_1",
			"pinnan_leveys_2",
			"ylakulma",
			"alakulma",
		),
	})
}
