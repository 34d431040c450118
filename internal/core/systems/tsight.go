package systems

import "github.com/JonMunkholm/railcsv/internal/core"

func init() {
	core.Register(core.SystemDefinition{
		System: core.SystemTSIGHT,
		Label:  "T-Sight",
		Columns: columns(
			"ballast_left",
			"ballast_right",
			"ballast_shoulder_left",
			"ballast_shoulder_right",
			"sleeper_distance",
			"sleeper_angle",
			"fastening_missing",
			"rail_head_defect",
		),
	})
}
