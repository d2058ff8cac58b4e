package schema

// Kepler lists the ten KOI features the transit classifier was trained on.
var Kepler = []FeatureDescriptor{
	{
		Key:          "koi_period",
		Label:        "Orbital Period (days)",
		Description:  "How long the planet takes to orbit its star.",
		Step:         "0.0001",
		DefaultValue: 10.5,
	},
	{
		Key:          "koi_prad",
		Label:        "Planetary Radius (Earth radii)",
		Description:  "The size of the planet compared to Earth.",
		Step:         "0.01",
		DefaultValue: 2.1,
	},
	{
		Key:          "koi_model_snr",
		Label:        "Signal-to-Noise Ratio",
		Description:  "Strength of the transit signal relative to noise.",
		Step:         "0.1",
		DefaultValue: 35.0,
	},
	{
		Key:          "koi_duration_err1",
		Label:        "Duration Error (+)",
		Description:  "Uncertainty in transit duration (upper bound).",
		Step:         "0.0001",
		DefaultValue: 0.05,
	},
	{
		Key:          "koi_duration_err2",
		Label:        "Duration Error (-)",
		Description:  "Uncertainty in transit duration (lower bound).",
		Step:         "0.0001",
		DefaultValue: -0.05,
	},
	{
		Key:          "koi_prad_err1",
		Label:        "Radius Error (+)",
		Description:  "Uncertainty in planetary radius (upper bound).",
		Step:         "0.01",
		DefaultValue: 0.3,
	},
	{
		Key:          "koi_prad_err2",
		Label:        "Radius Error (-)",
		Description:  "Uncertainty in planetary radius (lower bound).",
		Step:         "0.01",
		DefaultValue: -0.3,
	},
	{
		Key:          "koi_insol_err1",
		Label:        "Insolation Flux Error (+)",
		Description:  "Uncertainty in sunlight received.",
		Step:         "0.1",
		DefaultValue: 5.0,
	},
	{
		Key:          "koi_steff_err1",
		Label:        "Stellar Temp Error (+)",
		Description:  "Uncertainty in star temperature (upper).",
		Step:         "1.0",
		DefaultValue: 80.0,
	},
	{
		Key:          "koi_steff_err2",
		Label:        "Stellar Temp Error (-)",
		Description:  "Uncertainty in star temperature (lower).",
		Step:         "1.0",
		DefaultValue: -80.0,
	},
}

// Default returns the schema built from Kepler.
func Default() *Schema {
	return MustNew(Kepler...)
}
