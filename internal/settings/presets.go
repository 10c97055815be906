package settings

// Preset is a named set of thresholds for a kind of plant.
type Preset struct {
	Name       string
	Thresholds Thresholds
}

// Presets are the plant profiles offered on the Presets page.
var Presets = []Preset{
	{Name: "Default", Thresholds: Defaults().Thresholds},
	{Name: "Tomato", Thresholds: Thresholds{
		MinTemp: 18, MaxTemp: 29, MinHumidity: 50, MaxHumidity: 75,
		MinSoilMoisture: 50, LightOnLux: 2000, LightOffLux: 30000,
	}},
	{Name: "Lettuce", Thresholds: Thresholds{
		MinTemp: 10, MaxTemp: 22, MinHumidity: 50, MaxHumidity: 80,
		MinSoilMoisture: 60, LightOnLux: 1000, LightOffLux: 15000,
	}},
	{Name: "Herbs", Thresholds: Thresholds{
		MinTemp: 15, MaxTemp: 27, MinHumidity: 40, MaxHumidity: 70,
		MinSoilMoisture: 35, LightOnLux: 1500, LightOffLux: 25000,
	}},
	{Name: "Seedlings", Thresholds: Thresholds{
		MinTemp: 20, MaxTemp: 26, MinHumidity: 60, MaxHumidity: 85,
		MinSoilMoisture: 65, LightOnLux: 1000, LightOffLux: 10000,
	}},
}

// ApplyPreset replaces the thresholds with the preset's and records its name.
func (s *Settings) ApplyPreset(p Preset) {
	s.Thresholds = p.Thresholds
	s.Preset = p.Name
}
