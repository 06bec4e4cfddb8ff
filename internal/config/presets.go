package config

import "sort"

// Presets: "small" is a unit domain on the dense grid, "large" a 10× domain
// on the sparse grid (dense would need 250³ cells there). "fine" and
// "crowded" exercise a decoupled cell size and tight capacities.
var Presets = map[string]*Config{
	"small": {
		Search: SearchConfig{
			SupportRadius: 0.04, DomainSize: [3]float64{1, 1, 1}, Storage: "dense",
			CellCapacity: DefaultCellCapacity, NeighborCapacity: DefaultNeighborCapacity,
		},
		Source: SourceConfig{Cube: CubeConfig{Origin: [3]float64{0.1, 0.1, 0.1}, Edge: 0.5, Spacing: 0.025}},
		Output: OutputConfig{Dir: DefaultOutputDir},
	},
	"large": {
		Search: SearchConfig{
			SupportRadius: 0.04, DomainSize: [3]float64{10, 10, 10}, Storage: "sparse",
			CellCapacity: DefaultCellCapacity, NeighborCapacity: DefaultNeighborCapacity,
		},
		Source: SourceConfig{Cube: CubeConfig{Origin: [3]float64{0.1, 0.1, 0.1}, Edge: 0.5, Spacing: 0.025}},
		Output: OutputConfig{Dir: DefaultOutputDir},
	},
	"fine": {
		Search: SearchConfig{
			SupportRadius: 0.04, CellSize: 0.02, DomainSize: [3]float64{1, 1, 1}, Storage: "dense",
			CellCapacity: 16, NeighborCapacity: DefaultNeighborCapacity,
		},
		Source: SourceConfig{Cube: CubeConfig{Origin: [3]float64{0.1, 0.1, 0.1}, Edge: 0.5, Spacing: 0.025}},
		Output: OutputConfig{Dir: DefaultOutputDir},
	},
	"crowded": {
		Search: SearchConfig{
			SupportRadius: 0.04, DomainSize: [3]float64{1, 1, 1}, Storage: "dense",
			CellCapacity: 4, NeighborCapacity: 8,
		},
		Source: SourceConfig{Cube: CubeConfig{Origin: [3]float64{0.1, 0.1, 0.1}, Edge: 0.3, Spacing: 0.01}, Jitter: 0.002, Seed: 1},
		Output: OutputConfig{Dir: DefaultOutputDir},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := *p
	return &cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
