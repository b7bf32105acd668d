package component

// Port is a docking location. Vessels within Radius of the port's position
// are docked.
type Port struct {
	Name   string  `yaml:"name" json:"name"`
	Radius float64 `yaml:"radius" json:"radius"`
}

// Cargo is a stockpile of units, carried by vessels and stored at ports.
type Cargo struct {
	Units int `yaml:"units" json:"units"`
}
