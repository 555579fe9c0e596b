package models

// CatalogSeed is the operator-edited catalog definition ingested into the
// evidence store. Locations are keyed by device type.
type CatalogSeed struct {
	Subtypes []SeedSubtype `yaml:"subtypes"`
}

type SeedSubtype struct {
	Name  string     `yaml:"name"`
	Items []SeedItem `yaml:"items"`
}

type SeedItem struct {
	Name         string              `yaml:"name"`
	Significance string              `yaml:"significance"`
	Locations    map[string][]string `yaml:"locations"`
}
