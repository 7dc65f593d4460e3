package models

// Feature flag keys gating the public sections.
const (
	FlagCommerce       = "commerce"
	FlagInvestissement = "investissement"
	FlagRecrutement    = "recrutement"
)

// FeatureFlag is a named switch controlling whether a section is served.
type FeatureFlag struct {
	Key    string `db:"flag_key" json:"key"`
	Active bool   `db:"active" json:"active"`
}
