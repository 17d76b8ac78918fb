package core

// Variable names read from the project's vars section.
const (
	VarSourceProject = "source_project"
	VarSourceDataset = "source_dataset"
)

// ProjectConfig holds the project/dataset pair shared by every source declaration.
// It is passed by value; nothing in the system mutates it after resolution.
type ProjectConfig struct {
	SourceProject string `koanf:"source_project" json:"source_project" yaml:"source_project"`
	SourceDataset string `koanf:"source_dataset" json:"source_dataset" yaml:"source_dataset"`
}

// Ref builds the TableRef for name under this project/dataset pair.
func (c ProjectConfig) Ref(name string) TableRef {
	return TableRef{
		Database: c.SourceProject,
		Schema:   c.SourceDataset,
		Name:     name,
	}
}

// Variant selects one of the built-in declaration sets.
type Variant string

// Built-in declaration variants.
const (
	VariantMinimal Variant = "minimal"
	VariantFull    Variant = "full"
	// VariantNone loads only the project's own definition files.
	VariantNone Variant = "none"
)

// Variants returns the known variants in display order.
func Variants() []Variant {
	return []Variant{VariantFull, VariantMinimal, VariantNone}
}

// IsValid reports whether v names a known variant.
func (v Variant) IsValid() bool {
	for _, known := range Variants() {
		if v == known {
			return true
		}
	}
	return false
}
