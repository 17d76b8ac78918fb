package core

import "strings"

// TableRef identifies one external table in the warehouse.
// Name must be unique within a {Database, Schema} pair across a declaration set.
type TableRef struct {
	Database string `json:"database" yaml:"database" mapstructure:"database"`
	Schema   string `json:"schema" yaml:"schema" mapstructure:"schema"`
	Name     string `json:"name" yaml:"name" mapstructure:"name"`
}

// Key returns the dotted identity "database.schema.name".
func (r TableRef) Key() string {
	return r.Database + "." + r.Schema + "." + r.Name
}

// SQL returns the quoted warehouse identifier, e.g. `proj.dataset.table`.
func (r TableRef) SQL() string {
	return "`" + strings.ReplaceAll(r.Key(), "`", "") + "`"
}

// String implements fmt.Stringer.
func (r TableRef) String() string {
	return r.Key()
}

// IsWellFormed reports whether all three components are non-empty.
func (r TableRef) IsWellFormed() bool {
	return r.Database != "" && r.Schema != "" && r.Name != ""
}

// MissingParts lists the empty components of r, in database/schema/name order.
func (r TableRef) MissingParts() []string {
	var missing []string
	if r.Database == "" {
		missing = append(missing, "database")
	}
	if r.Schema == "" {
		missing = append(missing, "schema")
	}
	if r.Name == "" {
		missing = append(missing, "name")
	}
	return missing
}
