package output

// SourceInfo describes one declared source in JSON output.
type SourceInfo struct {
	Database string `json:"database"`
	Schema   string `json:"schema"`
	Name     string `json:"name"`
	SQL      string `json:"sql"`
	File     string `json:"file"`
}

// ListOutput is the JSON shape of the list command.
type ListOutput struct {
	Variant    string       `json:"variant"`
	Sources    []SourceInfo `json:"sources"`
	Duplicates []SourceInfo `json:"duplicates,omitempty"`
	Total      int          `json:"total"`
}

// QueryInfo is one rendered assertion query.
type QueryInfo struct {
	Kind string `json:"kind"`
	SQL  string `json:"sql"`
}

// AssertionsOutput is the JSON shape of the assertions command.
type AssertionsOutput struct {
	UniqueKey []string    `json:"uniqueKey"`
	NonNull   []string    `json:"nonNull"`
	Source    *SourceInfo `json:"source,omitempty"`
	Queries   []QueryInfo `json:"queries,omitempty"`
}

// CompileInfo summarizes one recorded compile.
type CompileInfo struct {
	ID             string `json:"id"`
	Variant        string `json:"variant"`
	SourceProject  string `json:"source_project"`
	SourceDataset  string `json:"source_dataset"`
	SourceCount    int    `json:"source_count"`
	DuplicateCount int    `json:"duplicate_count"`
	CreatedAt      string `json:"created_at"`
}

// DiffOutput is the JSON shape of the diff command.
type DiffOutput struct {
	From    string   `json:"from"`
	To      string   `json:"to"`
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

// VerifyResult is one source's verification outcome.
type VerifyResult struct {
	Source string `json:"source"`
	Exists bool   `json:"exists"`
	Error  string `json:"error,omitempty"`
}

// VerifyOutput is the JSON shape of the verify command.
type VerifyOutput struct {
	Warehouse string         `json:"warehouse"`
	Results   []VerifyResult `json:"results"`
	Total     int            `json:"total"`
	Found     int            `json:"found"`
	Missing   int            `json:"missing"`
	Errored   int            `json:"errored"`
}
