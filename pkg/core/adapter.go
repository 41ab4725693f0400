package core

// AdapterConfig holds configuration for connecting to a data source.
type AdapterConfig struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	Options  map[string]string
	Params   map[string]any
}

// Column describes a column of a loaded dataset.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Position int
}
