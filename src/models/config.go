package models

// MConfig Structure
type MConfig struct {
	Name      string              `yaml:"name" validate:"required"`
	Host      string              `yaml:"host"`
	Port      int                 `yaml:"port"`
	LogLevel  string              `yaml:"log_level" validate:"omitempty,oneof=DEBUG INFO WARNING ERROR debug info warning error"`
	LogFormat string              `yaml:"log_format" validate:"omitempty,oneof=json console"`
	GrpcHost  string              `yaml:"grpc_host"`
	GrpcPort  int                 `yaml:"grpc_port"`
	Storage   MStorageConfig      `yaml:"storage"`
	Engine    MEngineConfig       `yaml:"engine"`
	Sources   []MSourceDescriptor `yaml:"sources" validate:"dive"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type" validate:"omitempty,oneof=memory sqlite postgres"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}

type MEngineConfig struct {
	Workers     int    `yaml:"workers" validate:"gte=0"`
	ExtractDir  string `yaml:"extract_dir"`
	PollSeconds int    `yaml:"poll_seconds" validate:"gte=0"`
}

// -----------------------------------------------------------------------------

// Source returns the descriptor with the given id.
func (c *MConfig) Source(id string) (MSourceDescriptor, bool) {
	for _, s := range c.Sources {
		if s.SourceID == id {
			return s, true
		}
	}
	return MSourceDescriptor{}, false
}
