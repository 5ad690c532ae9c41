// Package projectconfig reads the optional .cdstail.toml that supplies
// defaults for the step command in a repository.
package projectconfig

// FileName is the project file looked up from the working directory upwards
const FileName = ".cdstail.toml"

// ProjectConfig is the [cdstail] table of the project file
type ProjectConfig struct {
	// Project is the CDS project key
	Project  string `mapstructure:"project" toml:"project"`
	Workflow string `mapstructure:"workflow" toml:"workflow"`
	// Job is the default job name pattern
	Job    string `mapstructure:"job" toml:"job,omitempty"`
	Format string `mapstructure:"format" toml:"format,omitempty"`

	// Path is the file the values came from
	Path string `mapstructure:"-" toml:"-"`
}

// File is the whole project file
type File struct {
	Cdstail ProjectConfig `toml:"cdstail"`
}
