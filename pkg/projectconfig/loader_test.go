package projectconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProjectFile(t *testing.T, dir string, cfg ProjectConfig) string {
	t.Helper()

	data, err := toml.Marshal(File{Cdstail: cfg})
	require.NoError(t, err)

	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("reads the cdstail table", func(t *testing.T) {
		path := writeProjectFile(t, t.TempDir(), ProjectConfig{
			Project:  "MY_PRJ",
			Workflow: "build-and-test",
			Job:      "compile-*",
			Format:   "html",
		})

		config, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "MY_PRJ", config.Project)
		assert.Equal(t, "build-and-test", config.Workflow)
		assert.Equal(t, "compile-*", config.Job)
		assert.Equal(t, "html", config.Format)
		assert.Equal(t, path, config.Path)
	})

	t.Run("missing table", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), FileName)
		require.NoError(t, os.WriteFile(path, []byte("[other]\nkey = 1\n"), 0o644))

		_, err := Load(path)
		assert.ErrorContains(t, err, "'cdstail' key not found")
	})

	t.Run("invalid values", func(t *testing.T) {
		path := writeProjectFile(t, t.TempDir(), ProjectConfig{Project: "lowercase"})

		_, err := Load(path)
		assert.ErrorContains(t, err, "project key")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), FileName))
		assert.ErrorContains(t, err, "config file not found")
	})
}

func TestLoadFromDir(t *testing.T) {
	t.Run("found in a parent directory", func(t *testing.T) {
		root := t.TempDir()
		writeProjectFile(t, root, ProjectConfig{Project: "PRJ", Workflow: "wf"})
		nested := filepath.Join(root, "services", "api")
		require.NoError(t, os.MkdirAll(nested, 0o755))

		config, err := LoadFromDir(nested)
		require.NoError(t, err)
		assert.Equal(t, "PRJ", config.Project)
		assert.Equal(t, "wf", config.Workflow)
	})

	t.Run("no file gives empty defaults", func(t *testing.T) {
		config, err := LoadFromDir(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, ProjectConfig{}, *config)
	})
}

func TestValidate(t *testing.T) {
	tcs := []struct {
		name    string
		config  ProjectConfig
		wantErr bool
	}{
		{name: "empty", config: ProjectConfig{}},
		{name: "full", config: ProjectConfig{Project: "PRJ_1", Workflow: "wf", Job: "build/**", Format: "text"}},
		{name: "bad key", config: ProjectConfig{Project: "prj"}, wantErr: true},
		{name: "bad pattern", config: ProjectConfig{Job: "[unclosed"}, wantErr: true},
		{name: "bad format", config: ProjectConfig{Format: "pdf"}, wantErr: true},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(&tc.config)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
