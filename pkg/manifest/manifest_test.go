package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validManifestYAML returns a minimal valid manifest in YAML format.
func validManifestYAML() string {
	return `version: "1.0"
seed: 064ad7f4-8d16-4dd2-94b1-1dd1c45c3832
depth_limit: 3
`
}

// validManifestJSON returns a minimal valid manifest in JSON format.
func validManifestJSON() string {
	return `{
  "version": "1.0",
  "seed": "064ad7f4-8d16-4dd2-94b1-1dd1c45c3832",
  "depth_limit": 3
}`
}

// manifestWithSchemaYAML returns a manifest with the $schema field for editor support.
func manifestWithSchemaYAML() string {
	return `$schema: https://schemas.3leaps.dev/floratings/v1.0.0/crawl-manifest.schema.json
version: "1.0"
seed: 064ad7f4-8d16-4dd2-94b1-1dd1c45c3832
`
}

// fullManifestYAML returns a complete manifest with all optional fields.
func fullManifestYAML() string {
	return `version: "1.0"
seed: 064ad7f4-8d16-4dd2-94b1-1dd1c45c3832
depth_limit: 5
reset: true
weight_classes:
  - "133"
  - "141"
start_date: "2024-01-01"
end_date: "2024-12-31"
store_path: /tmp/data.db
rate_limit: 5.5
tau: 0.3
`
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		filename    string
		wantErr     bool
		errContains string
		validate    func(t *testing.T, m *Manifest)
	}{
		{
			name:     "valid YAML manifest",
			content:  validManifestYAML(),
			filename: "manifest.yaml",
			wantErr:  false,
			validate: func(t *testing.T, m *Manifest) {
				assert.Equal(t, "1.0", m.Version)
				assert.Equal(t, "064ad7f4-8d16-4dd2-94b1-1dd1c45c3832", m.Seed)
				assert.Equal(t, 3, m.DepthLimit)
				assert.Equal(t, DefaultTau, m.Tau)
			},
		},
		{
			name:     "valid JSON manifest",
			content:  validManifestJSON(),
			filename: "manifest.json",
			wantErr:  false,
			validate: func(t *testing.T, m *Manifest) {
				assert.Equal(t, "1.0", m.Version)
				assert.Equal(t, "064ad7f4-8d16-4dd2-94b1-1dd1c45c3832", m.Seed)
			},
		},
		{
			name:     "manifest with $schema field",
			content:  manifestWithSchemaYAML(),
			filename: "with-schema.yaml",
			wantErr:  false,
			validate: func(t *testing.T, m *Manifest) {
				assert.Equal(t, "https://schemas.3leaps.dev/floratings/v1.0.0/crawl-manifest.schema.json", m.Schema)
				assert.Equal(t, "1.0", m.Version)
			},
		},
		{
			name:     "full manifest with all options",
			content:  fullManifestYAML(),
			filename: "full.yaml",
			wantErr:  false,
			validate: func(t *testing.T, m *Manifest) {
				assert.Equal(t, 5, m.DepthLimit)
				assert.True(t, m.Reset)
				assert.Equal(t, []string{"133", "141"}, m.WeightClasses)
				assert.Equal(t, "2024-01-01", m.StartDate)
				assert.Equal(t, "2024-12-31", m.EndDate)
				assert.Equal(t, "/tmp/data.db", m.StorePath)
				assert.InDelta(t, 5.5, m.RateLimit, 0.001)
				assert.InDelta(t, 0.3, m.Tau, 0.001)
			},
		},
		{
			name:     "yml extension works",
			content:  validManifestYAML(),
			filename: "manifest.yml",
			wantErr:  false,
		},
		{
			name:        "empty file",
			content:     "",
			filename:    "empty.yaml",
			wantErr:     true,
			errContains: "empty",
		},
		{
			name:        "invalid YAML syntax",
			content:     "version: [invalid yaml",
			filename:    "bad.yaml",
			wantErr:     true,
			errContains: "invalid YAML",
		},
		{
			name:        "invalid JSON syntax",
			content:     `{"version": "1.0"`,
			filename:    "bad.json",
			wantErr:     true,
			errContains: "invalid JSON",
		},
		{
			name:        "missing version",
			content:     `seed: abc`,
			filename:    "no-version.yaml",
			wantErr:     true,
			errContains: "version",
		},
		{
			name:        "wrong version",
			content:     `version: "2.0"`,
			filename:    "wrong-version.yaml",
			wantErr:     true,
			errContains: "version",
		},
		{
			name: "depth limit too high",
			content: `version: "1.0"
depth_limit: 100
`,
			filename:    "high-depth.yaml",
			wantErr:     true,
			errContains: "depth_limit",
		},
		{
			name: "depth limit too low",
			content: `version: "1.0"
depth_limit: 0
`,
			filename:    "zero-depth.yaml",
			wantErr:     true,
			errContains: "depth_limit",
		},
		{
			name: "negative rate limit",
			content: `version: "1.0"
rate_limit: -1
`,
			filename:    "neg-rate.yaml",
			wantErr:     true,
			errContains: "rate_limit",
		},
		{
			name: "bad start_date format",
			content: `version: "1.0"
start_date: "not-a-date"
`,
			filename:    "bad-date.yaml",
			wantErr:     true,
			errContains: "start_date",
		},
		{
			name: "unknown field rejected",
			content: `version: "1.0"
unknown_field: value
`,
			filename:    "unknown-field.yaml",
			wantErr:     true,
			errContains: "additional",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			path := filepath.Join(tmpDir, tt.filename)
			err := os.WriteFile(path, []byte(tt.content), 0o644)
			require.NoError(t, err)

			m, err := Load(path)

			if tt.wantErr {
				require.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, strings.ToLower(err.Error()), strings.ToLower(tt.errContains),
						"error should contain %q", tt.errContains)
				}
				return
			}

			require.NoError(t, err)
			require.NotNil(t, m)

			if tt.validate != nil {
				tt.validate(t, m)
			}
		})
	}
}

func TestLoad_FileErrors(t *testing.T) {
	t.Run("file not found", func(t *testing.T) {
		_, err := Load("/nonexistent/path/manifest.yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("permission denied", func(t *testing.T) {
		if os.Getuid() == 0 {
			t.Skip("skipping permission test when running as root")
		}

		tmpDir := t.TempDir()
		path := filepath.Join(tmpDir, "noperm.yaml")
		err := os.WriteFile(path, []byte(validManifestYAML()), 0o000)
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = os.Chmod(path, 0o644)
		})

		_, err = Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "permission")
	})
}

func TestLoadFromBytes(t *testing.T) {
	t.Run("YAML by extension", func(t *testing.T) {
		m, err := LoadFromBytes([]byte(validManifestYAML()), "test.yaml")
		require.NoError(t, err)
		assert.Equal(t, "064ad7f4-8d16-4dd2-94b1-1dd1c45c3832", m.Seed)
	})

	t.Run("JSON by extension", func(t *testing.T) {
		m, err := LoadFromBytes([]byte(validManifestJSON()), "test.json")
		require.NoError(t, err)
		assert.Equal(t, "064ad7f4-8d16-4dd2-94b1-1dd1c45c3832", m.Seed)
	})

	t.Run("auto-detect YAML", func(t *testing.T) {
		m, err := LoadFromBytes([]byte(validManifestYAML()), "")
		require.NoError(t, err)
		assert.Equal(t, "064ad7f4-8d16-4dd2-94b1-1dd1c45c3832", m.Seed)
	})

	t.Run("auto-detect JSON", func(t *testing.T) {
		m, err := LoadFromBytes([]byte(validManifestJSON()), "")
		require.NoError(t, err)
		assert.Equal(t, "064ad7f4-8d16-4dd2-94b1-1dd1c45c3832", m.Seed)
	})

	t.Run("unknown extension tries both", func(t *testing.T) {
		m, err := LoadFromBytes([]byte(validManifestYAML()), "test.txt")
		require.NoError(t, err)
		assert.Equal(t, "064ad7f4-8d16-4dd2-94b1-1dd1c45c3832", m.Seed)
	})
}

func TestLoadFromReader(t *testing.T) {
	t.Run("reads from reader", func(t *testing.T) {
		r := strings.NewReader(validManifestYAML())
		m, err := LoadFromReader(r, "test.yaml")
		require.NoError(t, err)
		assert.Equal(t, "064ad7f4-8d16-4dd2-94b1-1dd1c45c3832", m.Seed)
	})
}

func TestApplyDefaults(t *testing.T) {
	t.Run("applies all defaults", func(t *testing.T) {
		m := &Manifest{Version: "1.0"}

		m.ApplyDefaults()

		assert.Equal(t, DefaultDepthLimit, m.DepthLimit)
		assert.Equal(t, DefaultTau, m.Tau)
	})

	t.Run("preserves explicit values", func(t *testing.T) {
		m := &Manifest{
			Version:    "1.0",
			DepthLimit: 8,
			Tau:        0.2,
		}

		m.ApplyDefaults()

		assert.Equal(t, 8, m.DepthLimit)
		assert.InDelta(t, 0.2, m.Tau, 0.001)
	})

	t.Run("zero rate limit is valid", func(t *testing.T) {
		m := &Manifest{RateLimit: 0}

		m.ApplyDefaults()

		assert.Equal(t, 0.0, m.RateLimit)
	})
}

func TestValidationErrors(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		errs := ValidationErrors{
			{Path: "/version", Message: "required"},
		}
		assert.Contains(t, errs.Error(), "/version")
		assert.Contains(t, errs.Error(), "required")
	})

	t.Run("multiple errors", func(t *testing.T) {
		errs := ValidationErrors{
			{Path: "/version", Message: "required"},
			{Path: "/seed", Message: "must not be empty"},
		}
		errStr := errs.Error()
		assert.Contains(t, errStr, "2 errors")
		assert.Contains(t, errStr, "/version")
		assert.Contains(t, errStr, "/seed")
	})

	t.Run("empty path", func(t *testing.T) {
		errs := ValidationErrors{
			{Path: "", Message: "root error"},
		}
		assert.Equal(t, "root error", errs.Error())
	})

	t.Run("unwrap returns ErrValidationFailed", func(t *testing.T) {
		errs := ValidationErrors{{Path: "/x", Message: "bad"}}
		assert.True(t, errors.Is(errs, ErrValidationFailed))
	})
}

func TestValidate(t *testing.T) {
	t.Run("valid manifest passes", func(t *testing.T) {
		m := &Manifest{
			Version:    "1.0",
			Seed:       "064ad7f4-8d16-4dd2-94b1-1dd1c45c3832",
			DepthLimit: 3,
		}
		err := Validate(m)
		assert.NoError(t, err)
	})

	t.Run("invalid manifest fails", func(t *testing.T) {
		m := &Manifest{
			Version:    "1.0",
			DepthLimit: 999,
		}
		err := Validate(m)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrValidationFailed))
	})
}

func TestValidationError_Error(t *testing.T) {
	t.Run("with path", func(t *testing.T) {
		e := ValidationError{Path: "/foo/bar", Message: "invalid"}
		assert.Equal(t, "/foo/bar: invalid", e.Error())
	})

	t.Run("without path", func(t *testing.T) {
		e := ValidationError{Path: "", Message: "something wrong"}
		assert.Equal(t, "something wrong", e.Error())
	})
}

func TestValidate_EmbeddedSchema(t *testing.T) {
	// Verifies validation works from any directory, proving the embedded
	// schema is used rather than a disk-based lookup.
	t.Run("works from arbitrary directory", func(t *testing.T) {
		originalDir, err := os.Getwd()
		require.NoError(t, err)

		tmpDir := t.TempDir()
		err = os.Chdir(tmpDir)
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = os.Chdir(originalDir)
		})

		m := &Manifest{Version: "1.0", Seed: "abc", DepthLimit: 3}
		err = Validate(m)
		assert.NoError(t, err, "validation should work from any directory using embedded schema")
	})

	t.Run("validation errors work from arbitrary directory", func(t *testing.T) {
		originalDir, err := os.Getwd()
		require.NoError(t, err)

		tmpDir := t.TempDir()
		err = os.Chdir(tmpDir)
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = os.Chdir(originalDir)
		})

		m := &Manifest{Version: "1.0", DepthLimit: 999}
		err = Validate(m)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrValidationFailed))
	})
}
