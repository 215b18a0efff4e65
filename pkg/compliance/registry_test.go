package compliance

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govassist-labs/mesob/core/pkg/contracts"
)

const playbookYAML = `schema_version: "1.0.0"
jurisdiction: addis-ababa
service: Trade License
action: renewal
steps:
  - name: submit-evidence
    requirements:
      - TradeLicense
      - TIN
  - name: premises
    requirements:
      - Lease
`

func TestRegistryLoadAndLookup(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "trade-license.yaml"), []byte(playbookYAML), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	registry, err := NewRegistry()
	require.NoError(t, err)
	require.NoError(t, registry.LoadDir(dir))
	assert.Equal(t, 1, registry.Len())

	playbook, err := registry.Lookup("Trade License", "renewal")
	require.NoError(t, err)
	assert.Equal(t, "addis-ababa", playbook.Jurisdiction)
	assert.Len(t, playbook.Steps, 2)

	// Lookup is case- and whitespace-insensitive.
	_, err = registry.Lookup("trade license", " RENEWAL ")
	assert.NoError(t, err)
}

func TestRegistryLookupMissIsEngineGap(t *testing.T) {
	registry, err := NewRegistry()
	require.NoError(t, err)

	_, err = registry.Lookup("Passport", "renewal")
	assert.ErrorIs(t, err, ErrNoPlaybook)
}

func TestRegistryRejectsInvalidPlaybooks(t *testing.T) {
	registry, err := NewRegistry()
	require.NoError(t, err)

	// Missing required fields fails schema validation.
	err = registry.Register(contracts.Playbook{SchemaVersion: "1.0.0", Service: "X"})
	assert.Error(t, err)

	// Unsupported schema version is rejected.
	err = registry.Register(contracts.Playbook{
		SchemaVersion: "2.0.0",
		Service:       "Trade License",
		Action:        "renewal",
		Steps:         []contracts.PlaybookStep{{Name: "s"}},
	})
	assert.Error(t, err)

	// Garbage version strings are rejected.
	err = registry.Register(contracts.Playbook{
		SchemaVersion: "not-a-version",
		Service:       "Trade License",
		Action:        "renewal",
		Steps:         []contracts.PlaybookStep{{Name: "s"}},
	})
	assert.Error(t, err)
}
