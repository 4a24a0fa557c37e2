package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"automationsim/internal/simulate"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario(t *testing.T) {
	t.Run("full scenario", func(t *testing.T) {
		path := writeFile(t, "scenario.yaml", `
states:
  - entity_id: binary_sensor.door
    state: "on"
    attributes:
      friendly_name: Front Door
overrides:
  light.porch: "off"
time: "22:30"
trigger_id: motion
trigger:
  id: motion
  platform: state
`)
		sc, err := LoadScenario(path)
		require.NoError(t, err)

		require.Len(t, sc.States, 1)
		assert.Equal(t, "binary_sensor.door", sc.States[0].EntityID)
		assert.Equal(t, "Front Door", sc.States[0].Attributes["friendly_name"])
		assert.Equal(t, map[string]string{"light.porch": "off"}, sc.Overrides)
		assert.Equal(t, "22:30", sc.Time)
		assert.Equal(t, "motion", sc.TriggerID)
		assert.Equal(t, "motion", sc.Trigger["id"])
	})

	t.Run("empty path yields empty scenario", func(t *testing.T) {
		sc, err := LoadScenario("")
		require.NoError(t, err)
		assert.Empty(t, sc.States)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeFile(t, "bad.yaml", "states: [unclosed")
		_, err := LoadScenario(path)
		assert.Error(t, err)
	})
}

func TestLoadDocument(t *testing.T) {
	path := writeFile(t, "automation.yaml", `
alias: porch light
condition:
  - condition: state
    entity_id: binary_sensor.door
    state: "on"
action:
  - service: light.turn_on
    target:
      entity_id: light.porch
`)

	doc, err := LoadDocument(path)
	require.NoError(t, err)
	assert.Len(t, doc.Conditions, 1)
	assert.Len(t, doc.Actions, 1)
}

func TestParseDocumentYAML(t *testing.T) {
	t.Run("nested choose", func(t *testing.T) {
		doc, err := ParseDocumentYAML([]byte(`
condition: []
action:
  - choose:
      - conditions:
          - condition: time
            after: "17:00"
        sequence:
          - service: scene.evening
    default:
      - service: scene.day
`))
		require.NoError(t, err)
		require.Len(t, doc.Actions, 1)
		choose, ok := doc.Actions[0].(simulate.ChooseAction)
		require.True(t, ok)
		assert.Len(t, choose.Branches, 1)
		assert.Len(t, choose.Default, 1)
	})

	t.Run("non-mapping document is a structural error", func(t *testing.T) {
		_, err := ParseDocumentYAML([]byte("- just\n- a\n- list\n"))
		require.Error(t, err)
		var structErr *simulate.StructuralError
		assert.ErrorAs(t, err, &structErr)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := ParseDocumentYAML([]byte("{{:::"))
		assert.Error(t, err)
	})
}
