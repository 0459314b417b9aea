package raffle

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRaffleConfig(t *testing.T) {
	cfg := DefaultRaffleConfig()
	assert.Len(t, cfg.People, 10)
	assert.Len(t, cfg.Prizes, 8)
	assert.NoError(t, cfg.Validate())

	// 每次返回新的副本
	cfg.People[0] = "changed"
	assert.Equal(t, "张三", DefaultRaffleConfig().People[0])
}

func TestParseRaffleConfig(t *testing.T) {
	tests := []struct {
		name        string
		payload     string
		expectError bool
		expected    *RaffleConfig
	}{
		{
			name:     "valid",
			payload:  `{"people":["A","B"],"prizes":["P1"]}`,
			expected: &RaffleConfig{People: []string{"A", "B"}, Prizes: []string{"P1"}},
		},
		{
			name:     "empty_arrays",
			payload:  `{"people":[],"prizes":[]}`,
			expected: &RaffleConfig{People: []string{}, Prizes: []string{}},
		},
		{
			name:     "unknown_fields_ignored",
			payload:  `{"people":["A"],"prizes":["P1"],"theme":"dark"}`,
			expected: &RaffleConfig{People: []string{"A"}, Prizes: []string{"P1"}},
		},
		{name: "malformed_json", payload: `{"people":`, expectError: true},
		{name: "not_an_object", payload: `["A","B"]`, expectError: true},
		{name: "null", payload: `null`, expectError: true},
		{name: "missing_people", payload: `{"prizes":["P1"]}`, expectError: true},
		{name: "missing_prizes", payload: `{"people":["A"]}`, expectError: true},
		{name: "people_not_array", payload: `{"people":"A","prizes":["P1"]}`, expectError: true},
		{name: "people_null", payload: `{"people":null,"prizes":["P1"]}`, expectError: true},
		{name: "prizes_not_strings", payload: `{"people":["A"],"prizes":[1,2]}`, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseRaffleConfig([]byte(tt.payload))
			if tt.expectError {
				require.Error(t, err)
				assert.True(t, IsConfigFormatError(err))
				assert.Nil(t, cfg)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, cfg)
		})
	}
}

func TestParseRaffleConfig_TooLarge(t *testing.T) {
	payload := `{"people":["` + strings.Repeat("a", MaxConfigPayloadSize) + `"],"prizes":[]}`
	_, err := ParseRaffleConfig([]byte(payload))
	assert.True(t, IsConfigFormatError(err))
}

func TestRaffleConfig_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(&RaffleConfig{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"people":[],"prizes":[]}`, string(data))

	cfg, err := ParseRaffleConfig(data)
	require.NoError(t, err)
	assert.Empty(t, cfg.People)
}

func TestRaffleConfig_Validate(t *testing.T) {
	var nilCfg *RaffleConfig
	assert.True(t, IsConfigFormatError(nilCfg.Validate()))
	assert.True(t, IsConfigFormatError((&RaffleConfig{Prizes: []string{}}).Validate()))
	assert.True(t, IsConfigFormatError((&RaffleConfig{People: []string{}}).Validate()))
	assert.NoError(t, (&RaffleConfig{People: []string{}, Prizes: []string{}}).Validate())
}

func TestParseRaffleConfigYAML(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		cfg, err := ParseRaffleConfigYAML([]byte("people:\n  - A\n  - B\nprizes:\n  - P1\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B"}, cfg.People)
		assert.Equal(t, []string{"P1"}, cfg.Prizes)
	})

	t.Run("empty_lists", func(t *testing.T) {
		cfg, err := ParseRaffleConfigYAML([]byte("people: []\nprizes: []\n"))
		require.NoError(t, err)
		assert.NotNil(t, cfg.People)
		assert.Empty(t, cfg.Prizes)
	})

	t.Run("missing_prizes", func(t *testing.T) {
		_, err := ParseRaffleConfigYAML([]byte("people:\n  - A\n"))
		assert.True(t, IsConfigFormatError(err))
	})

	t.Run("scalar_people", func(t *testing.T) {
		_, err := ParseRaffleConfigYAML([]byte("people: A\nprizes: []\n"))
		assert.True(t, IsConfigFormatError(err))
	})
}

func TestLoadRaffleConfigFile(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "roster.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"people":["A"],"prizes":["P1"]}`), 0o644))
	cfg, err := LoadRaffleConfigFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, cfg.People)

	yamlPath := filepath.Join(dir, "roster.YML")
	require.NoError(t, os.WriteFile(yamlPath, []byte("people: [B]\nprizes: [P2]\n"), 0o644))
	cfg, err = LoadRaffleConfigFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, cfg.People)
	assert.Equal(t, []string{"P2"}, cfg.Prizes)

	txtPath := filepath.Join(dir, "roster.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("A"), 0o644))
	_, err = LoadRaffleConfigFile(txtPath)
	assert.True(t, IsConfigFormatError(err))

	_, err = LoadRaffleConfigFile(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, ErrConfigInvalid)
}
