package raffle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// RaffleConfig is the persisted participant roster and prize list
type RaffleConfig struct {
	People []string `json:"people" yaml:"people"`
	Prizes []string `json:"prizes" yaml:"prizes"`
}

// DefaultRaffleConfig returns the compiled-in sample configuration
func DefaultRaffleConfig() *RaffleConfig {
	return &RaffleConfig{
		People: []string{
			"张三", "李四", "王五", "赵六", "钱七",
			"孙八", "周九", "吴十", "郑一", "刘二",
		},
		Prizes: []string{
			"一等奖：iPhone 15",
			"二等奖：iPad Air",
			"三等奖：AirPods",
			"四等奖：智能手表",
			"五等奖：蓝牙耳机",
			"纪念奖：保温杯",
			"纪念奖：数据线",
			"纪念奖：鼠标垫",
		},
	}
}

// Clone returns a deep copy
func (c *RaffleConfig) Clone() *RaffleConfig {
	return &RaffleConfig{People: copyStrings(c.People), Prizes: copyStrings(c.Prizes)}
}

// Validate checks that both lists are present
func (c *RaffleConfig) Validate() error {
	if c == nil {
		return NewConfigFormatError("config is nil")
	}
	if c.People == nil {
		return NewConfigFormatError("people must be an array of strings")
	}
	if c.Prizes == nil {
		return NewConfigFormatError("prizes must be an array of strings")
	}
	return nil
}

// MarshalJSON always encodes both lists as arrays, never null
func (c RaffleConfig) MarshalJSON() ([]byte, error) {
	type plain RaffleConfig
	return json.Marshal(plain{People: copyStrings(c.People), Prizes: copyStrings(c.Prizes)})
}

// ParseRaffleConfig decodes a JSON payload of the form {"people": [...], "prizes": [...]}.
// A payload that is not an object, or whose people or prizes field is missing or not an
// array of strings, yields a ConfigFormatError. Unknown fields are ignored.
func ParseRaffleConfig(data []byte) (*RaffleConfig, error) {
	if len(data) > MaxConfigPayloadSize {
		return nil, NewConfigFormatError(fmt.Sprintf("payload exceeds %d bytes", MaxConfigPayloadSize))
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, ErrConfigFormat.WithDetails("payload must be a JSON object").WithCause(err)
	}

	people, err := stringArrayField(fields, "people")
	if err != nil {
		return nil, err
	}
	prizes, err := stringArrayField(fields, "prizes")
	if err != nil {
		return nil, err
	}

	return &RaffleConfig{People: people, Prizes: prizes}, nil
}

func stringArrayField(fields map[string]json.RawMessage, name string) ([]string, error) {
	raw, ok := fields[name]
	if !ok {
		return nil, NewConfigFormatError(name + " is required")
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, NewConfigFormatError(name + " must be an array of strings")
	}

	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, ErrConfigFormat.WithDetails(name + " must be an array of strings").WithCause(err)
	}
	return copyStrings(values), nil
}

// ParseRaffleConfigYAML decodes a YAML document with people and prizes sequences
func ParseRaffleConfigYAML(data []byte) (*RaffleConfig, error) {
	if len(data) > MaxConfigPayloadSize {
		return nil, NewConfigFormatError(fmt.Sprintf("payload exceeds %d bytes", MaxConfigPayloadSize))
	}

	var doc struct {
		People *[]string `yaml:"people"`
		Prizes *[]string `yaml:"prizes"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, ErrConfigFormat.WithDetails("invalid YAML document").WithCause(err)
	}
	if doc.People == nil {
		return nil, NewConfigFormatError("people is required")
	}
	if doc.Prizes == nil {
		return nil, NewConfigFormatError("prizes is required")
	}

	return &RaffleConfig{People: copyStrings(*doc.People), Prizes: copyStrings(*doc.Prizes)}, nil
}

// LoadRaffleConfigFile reads a roster file, choosing the decoder by extension
// (.json, .yaml or .yml)
func LoadRaffleConfigFile(path string) (*RaffleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrConfigInvalid.WithDetails("failed to read roster file " + path).WithCause(err)
	}
	return parseRaffleConfigByExt(path, data)
}

func parseRaffleConfigByExt(path string, data []byte) (*RaffleConfig, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return ParseRaffleConfig(data)
	case ".yaml", ".yml":
		return ParseRaffleConfigYAML(data)
	default:
		return nil, NewConfigFormatError("unsupported roster file extension " + ext)
	}
}
