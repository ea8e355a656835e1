package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format 配置文件格式
type Format string

const (
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatTOML    Format = "toml"
	FormatUnknown Format = ""
)

// ParseFormat 解析格式名，yml 视为 yaml
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	default:
		return FormatUnknown, fmt.Errorf("unsupported format: %s", name)
	}
}

// DetectFormat 根据文件扩展名检测格式
func DetectFormat(filename string) Format {
	format, err := ParseFormat(filepath.Ext(filename))
	if err != nil {
		return FormatUnknown
	}
	return format
}

func parseFile(path string) (map[string]any, error) {
	format := DetectFormat(path)
	if format == FormatUnknown {
		return nil, fmt.Errorf("cannot detect format from file extension: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return parse(data, format)
}

func parse(data []byte, format Format) (map[string]any, error) {
	result := make(map[string]any)

	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &result)
	case FormatYAML:
		err = yaml.Unmarshal(data, &result)
	case FormatTOML:
		err = toml.Unmarshal(data, &result)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", format, err)
	}

	// 空文件解析为 nil
	if result == nil {
		result = make(map[string]any)
	}
	return result, nil
}

func marshal(data map[string]any, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(data, "", "  ")
	case FormatYAML:
		return yaml.Marshal(data)
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(data); err != nil {
			return nil, fmt.Errorf("failed to marshal TOML: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}
