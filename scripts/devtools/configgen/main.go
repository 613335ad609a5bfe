package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cfjudge/internal/config"

	"gopkg.in/yaml.v3"
)

// overrideFlags collects repeated -set key.path=value arguments.
type overrideFlags []string

func (o *overrideFlags) String() string { return strings.Join(*o, ",") }

func (o *overrideFlags) Set(value string) error {
	*o = append(*o, value)
	return nil
}

func main() {
	basePath := flag.String("base", "", "Optional YAML file layered over the built-in defaults")
	outputPath := flag.String("out", config.DefaultPath, "Where to write the generated config")
	var overrides overrideFlags
	flag.Var(&overrides, "set", "Override a key, e.g. -set judge.runTimeout=3s (repeatable)")
	flag.Parse()

	generated, err := generate(*basePath, overrides)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate config failed: %v\n", err)
		os.Exit(1)
	}
	if err := writeYAML(*outputPath, generated); err != nil {
		fmt.Fprintf(os.Stderr, "write config failed: %v\n", err)
		os.Exit(1)
	}
	if _, err := config.Load(*outputPath); err != nil {
		fmt.Fprintf(os.Stderr, "generated config is invalid: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", *outputPath)
}

// generate renders the defaults, then layers the base file and the overrides on top.
func generate(basePath string, overrides []string) (map[string]interface{}, error) {
	defaults, err := defaultTree()
	if err != nil {
		return nil, err
	}
	merged := defaults
	if basePath != "" {
		base, err := loadYAML(basePath)
		if err != nil {
			return nil, err
		}
		out, err := mergeMap(merged, normalizeValue(base))
		if err != nil {
			return nil, err
		}
		merged = out
	}
	for _, raw := range overrides {
		override, err := parseOverride(raw)
		if err != nil {
			return nil, err
		}
		out, err := mergeMap(merged, override)
		if err != nil {
			return nil, err
		}
		merged = out
	}
	return merged, nil
}

func defaultTree() (map[string]interface{}, error) {
	data, err := yaml.Marshal(config.Default())
	if err != nil {
		return nil, fmt.Errorf("marshal defaults failed: %w", err)
	}
	var value interface{}
	if err := yaml.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("parse defaults failed: %w", err)
	}
	tree, ok := normalizeValue(value).(map[string]interface{})
	if !ok {
		return nil, errors.New("defaults are not a map")
	}
	return tree, nil
}

// parseOverride turns "a.b=v" into {a: {b: v}}; the value is decoded as YAML.
func parseOverride(raw string) (map[string]interface{}, error) {
	key, value, ok := strings.Cut(raw, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return nil, fmt.Errorf("override %q must look like key.path=value", raw)
	}
	var decoded interface{}
	if err := yaml.Unmarshal([]byte(value), &decoded); err != nil {
		return nil, fmt.Errorf("parse override %q failed: %w", raw, err)
	}

	parts := strings.Split(key, ".")
	leaf := normalizeValue(decoded)
	for i := len(parts) - 1; i > 0; i-- {
		leaf = map[string]interface{}{parts[i]: leaf}
	}
	return map[string]interface{}{parts[0]: leaf}, nil
}

func loadYAML(path string) (interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read yaml failed: %w", err)
	}

	var value interface{}
	if err := yaml.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("parse yaml failed: %w", err)
	}
	return value, nil
}

func writeYAML(path string, value interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir failed: %w", err)
	}
	data, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal yaml failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write yaml failed: %w", err)
	}
	return nil
}

func normalizeValue(value interface{}) interface{} {
	switch typed := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(typed))
		for k, v := range typed {
			out[k] = normalizeValue(v)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(typed))
		for k, v := range typed {
			key, ok := k.(string)
			if !ok {
				key = fmt.Sprintf("%v", k)
			}
			out[key] = normalizeValue(v)
		}
		return out
	case []interface{}:
		out := make([]interface{}, 0, len(typed))
		for _, item := range typed {
			out = append(out, normalizeValue(item))
		}
		return out
	default:
		return value
	}
}

// mergeMap overlays override onto base recursively; lists and scalars are replaced whole.
func mergeMap(base interface{}, override interface{}) (map[string]interface{}, error) {
	baseMap, ok := base.(map[string]interface{})
	if !ok {
		return nil, errors.New("base config is not a map")
	}
	overrideMap, ok := override.(map[string]interface{})
	if !ok {
		return nil, errors.New("override config is not a map")
	}

	merged := make(map[string]interface{}, len(baseMap))
	for k, v := range baseMap {
		merged[k] = v
	}

	for key, overrideValue := range overrideMap {
		baseValue, exists := merged[key]
		if !exists {
			merged[key] = overrideValue
			continue
		}

		baseChild, baseIsMap := baseValue.(map[string]interface{})
		overrideChild, overrideIsMap := overrideValue.(map[string]interface{})
		if baseIsMap && overrideIsMap {
			combined, err := mergeMap(baseChild, overrideChild)
			if err != nil {
				return nil, err
			}
			merged[key] = combined
			continue
		}
		merged[key] = overrideValue
	}
	return merged, nil
}
