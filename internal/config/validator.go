package config

import (
	"fmt"
	"strings"
	"unicode"
)

// Validate checks the config for:
//   - Required fields
//   - Duplicate class names and tags
//   - Unknown singleton merge modes
func Validate(cfg *Config) error {
	if cfg.Version == "" {
		return fmt.Errorf("config: version is required")
	}
	var errs []string

	switch cfg.Scene.SingletonMerge {
	case MergeSingleModified, MergeRegular:
	default:
		errs = append(errs, fmt.Sprintf("scene.singleton_merge: unknown mode %q", cfg.Scene.SingletonMerge))
	}
	if cfg.Server.ReadTimeoutMs < 0 || cfg.Server.WriteTimeoutMs < 0 {
		errs = append(errs, "server: timeouts must not be negative")
	}

	names := make(map[string]int)
	tags := make(map[string]string)
	for i, c := range cfg.Scene.Classes {
		loc := fmt.Sprintf("scene.classes[%d]", i)
		if c.Name == "" {
			errs = append(errs, loc+": name is required")
			continue
		}
		if prev, ok := names[c.Name]; ok {
			errs = append(errs, fmt.Sprintf("duplicate class %q (first seen at scene.classes[%d], again at %s)", c.Name, prev, loc))
		} else {
			names[c.Name] = i
		}
		if !alphanumeric(c.Tag) {
			errs = append(errs, fmt.Sprintf("class %s: tag %q must be non-empty and alphanumeric", c.Name, c.Tag))
		} else if prev, ok := tags[c.Tag]; ok && prev != c.Name {
			errs = append(errs, fmt.Sprintf("class %s: tag %q already used by class %s", c.Name, c.Tag, prev))
		} else {
			tags[c.Tag] = c.Name
		}
	}
	for i, p := range cfg.Scene.Preload {
		if p == "" {
			errs = append(errs, fmt.Sprintf("scene.preload[%d]: path is required", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func alphanumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
