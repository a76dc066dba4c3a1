package command

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/gyaneshwarpardhi/mrmlscene/internal/config"
	"github.com/gyaneshwarpardhi/mrmlscene/internal/engine"
	"github.com/gyaneshwarpardhi/mrmlscene/internal/mrml"
	"github.com/gyaneshwarpardhi/mrmlscene/internal/storage"
)

// newScene returns a scene configured from --config when given.
func (c *CLI) newScene() (*mrml.Scene, error) {
	s := engine.NewScene()
	s.SetLogger(c.logger())
	if c.ConfigPath == "" {
		return s, nil
	}
	l, err := config.NewLoader(c.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := engine.Configure(s, l.Config().Scene); err != nil {
		return nil, err
	}
	return s, nil
}

// importFile imports path into s. Classes the scene does not know are
// registered as generic classes, so any file can be inspected.
func importFile(s *mrml.Scene, path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	classes, err := storage.ClassNames(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, class := range classes {
		if _, known := s.Registry().Create(class); known {
			continue
		}
		tag := strings.TrimSuffix(class, "Node")
		if tag == "" {
			tag = class
		}
		if err := s.RegisterNodeClass(mrml.NewGenericNode(class, tag)); err != nil {
			return nil, fmt.Errorf("%s: class %s: %w", path, class, err)
		}
	}
	remap, err := storage.Import(s, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return remap, nil
}

func (c *CLI) load(path string) (*mrml.Scene, error) {
	s, err := c.newScene()
	if err != nil {
		return nil, err
	}
	if _, err := importFile(s, path); err != nil {
		return nil, err
	}
	return s, nil
}
