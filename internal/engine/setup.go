package engine

import (
	"errors"
	"fmt"
	"os"

	"github.com/gyaneshwarpardhi/mrmlscene/internal/config"
	"github.com/gyaneshwarpardhi/mrmlscene/internal/hierarchy"
	"github.com/gyaneshwarpardhi/mrmlscene/internal/mrml"
	"github.com/gyaneshwarpardhi/mrmlscene/internal/storage"
)

// NewScene returns a scene with the built-in node classes registered.
func NewScene() *mrml.Scene {
	s := mrml.NewScene()
	if err := hierarchy.Register(s); err != nil {
		panic(err)
	}
	return s
}

// Configure applies the scene section of a config: it registers the
// declared generic classes and sets the singleton merge mode. It is called
// at startup and again on every config reload; classes already registered
// are replaced by their new declaration.
func Configure(s *mrml.Scene, conf config.SceneConf) error {
	switch conf.SingletonMerge {
	case config.MergeRegular:
		s.SetSingletonMergeMode(mrml.CopyRegular)
	default:
		s.SetSingletonMergeMode(mrml.CopySingleModified)
	}
	var errs []error
	for _, c := range conf.Classes {
		proto := mrml.NewGenericNode(c.Name, c.Tag)
		proto.SetSingletonTag(c.SingletonTag)
		if err := s.RegisterNodeClass(proto); err != nil {
			errs = append(errs, fmt.Errorf("class %s: %w", c.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Preload imports each scene file in order.
func Preload(s *mrml.Scene, paths []string) error {
	for _, p := range paths {
		if err := importFile(s, p); err != nil {
			return err
		}
	}
	return nil
}

func importFile(s *mrml.Scene, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("preload: %w", err)
	}
	defer f.Close()
	remap, err := storage.Import(s, f)
	if err != nil {
		return fmt.Errorf("preload %s: %w", path, err)
	}
	s.Logger().Info("scene file imported", "path", path, "remapped", len(remap))
	return nil
}
