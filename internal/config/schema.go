package config

// Config is the top-level YAML structure.
type Config struct {
	Version string     `yaml:"version"`
	Server  ServerConf `yaml:"server"`
	Scene   SceneConf  `yaml:"scene"`
}

// ServerConf holds the HTTP listener settings.
type ServerConf struct {
	Addr           string `yaml:"addr"`
	ReadTimeoutMs  int    `yaml:"read_timeout_ms"`
	WriteTimeoutMs int    `yaml:"write_timeout_ms"`
}

// Singleton merge modes.
const (
	MergeSingleModified = "single_modified"
	MergeRegular        = "regular"
)

// SceneConf describes how the served scene is set up.
type SceneConf struct {
	// SingletonMerge selects how an added singleton is copied into the
	// existing one: MergeSingleModified or MergeRegular.
	SingletonMerge string `yaml:"singleton_merge"`
	// Preload lists scene files imported, in order, at startup.
	Preload []string   `yaml:"preload"`
	Classes []ClassDef `yaml:"classes"`
}

// ClassDef declares a generic node class to register on the scene.
type ClassDef struct {
	Name         string `yaml:"name"`
	Tag          string `yaml:"tag"`
	SingletonTag string `yaml:"singleton_tag"`
}
