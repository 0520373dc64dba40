package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/delaneyj/strux/changes"
	"github.com/delaneyj/strux/store"
	"gopkg.in/yaml.v3"
)

var ErrUnknownReducerMode = errors.New("unknown reducer mode")

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

type StoreConfig struct {
	Snapshot      string          `yaml:"snapshot"`
	SnapshotEvery time.Duration   `yaml:"snapshot_every"`
	InitialState  map[string]any  `yaml:"initial_state"`
	Reducers      []ReducerConfig `yaml:"reducers"`
}

type BroadcastConfig struct {
	Buffer       int           `yaml:"buffer"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// ReducerConfig describes a reducer without code. Modes:
//
//	set        state[key] = payload
//	merge      every payload key is copied into state
//	increment  state[key] += payload["by"] (1 when missing)
//	delete     state[key] is removed
type ReducerConfig struct {
	Action string `yaml:"action"`
	Mode   string `yaml:"mode"`
	Key    string `yaml:"key"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Path: "/ws",
		},
		Store: StoreConfig{
			SnapshotEvery: 30 * time.Second,
		},
		Broadcast: BroadcastConfig{
			Buffer:       64,
			WriteTimeout: 10 * time.Second,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	for _, r := range cfg.Store.Reducers {
		if _, err := r.Reducer(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (r ReducerConfig) Reducer() (store.Reducer, error) {
	switch r.Mode {
	case "set":
		return func(state changes.Values, action store.Action) (changes.Values, error) {
			state[r.Key] = payload(action)
			return state, nil
		}, nil
	case "merge":
		return func(state changes.Values, action store.Action) (changes.Values, error) {
			for k, v := range payload(action) {
				state[k] = v
			}
			return state, nil
		}, nil
	case "increment":
		return func(state changes.Values, action store.Action) (changes.Values, error) {
			by := 1.0
			if v, ok := number(payload(action)["by"]); ok {
				by = v
			}
			cur, _ := number(state[r.Key])
			state[r.Key] = cur + by
			return state, nil
		}, nil
	case "delete":
		return func(state changes.Values, action store.Action) (changes.Values, error) {
			delete(state, r.Key)
			return state, nil
		}, nil
	}
	return nil, fmt.Errorf("%w %q for %s", ErrUnknownReducerMode, r.Mode, r.Action)
}

// Apply installs every configured reducer and the initial state on s.
func (c *Config) Apply(s *store.Store) error {
	if err := c.InstallReducers(s); err != nil {
		return err
	}
	if c.Store.InitialState != nil {
		if _, err := s.SetInitialState(changes.Values(c.Store.InitialState)); err != nil {
			return fmt.Errorf("initial state: %w", err)
		}
	}
	return nil
}

func (c *Config) InstallReducers(s *store.Store) error {
	for _, rc := range c.Store.Reducers {
		r, err := rc.Reducer()
		if err != nil {
			return err
		}
		s.Reduce(rc.Action, r)
	}
	return nil
}

func payload(action store.Action) changes.Values {
	if m, ok := action.(store.Message); ok && m.Payload != nil {
		return m.Payload
	}
	return changes.Values{}
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
