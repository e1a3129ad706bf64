package platform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"jdbrun/internal/jdb"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// LaunchProfile is the on-disk form of a launch configuration.
type LaunchProfile struct {
	WorkDir        string            `json:"work_dir,omitempty"`
	JDKPath        string            `json:"jdk_path,omitempty"`
	MainClass      string            `json:"main_class,omitempty"`
	ClassPath      []string          `json:"class_path,omitempty"`
	SourcePath     []string          `json:"source_path,omitempty"`
	VMOptions      []string          `json:"vm_options,omitempty"`
	Args           []string          `json:"args,omitempty"`
	Env            map[string]string `json:"env,omitempty"`
	EnvFile        string            `json:"env_file,omitempty"`
	Attach         *AttachProfile    `json:"attach,omitempty"`
	ListenerBanner string            `json:"listener_banner,omitempty"`
	StopOnEntry    bool              `json:"stop_on_entry,omitempty"`
	ListenTimeout  string            `json:"listen_timeout,omitempty"`
}

// AttachProfile points at an already listening debuggee.
type AttachProfile struct {
	Host string `json:"host,omitempty"`
	Port int    `json:"port"`
}

const profileSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "work_dir":        {"type": "string"},
    "jdk_path":        {"type": "string"},
    "main_class":      {"type": "string", "minLength": 1},
    "class_path":      {"type": "array", "items": {"type": "string"}},
    "source_path":     {"type": "array", "items": {"type": "string"}},
    "vm_options":      {"type": "array", "items": {"type": "string"}},
    "args":            {"type": "array", "items": {"type": "string"}},
    "env":             {"type": "object", "additionalProperties": {"type": "string"}},
    "env_file":        {"type": "string"},
    "attach": {
      "type": "object",
      "additionalProperties": false,
      "required": ["port"],
      "properties": {
        "host": {"type": "string"},
        "port": {"type": "integer", "minimum": 1, "maximum": 65535}
      }
    },
    "listener_banner": {"type": "string"},
    "stop_on_entry":   {"type": "boolean"},
    "listen_timeout":  {"type": "string", "pattern": "^[0-9]+(\\.[0-9]+)?(ns|us|ms|s|m|h)$"}
  },
  "anyOf": [
    {"required": ["main_class"]},
    {"required": ["attach"]}
  ]
}`

var compiledProfileSchema = jsonschema.MustCompileString("launch-profile.json", profileSchema)

// LoadProfile reads the profile at path, applies the merge patch at
// overlayPath when given, validates the result and converts it.
func LoadProfile(path, overlayPath string) (jdb.LaunchConfig, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return jdb.LaunchConfig{}, fmt.Errorf("read profile: %w", err)
	}
	var overlay []byte
	if overlayPath != "" {
		if overlay, err = os.ReadFile(overlayPath); err != nil {
			return jdb.LaunchConfig{}, fmt.Errorf("read profile overlay: %w", err)
		}
	}
	return ParseProfile(doc, overlay)
}

// ParseProfile is LoadProfile on in-memory documents. overlay is an RFC 7386
// merge patch; nil means none.
func ParseProfile(doc, overlay []byte) (jdb.LaunchConfig, error) {
	if len(overlay) > 0 {
		merged, err := jsonpatch.MergePatch(doc, overlay)
		if err != nil {
			return jdb.LaunchConfig{}, fmt.Errorf("apply profile overlay: %w", err)
		}
		doc = merged
	}

	var raw any
	if err := json.Unmarshal(doc, &raw); err != nil {
		return jdb.LaunchConfig{}, fmt.Errorf("parse profile: %w", err)
	}
	if err := compiledProfileSchema.Validate(raw); err != nil {
		return jdb.LaunchConfig{}, fmt.Errorf("invalid profile: %w", err)
	}

	var p LaunchProfile
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return jdb.LaunchConfig{}, fmt.Errorf("decode profile: %w", err)
	}
	return p.LaunchConfig()
}

// LaunchConfig converts the profile.
func (p LaunchProfile) LaunchConfig() (jdb.LaunchConfig, error) {
	cfg := jdb.LaunchConfig{
		WorkDir:        p.WorkDir,
		JDKPath:        p.JDKPath,
		MainClass:      p.MainClass,
		ClassPath:      p.ClassPath,
		SourcePath:     p.SourcePath,
		VMOptions:      p.VMOptions,
		Args:           p.Args,
		Env:            p.Env,
		EnvFile:        p.EnvFile,
		ListenerBanner: p.ListenerBanner,
		StopOnEntry:    p.StopOnEntry,
	}
	if p.Attach != nil {
		cfg.AttachHost = p.Attach.Host
		cfg.AttachPort = p.Attach.Port
	}
	if p.ListenTimeout != "" {
		d, err := time.ParseDuration(p.ListenTimeout)
		if err != nil {
			return jdb.LaunchConfig{}, fmt.Errorf("listen_timeout: %w", err)
		}
		cfg.ListenTimeout = d
	}
	return cfg, cfg.Validate()
}
