// Package config loads tool settings from flags, CLIPFORGE_* environment
// variables and an optional config file.
package config

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"clipforge/internal/dirs"
)

// Settings are the tool-level knobs. Editing parameters are not settings;
// they belong to each export.
type Settings struct {
	OutDir        string
	WorkDir       string
	FFmpeg        string
	FFprobe       string
	DLBinary      string
	WhisperBinary string
	WhisperModel  string
	FontDirs      []string
	LogLevel      string
	LogJSON       bool
	Verbose       bool
	HistoryDB     string
	Listen        string
}

// flagKeys maps persistent flag names to viper keys.
var flagKeys = map[string]string{
	"out-dir":       "out_dir",
	"work-dir":      "work_dir",
	"ffmpeg":        "ffmpeg",
	"ffprobe":       "ffprobe",
	"dl-binary":     "dl_binary",
	"whisper":       "whisper_binary",
	"whisper-model": "whisper_model",
	"font-dir":      "font_dirs",
	"log-level":     "log_level",
	"log-json":      "log_json",
	"verbose":       "verbose",
	"history-db":    "history_db",
}

// Init wires Viper with config paths, env, defaults, and flag bindings.
// It is non-fatal: a missing config file is not an error.
func Init(root *cobra.Command) error {
	_ = dirs.EnsureAll()

	if cfgDir, err := dirs.ConfigDir(); err == nil {
		viper.AddConfigPath(cfgDir)
	}
	viper.SetConfigName("config") // config.{yaml|yml|json|toml}

	viper.SetEnvPrefix("CLIPFORGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	setDefaults(viper.GetViper())

	for flag, key := range flagKeys {
		if f := root.PersistentFlags().Lookup(flag); f != nil {
			if err := viper.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	if d, err := dirs.DefaultOutputDir(); err == nil {
		v.SetDefault("out_dir", d)
	}
	if d, err := dirs.ScratchDir(); err == nil {
		v.SetDefault("work_dir", d)
	}
	if p, err := dirs.HistoryDB(); err == nil {
		v.SetDefault("history_db", p)
	}
	v.SetDefault("log_level", "info")
	v.SetDefault("listen", "127.0.0.1:8765")
}

// Load reads the current settings from v, or the global viper when v is nil.
func Load(v *viper.Viper) Settings {
	if v == nil {
		v = viper.GetViper()
	}
	return Settings{
		OutDir:        v.GetString("out_dir"),
		WorkDir:       v.GetString("work_dir"),
		FFmpeg:        v.GetString("ffmpeg"),
		FFprobe:       v.GetString("ffprobe"),
		DLBinary:      v.GetString("dl_binary"),
		WhisperBinary: v.GetString("whisper_binary"),
		WhisperModel:  v.GetString("whisper_model"),
		FontDirs:      v.GetStringSlice("font_dirs"),
		LogLevel:      v.GetString("log_level"),
		LogJSON:       v.GetBool("log_json"),
		Verbose:       v.GetBool("verbose"),
		HistoryDB:     v.GetString("history_db"),
		Listen:        v.GetString("listen"),
	}
}
