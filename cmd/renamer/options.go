package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type options struct {
	Dir         string `yaml:"dir"`
	Out         string `yaml:"out"`
	Style       string `yaml:"style"`
	Endpoint    string `yaml:"endpoint"`
	Collision   string `yaml:"collision"`
	Concurrency int    `yaml:"concurrency"`
	AnyType     bool   `yaml:"any_type"`
	LogLevel    string `yaml:"log_level"`
}

func defaultOptions() options {
	return options{
		Out:         "renamed-images.zip",
		Collision:   "last-write-wins",
		Concurrency: 4,
		LogLevel:    "info",
	}
}

// parseOptions reads flags, overlaying them on the optional -config YAML file.
// Flags given explicitly win over the file.
func parseOptions(args []string, stderr io.Writer) (options, error) {
	opts := defaultOptions()

	fs := flag.NewFlagSet("renamer", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML file with default options")
	fs.StringVar(&opts.Dir, "dir", opts.Dir, "directory with the images to rename")
	fs.StringVar(&opts.Out, "out", opts.Out, "path of the zip archive to write")
	fs.StringVar(&opts.Style, "style", opts.Style, "free-text naming style hint")
	fs.StringVar(&opts.Endpoint, "endpoint", opts.Endpoint, "naming endpoint base URL; empty calls the AI model directly")
	fs.StringVar(&opts.Collision, "collision", opts.Collision, "duplicate name policy: last-write-wins or suffix")
	fs.IntVar(&opts.Concurrency, "concurrency", opts.Concurrency, "parallel content reads while building the archive")
	fs.BoolVar(&opts.AnyType, "any-type", opts.AnyType, "accept files that are not images")
	fs.StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if *configPath != "" {
		fromFile, err := loadConfigFile(*configPath)
		if err != nil {
			return options{}, err
		}
		explicit := map[string]bool{}
		fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
		opts = overlay(fromFile, opts, explicit)
	}

	if strings.TrimSpace(opts.Dir) == "" {
		return options{}, errors.New("-dir is required")
	}
	if strings.TrimSpace(opts.Out) == "" {
		return options{}, errors.New("-out must not be empty")
	}
	return opts, nil
}

func loadConfigFile(path string) (options, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return options{}, fmt.Errorf("read config %s: %w", path, err)
	}
	opts := defaultOptions()
	if err := yaml.Unmarshal(raw, &opts); err != nil {
		return options{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return opts, nil
}

// overlay copies every explicitly set flag from flags onto base.
func overlay(base, flags options, explicit map[string]bool) options {
	if explicit["dir"] {
		base.Dir = flags.Dir
	}
	if explicit["out"] {
		base.Out = flags.Out
	}
	if explicit["style"] {
		base.Style = flags.Style
	}
	if explicit["endpoint"] {
		base.Endpoint = flags.Endpoint
	}
	if explicit["collision"] {
		base.Collision = flags.Collision
	}
	if explicit["concurrency"] {
		base.Concurrency = flags.Concurrency
	}
	if explicit["any-type"] {
		base.AnyType = flags.AnyType
	}
	if explicit["log-level"] {
		base.LogLevel = flags.LogLevel
	}
	return base
}
