package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ericfisherdev/bountybot/internal/domain/model"
)

// LoadBotSettings returns the built-in bot settings overlaid with the YAML
// file at path. An empty path returns the defaults. Unknown keys are an
// error so typos in a hand-edited file surface at startup.
func LoadBotSettings(path string) (model.BotSettings, error) {
	defaults := model.DefaultBotSettings()
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return model.BotSettings{}, fmt.Errorf("read bot settings: %w", err)
	}

	override, err := decodeSettings(data)
	if err != nil {
		return model.BotSettings{}, fmt.Errorf("parse bot settings %s: %w", path, err)
	}
	return defaults.Apply(override), nil
}

func decodeSettings(data []byte) (*model.SettingsOverride, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var o model.SettingsOverride
	if err := dec.Decode(&o); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}
