package domain

import "strings"

// SceneID identifies a scene directive.
type SceneID string

// SceneAuto lets the optimization capability deduce the best setting.
const SceneAuto SceneID = "auto"

// Scene is a named generation preset with bilingual display labels.
type Scene struct {
	ID      SceneID `yaml:"id" json:"id"`
	LabelEn string  `yaml:"label_en" json:"label_en"`
	LabelZh string  `yaml:"label_zh" json:"label_zh"`
	Prompt  string  `yaml:"prompt" json:"prompt"`
}

// IsAuto reports whether the scene is the auto-detect variant.
func (s Scene) IsAuto() bool {
	return s.ID == SceneAuto
}

// Label returns the display label for the locale, defaulting to English.
func (s Scene) Label(locale string) string {
	if strings.HasPrefix(strings.ToLower(locale), "zh") && s.LabelZh != "" {
		return s.LabelZh
	}
	if s.LabelEn != "" {
		return s.LabelEn
	}
	return string(s.ID)
}
