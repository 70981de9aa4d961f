package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"

	"gopkg.in/yaml.v3"
)

//go:embed locales
var LocalesFS embed.FS

// Translator resolves message keys (gateway decline codes, outcome reasons)
// to user-facing text for one locale.
type Translator struct {
	translations map[string]string
}

// NewTranslator loads locales/<langCode>.yaml from the given filesystem.
func NewTranslator(fsys fs.FS, langCode string) (*Translator, error) {
	filePath := path.Join("locales", fmt.Sprintf("%s.yaml", langCode))

	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("read translation file %s: %w", filePath, err)
	}

	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("parse translation file %s: %w", filePath, err)
	}

	return &Translator{translations: translations}, nil
}

// T returns the message for key, or the key itself when no translation
// exists so callers can detect a miss and fall back.
func (t *Translator) T(key string, args ...interface{}) string {
	format, ok := t.translations[key]
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

// Has reports whether the locale defines key.
func (t *Translator) Has(key string) bool {
	_, ok := t.translations[key]
	return ok
}
