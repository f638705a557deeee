// Package ui renders the shop for a user: localized texts, keyboards and
// HTML formatted views.
package ui

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/m3rciful/shopbot/internal/event"
	"github.com/m3rciful/shopbot/internal/shop"
)

//go:embed locales/*.yaml
var localesFS embed.FS

// captionPrefix marks locale keys whose values are menu captions.
const captionPrefix = "btn."

// Translator resolves message keys for one language.
type Translator struct {
	lang     shop.Language
	messages map[string]string
	fallback *Translator
}

func newTranslatorFromBytes(lang shop.Language, data []byte) (*Translator, error) {
	var messages map[string]string
	if err := yaml.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("failed to parse %s locale: %w", lang, err)
	}
	return &Translator{lang: lang, messages: messages}, nil
}

// Lang is the translator's language.
func (t *Translator) Lang() shop.Language { return t.lang }

// T formats the message for key. Missing keys fall back to the default
// language and finally to the key itself.
func (t *Translator) T(key string, args ...any) string {
	format, ok := t.lookup(key)
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

// Caption returns the menu caption for key.
func (t *Translator) Caption(key string) string {
	return t.T(captionPrefix + key)
}

func (t *Translator) lookup(key string) (string, bool) {
	for tr := t; tr != nil; tr = tr.fallback {
		if msg, ok := tr.messages[key]; ok {
			return msg, true
		}
	}
	return "", false
}

// Locales holds a translator per supported language.
type Locales struct {
	byLang   map[shop.Language]*Translator
	captions event.Captions
}

// LoadLocales reads the embedded ru and uz locales.
func LoadLocales() (*Locales, error) {
	return loadLocales(localesFS, "locales")
}

func loadLocales(fsys fs.FS, dir string) (*Locales, error) {
	l := &Locales{byLang: make(map[shop.Language]*Translator), captions: event.Captions{}}
	for _, lang := range []shop.Language{shop.LangRU, shop.LangUZ} {
		data, err := fs.ReadFile(fsys, path.Join(dir, string(lang)+".yaml"))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s locale: %w", lang, err)
		}
		tr, err := newTranslatorFromBytes(lang, data)
		if err != nil {
			return nil, err
		}
		if lang != shop.LangRU {
			tr.fallback = l.byLang[shop.LangRU]
		}
		l.byLang[lang] = tr
		for key, caption := range tr.messages {
			name, ok := strings.CutPrefix(key, captionPrefix)
			if !ok {
				continue
			}
			caption = strings.TrimSpace(caption)
			if prev, dup := l.captions[caption]; dup && prev != name {
				return nil, fmt.Errorf("caption %q is used for both %s and %s", caption, prev, name)
			}
			l.captions[caption] = name
		}
	}
	return l, nil
}

// For returns the translator for lang, defaulting to Russian.
func (l *Locales) For(lang shop.Language) *Translator {
	if tr, ok := l.byLang[lang]; ok {
		return tr
	}
	return l.byLang[shop.LangRU]
}

// Captions is the closed set of menu captions across all languages.
func (l *Locales) Captions() event.Captions {
	return l.captions
}
