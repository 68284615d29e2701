// Package i18n resolves API message identifiers into localized text.
// Message catalogs are toml files embedded next to this package, one
// per supported language tag.
package i18n

import (
	"embed"
	"log/slog"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed *.toml
var localeFS embed.FS

// Localizer translates message ids for a fixed set of languages. The
// zero value translates nothing; build one with NewLocalizer.
type Localizer struct {
	registry map[string]*i18n.Localizer
}

func NewLocalizer(languages ...string) Localizer {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	registry := make(map[string]*i18n.Localizer, len(languages))
	for _, lang := range languages {
		path := lang + ".toml"
		if _, err := bundle.LoadMessageFileFS(localeFS, path); err != nil {
			slog.Error("load locale catalog failed",
				slog.String("lang", lang),
				slog.String("file", path),
				slog.Any("error", err))
			continue
		}
		registry[lang] = i18n.NewLocalizer(bundle, lang)
	}
	return Localizer{registry: registry}
}

// Get resolves id in the given language. Unknown languages and ids
// fall back to the id itself so an untranslated message still reaches
// the client readable.
func (l Localizer) Get(lang, id string) string {
	localizer := l.registry[lang]
	if localizer == nil {
		return id
	}

	str, err := localizer.Localize(&i18n.LocalizeConfig{
		DefaultMessage: &i18n.Message{
			ID:    id,
			Other: id,
		},
	})
	if err != nil {
		slog.Info("message lookup failed",
			slog.String("lang", lang),
			slog.String("id", id),
			slog.Any("error", err))
		return id
	}
	return str
}
