package notify

import (
	"embed"
	"fmt"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

//go:embed active.*.toml
var localeFS embed.FS

// Messages localizes notification text for one configured locale, falling
// back to English for unknown locales or missing keys.
type Messages struct {
	localizer *i18n.Localizer
	lang      string
}

func NewMessages(locale string) (*Messages, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, file := range []string{"active.en.toml", "active.fr.toml"} {
		if _, err := bundle.LoadMessageFileFS(localeFS, file); err != nil {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}

	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	base, _ := tag.Base()

	return &Messages{
		localizer: i18n.NewLocalizer(bundle, tag.String(), language.English.String()),
		lang:      base.String(),
	}, nil
}

// Lang is the configured language, e.g. "fr".
func (m *Messages) Lang() string {
	return m.lang
}

// T renders id with data. Unknown ids render as the id itself.
func (m *Messages) T(id string, data map[string]any) string {
	msg, err := m.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: data,
	})
	if err != nil && msg == "" {
		return id
	}
	return msg
}

func (m *Messages) greeting(name string) string {
	if name == "" {
		return m.T("greeting_anonymous", nil)
	}
	return m.T("greeting", map[string]any{"Name": name})
}
