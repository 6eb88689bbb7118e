package validation

import (
	"context"
	"strings"

	"golang.org/x/text/language"
)

// Message keys.
const (
	MsgAlreadyExists    = "AlreadyExists"
	MsgDoesNotExist     = "DoesNotExist"
	MsgNotInEnum        = "NotInEnum"
	MsgModelNotSupplied = "ModelNotSupplied"
	MsgRequired         = "Required"
)

// DefaultLanguage is used when the request names no supported language.
const DefaultLanguage = "fr"

var messages = map[string]map[string]string{
	MsgAlreadyExists: {
		"en": "'{PropertyName}' already exists.",
		"fr": "'{PropertyName}' existe déjà.",
	},
	MsgDoesNotExist: {
		"en": "Resource for '{PropertyName}' with value '{PropertyValue}' does not exist.",
		"fr": "La ressource pour '{PropertyName}' avec la valeur '{PropertyValue}' n'existe pas.",
	},
	MsgNotInEnum: {
		"en": "'{PropertyName}' has a range of values which does not include '{PropertyValue}'.",
		"fr": "'{PropertyName}' a une plage de valeurs qui n'inclut pas '{PropertyValue}'.",
	},
	MsgModelNotSupplied: {
		"en": "Ensure a model was supplied.",
		"fr": "Assurez-vous qu'un modèle a été fourni.",
	},
	MsgRequired: {
		"en": "'{PropertyName}' must be supplied.",
		"fr": "'{PropertyName}' doit être renseigné.",
	},
}

// Language picks the message language from an Accept-Language header: the
// primary subtag of the first entry when it is "en" or "fr", otherwise
// DefaultLanguage.
func Language(acceptLanguage string) string {
	first := strings.TrimSpace(strings.Split(acceptLanguage, ",")[0])
	first = strings.TrimSpace(strings.Split(first, ";")[0])
	tag, err := language.Parse(first)
	if err != nil {
		return DefaultLanguage
	}
	base, _ := tag.Base()
	switch b := base.String(); b {
	case "en", "fr":
		return b
	}
	return DefaultLanguage
}

// Message returns the template stored under key for lang, or key itself
// when there is none.
func Message(lang, key string) string {
	if tr, ok := messages[key]; ok {
		if m, ok := tr[lang]; ok {
			return m
		}
	}
	return key
}

// Format expands the {PropertyName} and {PropertyValue} placeholders.
func Format(template, property, value string) string {
	return strings.NewReplacer("{PropertyName}", property, "{PropertyValue}", value).Replace(template)
}

type langKey struct{}

// WithLanguage stores the message language in ctx.
func WithLanguage(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, langKey{}, lang)
}

// LanguageFrom returns the language stored by WithLanguage, or
// DefaultLanguage.
func LanguageFrom(ctx context.Context) string {
	if l, ok := ctx.Value(langKey{}).(string); ok && l != "" {
		return l
	}
	return DefaultLanguage
}
