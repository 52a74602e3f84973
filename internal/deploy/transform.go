package deploy

import "strings"

// Identifiers are the theme names used in production and in staging.
type Identifiers struct {
	Production string
	Staging    string
}

// Transformer rewrites artifact text for staging. Content is treated as
// opaque text; nothing is parsed.
type Transformer struct {
	ids Identifiers
}

// NewTransformer returns a Transformer for ids.
func NewTransformer(ids Identifiers) *Transformer {
	return &Transformer{ids: ids}
}

// Dashboard replaces every occurrence of the production theme name.
func (t *Transformer) Dashboard(text string) string {
	if t.ids.Production == "" {
		return text
	}
	return strings.ReplaceAll(text, t.ids.Production, t.ids.Staging)
}

// Theme renames the theme definition itself: only the first
// "<production>:" becomes "<staging>:". Other mentions stay as they are.
func (t *Transformer) Theme(text string) string {
	if t.ids.Production == "" {
		return text
	}
	return strings.Replace(text, t.ids.Production+":", t.ids.Staging+":", 1)
}

// Apply transforms text according to the artifact kind.
func (t *Transformer) Apply(k Kind, text string) string {
	if k == KindTheme {
		return t.Theme(text)
	}
	return t.Dashboard(text)
}
