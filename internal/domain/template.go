package domain

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"notifier/internal/types"
)

// placeholderRegexp matches {{name}} tokens. Names are word characters only;
// anything else (spaces, dots, nested braces) is left untouched as literal text.
var placeholderRegexp = regexp.MustCompile(`\{\{(\w+)\}\}`)

// RenderedContent is the channel-ready output of Template.Render. Subject is
// empty for channels without a subject line.
type RenderedContent struct {
	Subject string
	Body    string
}

// Template is a named, reusable content template for a single channel.
// Names are normalized (trimmed, lowercased) and must be unique across the
// system; uniqueness is enforced by the template store, not here.
type Template struct {
	id        string
	name      string
	channel   types.Channel
	subject   string
	body      string
	isActive  bool
	createdAt time.Time
	updatedAt time.Time
}

// NewTemplate validates and creates an active template. Email templates must
// carry a non-blank subject; other channels ignore the subject argument
// unless one is provided.
func NewTemplate(name string, channel types.Channel, body, subject string) (*Template, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationMissingField,
			"template name must not be empty", nil, map[string]any{"field": "name"})
	}
	if !channel.Valid() {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationUnknownChannel,
			"unknown delivery channel", nil, map[string]any{"channel": string(channel)})
	}
	subject = strings.TrimSpace(subject)
	if err := validateTemplateContent(channel, body, subject); err != nil {
		return nil, err
	}

	now := nowUTC()
	return &Template{
		id:        "tmpl_" + uuid.New().String(),
		name:      normalized,
		channel:   channel,
		subject:   subject,
		body:      body,
		isActive:  true,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// validateTemplateContent applies the shared content rules used by both the
// constructor and UpdateContent.
func validateTemplateContent(channel types.Channel, body, subject string) error {
	if strings.TrimSpace(body) == "" {
		return types.NewAppErrorWithDetails(types.ErrCodeValidationMissingField,
			"template body must not be empty", nil, map[string]any{"field": "body"})
	}
	if channel == types.ChannelEmail && subject == "" {
		return types.NewAppError(types.ErrCodeValidationMissingSubject,
			"email templates require a subject", nil)
	}
	return nil
}

// Render substitutes every {{token}} occurrence in the subject and body with
// the matching value from data. Rendering is atomic: if any referenced token
// is absent from data, an error is returned and no partial output is produced.
// Inactive templates cannot be rendered.
func (t *Template) Render(data TemplateData) (RenderedContent, error) {
	if !t.isActive {
		return RenderedContent{}, types.NewAppErrorWithDetails(types.ErrCodeStateTemplateInactive,
			"cannot render an inactive template", nil, map[string]any{"template": t.name})
	}

	subject, err := substitutePlaceholders(t.subject, data)
	if err != nil {
		return RenderedContent{}, err
	}
	body, err := substitutePlaceholders(t.body, data)
	if err != nil {
		return RenderedContent{}, err
	}
	return RenderedContent{Subject: subject, Body: body}, nil
}

// substitutePlaceholders performs a single left-to-right pass over s,
// replacing each {{token}} occurrence independently. Substituted values are
// never re-scanned, so data values containing {{...}} stay literal.
func substitutePlaceholders(s string, data TemplateData) (string, error) {
	matches := placeholderRegexp.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s, nil
	}

	var b strings.Builder
	b.Grow(len(s))
	last := 0
	for _, m := range matches {
		// m[0]:m[1] spans {{token}}, m[2]:m[3] spans the captured name.
		token := s[m[2]:m[3]]
		value, ok := data.Get(token)
		if !ok {
			return "", types.NewAppErrorWithDetails(types.ErrCodeLookupMissingPlaceholder,
				"template data is missing a referenced placeholder", nil,
				map[string]any{"placeholder": token})
		}
		b.WriteString(s[last:m[0]])
		b.WriteString(value)
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String(), nil
}

// Placeholders returns the de-duplicated set of placeholder names referenced
// by the subject and body, in sorted order.
func (t *Template) Placeholders() []string {
	seen := make(map[string]bool)
	for _, s := range []string{t.subject, t.body} {
		for _, m := range placeholderRegexp.FindAllStringSubmatch(s, -1) {
			seen[m[1]] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Activate enables rendering. Calling Activate on an already-active template
// is a no-op and does not touch UpdatedAt.
func (t *Template) Activate() {
	if t.isActive {
		return
	}
	t.isActive = true
	t.updatedAt = nowUTC()
}

// Deactivate disables rendering. Calling Deactivate on an already-inactive
// template is a no-op and does not touch UpdatedAt.
func (t *Template) Deactivate() {
	if !t.isActive {
		return
	}
	t.isActive = false
	t.updatedAt = nowUTC()
}

// UpdateContent replaces the body and subject, applying the same validation
// as the constructor. UpdatedAt always advances on success.
func (t *Template) UpdateContent(body, subject string) error {
	subject = strings.TrimSpace(subject)
	if err := validateTemplateContent(t.channel, body, subject); err != nil {
		return err
	}
	t.body = body
	t.subject = subject
	t.updatedAt = nowUTC()
	return nil
}

// ID returns the template identifier.
func (t *Template) ID() string { return t.id }

// Name returns the normalized template name.
func (t *Template) Name() string { return t.name }

// Channel returns the channel this template renders for.
func (t *Template) Channel() types.Channel { return t.channel }

// Subject returns the raw (unrendered) subject line.
func (t *Template) Subject() string { return t.subject }

// Body returns the raw (unrendered) body.
func (t *Template) Body() string { return t.body }

// IsActive reports whether the template can be rendered.
func (t *Template) IsActive() bool { return t.isActive }

// CreatedAt returns the creation timestamp.
func (t *Template) CreatedAt() time.Time { return t.createdAt }

// UpdatedAt returns the last content or activation change timestamp.
func (t *Template) UpdatedAt() time.Time { return t.updatedAt }
