package model

// TriggerType selects how a template is fired.
type TriggerType string

const (
	TriggerShortcut TriggerType = "shortcut"
	// TriggerKeyword is reserved; keywords are stored but nothing fires on them yet.
	TriggerKeyword TriggerType = "keyword"
)

// Template is one templates row.
type Template struct {
	ID             string      `json:"id"`
	Description    string      `json:"description"`
	Enabled        bool        `json:"enabled"`
	Keywords       []string    `json:"keywords"`
	SnippetContent string      `json:"snippet_content"`
	TriggerType    TriggerType `json:"trigger_type"`
	Shortcut       string      `json:"shortcut,omitempty"`
	CreatedAt      int64       `json:"created_at"`
	UpdatedAt      int64       `json:"updated_at"`
}

// Bindable reports whether the template should have a global hotkey.
func (t *Template) Bindable() bool {
	return t.Enabled && t.TriggerType == TriggerShortcut && t.Shortcut != ""
}

// TemplatePatch is a partial template update. Nil fields are left unchanged.
type TemplatePatch struct {
	Description    *string      `json:"description,omitempty"`
	Enabled        *bool        `json:"enabled,omitempty"`
	Keywords       []string     `json:"keywords,omitempty"`
	SnippetContent *string      `json:"snippet_content,omitempty"`
	TriggerType    *TriggerType `json:"trigger_type,omitempty"`
	Shortcut       *string      `json:"shortcut,omitempty"`
}

// Apply copies the set fields of p onto t.
func (p *TemplatePatch) Apply(t *Template) {
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Enabled != nil {
		t.Enabled = *p.Enabled
	}
	if p.Keywords != nil {
		t.Keywords = p.Keywords
	}
	if p.SnippetContent != nil {
		t.SnippetContent = *p.SnippetContent
	}
	if p.TriggerType != nil {
		t.TriggerType = *p.TriggerType
	}
	if p.Shortcut != nil {
		t.Shortcut = *p.Shortcut
	}
}
