package domain

type ButtonStyle int

const (
	ButtonPrimary ButtonStyle = iota + 1
	ButtonSecondary
	ButtonSuccess
	ButtonDanger
)

type Button struct {
	CustomID string      `json:"custom_id"`
	Label    string      `json:"label"`
	Style    ButtonStyle `json:"style"`
}

type ActionRow struct {
	Buttons []Button `json:"buttons"`
}

type Embed struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Color       int    `json:"color,omitempty"`
	AuthorName  string `json:"author_name,omitempty"`
	AuthorIcon  string `json:"author_icon,omitempty"`
}

// Message is an outbound chat message with optional embeds and button rows.
type Message struct {
	Content    string      `json:"content,omitempty"`
	Embeds     []Embed     `json:"embeds,omitempty"`
	Components []ActionRow `json:"components,omitempty"`
}
