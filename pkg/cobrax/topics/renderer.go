package topics

// Renderer formats topic content for terminal display.
type Renderer interface {
	Render(content string, ext string) string
}

// PlainRenderer returns content unchanged.
type PlainRenderer struct{}

func (r *PlainRenderer) Render(content string, ext string) string {
	return content
}
