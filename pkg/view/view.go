// Package view describes the editor views themes are applied to.
package view

// StyleMode is the styling metadata a view carries for the active themes.
type StyleMode struct {
	// ScopeClasses are the scope classes of the active themes in priority
	// order.
	ScopeClasses []string
	Dark         bool
	// AddModeClass asks the view to also add the document mode as a class.
	AddModeClass bool
}

// Font holds the font preferences applied to a view.
type Font struct {
	Size       string
	LineHeight string
	Family     string
}

type View interface {
	SetStyleMode(StyleMode)
	SetFont(Font)
	Renderer() Renderer
}

// Renderer is the part of a view that draws it.
type Renderer interface {
	Refresh()
}

// Provider gives access to the view currently focused in the editor.
type Provider interface {
	ActiveView() (View, bool)
}

// Host is the editor window hosting the views.
type Host interface {
	ResizeInlineWidgets()
}
