package panel

// Visibility is the expanded/collapsed state of a panel's detail section.
// A full-screen panel starts expanded and stays that way.
type Visibility struct {
	fullScreen bool
	expanded   bool
}

// NewVisibility returns the initial state for the given display mode.
func NewVisibility(fullScreen bool) Visibility {
	return Visibility{fullScreen: fullScreen, expanded: fullScreen}
}

// Expanded reports whether details and map are shown.
func (v Visibility) Expanded() bool {
	return v.expanded
}

// CanToggle is false in full-screen mode, where no toggle is offered.
func (v Visibility) CanToggle() bool {
	return !v.fullScreen
}

// Toggle flips the state and reports whether anything changed.
func (v *Visibility) Toggle() bool {
	if v.fullScreen {
		return false
	}
	v.expanded = !v.expanded
	return true
}
