package harness

import "context"

// Special keys accepted by TestElement.SendKeys. The values are the WebDriver
// key codes, so they can be passed unchanged to browser automation.
const (
	KeyBackspace = "\ue003"
	KeyTab       = "\ue004"
	KeyEnter     = "\ue007"
	KeyShift     = "\ue008"
	KeyControl   = "\ue009"
	KeyAlt       = "\ue00a"
	KeyEscape    = "\ue00c"
	KeyPageUp    = "\ue00e"
	KeyPageDown  = "\ue00f"
	KeyEnd       = "\ue010"
	KeyHome      = "\ue011"
	KeyLeft      = "\ue012"
	KeyUp        = "\ue013"
	KeyRight     = "\ue014"
	KeyDown      = "\ue015"
	KeyInsert    = "\ue016"
	KeyDelete    = "\ue017"
	KeyMeta      = "\ue03d"
)

var keyNames = map[rune]string{
	'\ue003': "Backspace",
	'\ue004': "Tab",
	'\ue007': "Enter",
	'\ue008': "Shift",
	'\ue009': "Control",
	'\ue00a': "Alt",
	'\ue00c': "Escape",
	'\ue00e': "PageUp",
	'\ue00f': "PageDown",
	'\ue010': "End",
	'\ue011': "Home",
	'\ue012': "ArrowLeft",
	'\ue013': "ArrowUp",
	'\ue014': "ArrowRight",
	'\ue015': "ArrowDown",
	'\ue016': "Insert",
	'\ue017': "Delete",
	'\ue03d': "Meta",
}

// KeyName returns the KeyboardEvent.key name for r and whether r is one of
// the special keys.
func KeyName(r rune) (string, bool) {
	name, ok := keyNames[r]
	if !ok {
		return string(r), false
	}
	return name, true
}

// TestElement is the uniform action and query surface over one element.
//
// Actions dispatch their native events and then stabilize before returning.
// Queries stabilize first and then read. Every method blocks and honours ctx,
// whether the element lives in-process or in a remote browser.
type TestElement interface {
	Blur(ctx context.Context) error
	Clear(ctx context.Context) error
	Click(ctx context.Context) error
	Focus(ctx context.Context) error
	Hover(ctx context.Context) error
	MouseAway(ctx context.Context) error
	// SendKeys types keys into the element. Special keys are given with the
	// Key* constants and may be mixed into ordinary strings.
	SendKeys(ctx context.Context, keys ...string) error
	SetInputValue(ctx context.Context, value string) error
	DispatchEvent(ctx context.Context, name string, data map[string]string) error

	Text(ctx context.Context) (string, error)
	// GetAttribute returns the attribute value and whether it is present.
	GetAttribute(ctx context.Context, name string) (string, bool, error)
	HasClass(ctx context.Context, name string) (bool, error)
	GetCssValue(ctx context.Context, property string) (string, error)
	GetProperty(ctx context.Context, name string) (any, error)
	MatchesSelector(ctx context.Context, selector string) (bool, error)
	IsFocused(ctx context.Context) (bool, error)
}
