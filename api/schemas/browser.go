// File: api/schemas/browser.go
package schemas

// -- Page Element Schemas --

// Element is a handle to a DOM node that was visible and interactable at the
// moment it was listed. The Selector addresses exactly that node for as long
// as the page is not replaced.
type Element struct {
	Selector string          `json:"selector"`
	TagName  string          `json:"tagName"`
	Text     string          `json:"text,omitempty"`
	Href     string          `json:"href,omitempty"`
	Geometry ElementGeometry `json:"geometry"`
}

// ElementGeometry defines the bounding box and vertices of a DOM element,
// in viewport coordinates.
type ElementGeometry struct {
	Vertices []float64 `json:"vertices"`
	Width    int64     `json:"width"`
	Height   int64     `json:"height"`
}

// Viewport describes the emulated device metrics of a session.
type Viewport struct {
	Width      int64   `json:"width"`
	Height     int64   `json:"height"`
	PixelRatio float64 `json:"pixelRatio"`
	Mobile     bool    `json:"mobile"`
}

// -- Humanoid Low-Level Interaction Schemas --

// MouseEventType defines the type of a mouse event.
type MouseEventType string

const (
	MouseMove    MouseEventType = "mouseMoved"
	MousePress   MouseEventType = "mousePressed"
	MouseRelease MouseEventType = "mouseReleased"
	MouseWheel   MouseEventType = "mouseWheel"
)

// MouseButton defines the mouse button being pressed.
type MouseButton string

const (
	ButtonNone   MouseButton = "none"
	ButtonLeft   MouseButton = "left"
	ButtonRight  MouseButton = "right"
	ButtonMiddle MouseButton = "middle"
)

// MouseEventData encapsulates all data for a mouse event.
type MouseEventData struct {
	Type       MouseEventType `json:"type"`
	X          float64        `json:"x"`
	Y          float64        `json:"y"`
	Button     MouseButton    `json:"button"`
	Buttons    int64          `json:"buttons"`
	ClickCount int            `json:"clickCount"`
	DeltaX     float64        `json:"deltaX"`
	DeltaY     float64        `json:"deltaY"`
}
