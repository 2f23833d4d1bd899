// internal/extraction/result.go
package extraction

// Result is the structured UI layout derived from a reference image before
// code generation. It is stored per commit and forwarded to the backend as
// auxiliary context on the generation request.
type Result struct {
	Metadata   Metadata   `json:"metadata"`
	Layout     Layout     `json:"layout"`
	Navigation Navigation `json:"navigation"`
	Forms      []Form     `json:"forms"`
}

type Metadata struct {
	Viewport Viewport `json:"viewport"`
	Platform string   `json:"platform"` // "web", "mobile", "desktop"
	Theme    string   `json:"theme"`    // "light", "dark", "auto"
}

type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Layout struct {
	Type       string      `json:"type"` // "grid", "flex", "absolute", "flow"
	Components []Component `json:"components"`
}

type Component struct {
	ID          string              `json:"id"`
	Type        string              `json:"type"` // button, input, text, image, nav, container, form, list
	Bounds      Bounds              `json:"bounds"`
	ParentID    string              `json:"parent_id,omitempty"`
	Children    []string            `json:"children,omitempty"`
	Properties  ComponentProperties `json:"properties"`
	Styles      ComponentStyles     `json:"styles"`
	DataBinding DataBinding         `json:"data_binding"`
}

type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type ComponentProperties struct {
	Text        string `json:"text,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Src         string `json:"src,omitempty"`
	Href        string `json:"href,omitempty"`
	Required    bool   `json:"required,omitempty"`
	Disabled    bool   `json:"disabled,omitempty"`
}

type ComponentStyles struct {
	BackgroundColor string `json:"backgroundColor,omitempty"`
	Color           string `json:"color,omitempty"`
	FontSize        string `json:"fontSize,omitempty"`
	FontFamily      string `json:"fontFamily,omitempty"`
	Border          string `json:"border,omitempty"`
	Padding         string `json:"padding,omitempty"`
	Margin          string `json:"margin,omitempty"`
}

type DataBinding struct {
	LikelyEndpoint string   `json:"likely_endpoint,omitempty"`
	DataType       string   `json:"data_type,omitempty"`
	CrudOperations []string `json:"crud_operations,omitempty"`
}

type Navigation struct {
	PrimaryNav        []string           `json:"primary_nav"`
	Breadcrumbs       []string           `json:"breadcrumbs"`
	PageRelationships []PageRelationship `json:"page_relationships"`
}

type PageRelationship struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Trigger string `json:"trigger"`
}

type Form struct {
	ID     string      `json:"id"`
	Action string      `json:"action"`
	Method string      `json:"method"` // POST, GET, PUT, DELETE
	Fields []FormField `json:"fields"`
}

type FormField struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"` // text, email, password, select, checkbox, radio, file
	Validation string   `json:"validation,omitempty"`
	Options    []string `json:"options,omitempty"`
}

// Placeholder returns the result stored for a commit the moment extraction
// starts, before any bytes have streamed back. It is replaced by the real
// result on completion, or kept (error-marked by the caller's status) on
// failure.
func Placeholder() *Result {
	return &Result{
		Metadata: Metadata{
			Viewport: Viewport{Width: 1920, Height: 1080},
			Platform: "web",
			Theme:    "auto",
		},
		Layout: Layout{
			Type:       "flow",
			Components: []Component{},
		},
		Navigation: Navigation{
			PrimaryNav:        []string{},
			Breadcrumbs:       []string{},
			PageRelationships: []PageRelationship{},
		},
		Forms: []Form{},
	}
}
