// Package report is a small layout engine for spreadsheet exports. It turns
// declarative cell and table specs into positioned cell writes, styles and
// merges; serializing them to a workbook is left to a renderer.
package report

const (
	DefaultBodyFontSize  = 14
	DefaultTitleFontSize = 24
	DefaultTitleBorder   = "medium"
	DefaultFill          = "#FFFFFF"
)

// Border styles understood by the renderers.
const (
	BorderNone   = ""
	BorderThin   = "thin"
	BorderMedium = "medium"
	BorderThick  = "thick"
	BorderDashed = "dashed"
	BorderDotted = "dotted"
	BorderDouble = "double"
)

// Style is the fully resolved look of one cell. It is comparable so
// renderers can cache one native style per distinct Style.
type Style struct {
	FontSize float64
	Bold     bool
	Border   string
	Fill     string
	HAlign   string
}

// StyleSpec carries optional overrides; nil fields take the defaults of the
// cell kind. Title selects the title defaults.
type StyleSpec struct {
	Title       bool
	FontSize    *float64
	Bold        *bool
	BorderStyle *string
	Fill        *string
	HAlign      *string
}

// ResolveStyle applies spec over the documented defaults: body text is 14pt
// regular, titles 24pt bold with a medium border, every cell filled white.
// Only titles get a border unless BorderStyle is given.
func ResolveStyle(spec StyleSpec) Style {
	st := Style{
		FontSize: DefaultBodyFontSize,
		Fill:     DefaultFill,
	}
	if spec.Title {
		st.FontSize = DefaultTitleFontSize
		st.Bold = true
		st.Border = DefaultTitleBorder
		st.HAlign = "center"
	}
	if spec.FontSize != nil && *spec.FontSize > 0 {
		st.FontSize = *spec.FontSize
	}
	if spec.Bold != nil {
		st.Bold = *spec.Bold
	}
	if spec.BorderStyle != nil {
		st.Border = *spec.BorderStyle
	}
	if spec.Fill != nil && *spec.Fill != "" {
		st.Fill = *spec.Fill
	}
	if spec.HAlign != nil {
		st.HAlign = *spec.HAlign
	}
	return st
}

// Ptr returns a pointer to v, for filling StyleSpec overrides.
func Ptr[T any](v T) *T {
	return &v
}
