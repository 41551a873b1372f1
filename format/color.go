// color.go - Highlight colors for annotations
package format

// Color is an HTML hex color as written into the tag document.
type Color string

const (
	FontColor Color = "#313739"

	Black       Color = "#515A5A"
	BlueDark    Color = "#2980B9"
	BlueLight   Color = "#3498DB"
	Brown       Color = "#97333D"
	GreenBright Color = "#50E964"
	GreenDark   Color = "#16A085"
	GreenLight  Color = "#1ABC9C"
	Maroon      Color = "#E96950"
	Orange      Color = "#FF8C00"
	Pink        Color = "#E949D1"
	RedDark     Color = "#912C21"
	RedLight    Color = "#E74C3C"
	White       Color = "#CCD1D1"
	YellowDark  Color = "#F1C40F"
	YellowLight Color = "#E9E850"
)

// AttributePalette is cycled through when attributes carry no color of their own.
var AttributePalette = []Color{White, GreenLight, YellowLight, BlueLight, Orange, Pink}
