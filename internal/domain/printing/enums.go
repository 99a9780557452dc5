package printing

// OutputType selects where a rendered document goes
type OutputType string

const (
	OutputTypePDF     OutputType = "pdf"     // preview in the system viewer
	OutputTypePrinter OutputType = "printer" // straight to a named printer
)

// IsValid checks if the OutputType is a valid value
func (o OutputType) IsValid() bool {
	switch o {
	case OutputTypePDF, OutputTypePrinter:
		return true
	}
	return false
}

// String returns the string representation of OutputType
func (o OutputType) String() string {
	return string(o)
}

// Side identifies which face of a two-sided document is being printed.
// The zero value means a single-sided print.
type Side string

const (
	SideNone  Side = ""
	SideFront Side = "front"
	SideBack  Side = "back"
)

// IsValid checks if the Side is a valid value
func (s Side) IsValid() bool {
	switch s {
	case SideNone, SideFront, SideBack:
		return true
	}
	return false
}

// String returns the string representation of Side
func (s Side) String() string {
	return string(s)
}
