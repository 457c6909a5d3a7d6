package problems

// Axis distinguishes the two kinds of problem connection.
type Axis string

const (
	// AxisCausal links a driver problem to one it contributes to.
	AxisCausal Axis = "causal"
	// AxisScope links a broader problem to a narrower facet of it.
	AxisScope Axis = "scope"
)

// ParseAxis validates an axis string.
func ParseAxis(s string) (Axis, error) {
	switch Axis(s) {
	case AxisCausal, AxisScope:
		return Axis(s), nil
	default:
		return "", &InvalidAxisError{Axis: s}
	}
}

// Connection is a directed edge between two problems. On the causal
// axis From drives To; on the scope axis From is broader than To.
type Connection struct {
	ID   string `json:"id,omitempty"`
	Axis Axis   `json:"axis"`
	From string `json:"from"` // driver or broader problem slug
	To   string `json:"to"`   // impact or narrower problem slug
}

// Driver returns the driver slug of a causal connection.
func (c Connection) Driver() string { return c.From }

// Impact returns the impact slug of a causal connection.
func (c Connection) Impact() string { return c.To }

// Broader returns the broader slug of a scope connection.
func (c Connection) Broader() string { return c.From }

// Narrower returns the narrower slug of a scope connection.
func (c Connection) Narrower() string { return c.To }

// Validate checks the axis, endpoints, and the no-self-loop rule.
func (c Connection) Validate() error {
	if _, err := ParseAxis(string(c.Axis)); err != nil {
		return err
	}
	if c.From == "" {
		return &MissingFieldError{Entity: "connection", Field: "from"}
	}
	if c.To == "" {
		return &MissingFieldError{Entity: "connection", Field: "to"}
	}
	if c.From == c.To {
		return &CircularConnectionError{Slug: c.From, Axis: c.Axis}
	}
	return nil
}
