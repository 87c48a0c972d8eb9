package qr

// Role is the payment direction/purpose a QR code declares.
type Role string

const (
	RolePay            Role = "pay"             // Payer shows this (blue)
	RoleReceiveStatic  Role = "receive_static"  // Reusable receive code (green)
	RoleReceiveDynamic Role = "receive_dynamic" // Single-use receive code with amount (green)
	RoleRequest        Role = "request"         // Payment request (yellow)
	RoleSplit          Role = "split"           // Bill split (purple)
	RoleRefund         Role = "refund"          // Refund (red)
)

// Color is the presentation color token bound to a role.
type Color string

const (
	ColorBlue   Color = "blue"
	ColorGreen  Color = "green"
	ColorYellow Color = "yellow"
	ColorPurple Color = "purple"
	ColorRed    Color = "red"
)

// roleColors is the fixed role→color bijection. Both receive variants share
// green; no role maps to more than one color.
var roleColors = map[Role]Color{
	RolePay:            ColorBlue,
	RoleReceiveStatic:  ColorGreen,
	RoleReceiveDynamic: ColorGreen,
	RoleRequest:        ColorYellow,
	RoleSplit:          ColorPurple,
	RoleRefund:         ColorRed,
}

// Classification pairs a role with its display color.
type Classification struct {
	Role  Role  `json:"role"`
	Color Color `json:"color"`
}

// Valid reports whether r is in the closed role enum.
func (r Role) Valid() bool {
	_, ok := roleColors[r]
	return ok
}

// String implements fmt.Stringer.
func (r Role) String() string { return string(r) }

// IsPaying reports whether the role represents the paying side.
func (r Role) IsPaying() bool { return r == RolePay }

// IsReceiving reports whether the role represents the receiving side.
// Static and dynamic receive codes both count.
func (r Role) IsReceiving() bool {
	return r == RoleReceiveStatic || r == RoleReceiveDynamic
}

// Classify maps a role to its classification. It never defaults silently:
// a role outside the closed enum yields ErrUnknownRole.
func Classify(role Role) (Classification, error) {
	color, ok := roleColors[role]
	if !ok {
		return Classification{}, ErrUnknownRole
	}
	return Classification{Role: role, Color: color}, nil
}
