package pd

// Ado is a PD Alert Data Object as received on the wire.
type Ado uint32

// Type-of-alert bits (ADO bits 24..30).
const (
	AlertBatteryStatusChange Ado = 1 << 24
	AlertOcp                 Ado = 1 << 25
	AlertOtp                 Ado = 1 << 26
	AlertOperatingCondition  Ado = 1 << 27
	AlertSourceInputChange   Ado = 1 << 28
	AlertOvp                 Ado = 1 << 29
	AlertExtended            Ado = 1 << 30
)

func (a Ado) Has(alert Ado) bool { return a&alert != 0 }

// ExtendedEventType returns the extended alert event type (bits 0..3).
// Only meaningful when AlertExtended is set.
func (a Ado) ExtendedEventType() uint8 { return uint8(a & 0xf) }

// adoNames is ordered by bit position for display.
var adoNames = []struct {
	bit  Ado
	name string
}{
	{AlertBatteryStatusChange, "battery_status"},
	{AlertOcp, "ocp"},
	{AlertOtp, "otp"},
	{AlertOperatingCondition, "operating_condition"},
	{AlertSourceInputChange, "source_input"},
	{AlertOvp, "ovp"},
	{AlertExtended, "extended"},
}

// Names returns the set alert names, for logs and console output.
func (a Ado) Names() []string {
	var out []string
	for _, n := range adoNames {
		if a.Has(n.bit) {
			out = append(out, n.name)
		}
	}
	return out
}
