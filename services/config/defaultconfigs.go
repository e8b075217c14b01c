package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Populate embeddedConfigs at build time (e.g. via code generation) or
// manually during development.
// Key: board identity (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON bytes for that board
// -----------------------------------------------------------------------------

const cfgPicoTypec = `{
  "battery": {
      "input_limit_ma": 3000,
      "charge_ma": 2000,
      "telemetry_interval": 10
  },
  "heartbeat": {
      "interval": 2
  },
  "opmlink": {
      "transport": {"type": "uart", "uart": {"baud": 115200, "tx_pin": 4, "rx_pin": 5}},
      "ping_ms": 5000
  }
}`

var embeddedConfigs = map[string][]byte{
	"pico-typec": []byte(cfgPicoTypec),
}
