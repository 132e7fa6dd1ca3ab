package hardware

import "fmt"

// SPITx is the part of a periph spi.Conn the converter needs.
type SPITx interface {
	Tx(w, r []byte) error
}

// MCP3008 is an 8-channel, 10-bit SPI analog converter.
// A conversion completes inside the SPI exchange started by Start, so Done is
// true as soon as Start returns.
type MCP3008 struct {
	conn    SPITx
	channel int
	result  uint16
	ready   bool
}

// NewMCP3008 wraps an SPI connection configured for mode 0, 8 bits per word.
func NewMCP3008(conn SPITx) *MCP3008 {
	return &MCP3008{conn: conn}
}

// Select picks the single-ended input 0-7.
func (m *MCP3008) Select(channel int) error {
	if channel < 0 || channel > 7 {
		return fmt.Errorf("mcp3008: invalid channel %d", channel)
	}
	m.channel = channel
	m.ready = false
	return nil
}

// Start runs one conversion: start bit, SGL=1 with the channel, then 10 result bits.
func (m *MCP3008) Start() error {
	w := []byte{0x01, byte(0x80 | m.channel<<4), 0x00}
	r := make([]byte, len(w))
	if err := m.conn.Tx(w, r); err != nil {
		m.ready = false
		return fmt.Errorf("mcp3008: channel %d: %w", m.channel, err)
	}
	m.result = uint16(r[1]&0x03)<<8 | uint16(r[2])
	m.ready = true
	return nil
}

func (m *MCP3008) Done() (bool, error) {
	return m.ready, nil
}

func (m *MCP3008) Result() (uint16, error) {
	if !m.ready {
		return 0, fmt.Errorf("mcp3008: no conversion")
	}
	return m.result, nil
}
