package device

import (
	"io"
)

// Console wraps a byte-stream input and output as a port device.
// IN yields the next input byte, or 0 once the input is exhausted;
// OUT appends a byte to the output. An unwired side reads zeros and
// discards writes.
type Console struct {
	Input  io.Reader
	Output io.Writer

	exhausted bool
}

var _ Device = (*Console)(nil)

// Reset forgets a previously observed end of input.
func (con *Console) Reset() {
	con.exhausted = false
}

// In reads the next byte from the input stream.
func (con *Console) In(port uint8) (value uint8, err error) {
	if con.Input == nil || con.exhausted {
		return
	}

	var one [1]byte
	for {
		var n int
		n, err = con.Input.Read(one[:])
		if n > 0 {
			value = one[0]
			err = nil
			return
		}
		if err == io.EOF {
			con.exhausted = true
			err = nil
			return
		}
		if err != nil {
			return
		}
	}
}

// Out writes a byte to the output stream.
func (con *Console) Out(port uint8, value uint8) (err error) {
	if con.Output == nil {
		return
	}

	_, err = con.Output.Write([]byte{value})

	return
}
