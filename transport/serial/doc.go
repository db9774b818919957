// Package serial drives the CO2 display: a microcontroller on a serial port
// that shows the current CO2 level of the player.
//
// The wire format is one line per level, the decimal value followed by a
// newline, at 9600 baud by default:
//
//	3\n
//
// Usage:
//
//	link := serial.NewLink(serial.WithLogger(logger))
//	if err := link.Connect("/dev/ttyACM0", serial.DefaultBaud); err != nil {
//		// show the error; the game keeps running without the display
//	}
//	defer link.Disconnect()
//
//	link.Push(state.CO2)
package serial
