// Package connection manages the serial link to an Espressif ROM
// bootloader: opening the port, toggling DTR/RTS to reset the chip into
// the loader, and moving SLIP-framed protocol frames in both directions.
//
// Every failure that can occur on the link is classified into the sealed
// Error union the moment it happens. The classifiers in this package are
// total: any I/O, serial, framing or frame-decoding failure maps to
// exactly one variant, so callers never see an unclassified transport
// error. Timeouts are classified without knowing which command was in
// flight; the call site that knows attributes it afterwards.
package connection
