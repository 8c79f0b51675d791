// Package usbstick finds a free ANT USB stick.
//
// Two identical sticks are common when the bridge runs on the same machine
// as the application consuming its broadcast: the application holds one
// stick, the bridge needs the other. The Acquirer therefore probes every
// candidate with an exclusive claim, skips sticks that are already claimed,
// and releases the probe handle immediately. The identity of the first free
// stick is handed to the ANT runtime, which opens it for real.
//
// No free stick is fatal: without a transceiver nothing else can run.
package usbstick
