package kademlia

import "errors"

var (
	// ErrPolicyRejected is returned by Put when the registered Type's
	// store or edit policy refuses the value (spec §7, PolicyRejected).
	ErrPolicyRejected = errors.New("kademlia: store/edit policy rejected value")

	// ErrClosed is returned by any operation on a DHT instance that has
	// already been closed.
	ErrClosed = errors.New("kademlia: dht instance closed")
)
